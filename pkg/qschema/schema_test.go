package qschema

import "testing"

func TestClassification(t *testing.T) {
	cases := []struct {
		param  ParamSpec
		media  bool
		prompt bool
	}{
		{ParamSpec{Name: "image", Type: TypeString, Format: "uri"}, true, false},
		{ParamSpec{Name: "mask", Type: TypeString, Format: "FILE"}, true, false},
		{ParamSpec{Name: "ref", Type: TypeString, Title: "Reference Photo"}, true, false},
		{ParamSpec{Name: "prompt", Type: TypeString, Title: "Prompt"}, false, true},
		{ParamSpec{Name: "negative", Type: TypeString, Title: "Negative Caption"}, false, true},
		{ParamSpec{Name: "text_scale", Type: TypeNumber}, false, false},
		{ParamSpec{Name: "seed", Type: TypeInteger}, false, false},
	}
	for _, tc := range cases {
		if got := tc.param.IsMedia(); got != tc.media {
			t.Errorf("%s IsMedia() = %v, want %v", tc.param.Name, got, tc.media)
		}
		if got := tc.param.IsPrompt(); got != tc.prompt {
			t.Errorf("%s IsPrompt() = %v, want %v", tc.param.Name, got, tc.prompt)
		}
	}
}

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New("v", []ParamSpec{{Name: "a"}, {Name: "a"}})
	if err == nil {
		t.Fatal("expected duplicate error")
	}
}

func TestNew_DefaultsUnknownTypeToString(t *testing.T) {
	s, err := New("v", []ParamSpec{{Name: "a", Type: "weird"}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	p, _ := s.Lookup("a")
	if p.Type != TypeString {
		t.Fatalf("expected string, got %s", p.Type)
	}
}

func TestParamsIsACopy(t *testing.T) {
	s, _ := New("v", []ParamSpec{{Name: "a", Type: TypeString}})
	ps := s.Params()
	ps[0].Name = "mutated"
	if _, ok := s.Lookup("a"); !ok {
		t.Fatal("schema mutated through Params()")
	}
	if s.Params()[0].Name != "a" {
		t.Fatal("schema order slice aliased")
	}
}
