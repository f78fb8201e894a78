package qmedia

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func solid(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func decodeWire(t *testing.T, wire string) image.Image {
	t.Helper()
	payload, ok := strings.CutPrefix(wire, "data:image/png;base64,")
	if !ok {
		t.Fatalf("not a png data URI: %.40s", wire)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("bad base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("bad png: %v", err)
	}
	return img
}

func TestToWireString_PassThrough(t *testing.T) {
	for _, s := range []string{"https://example.com/a.png", "http://x/y", "data:image/png;base64,AAA"} {
		got, err := ToWireString(s)
		if err != nil || got != s {
			t.Errorf("ToWireString(%q) = %q, %v", s, got, err)
		}
	}
}

func TestToWireString_Downscales(t *testing.T) {
	wire, err := ToWireString(solid(2048, 1024))
	if err != nil {
		t.Fatalf("ToWireString failed: %v", err)
	}
	b := decodeWire(t, wire).Bounds()
	if b.Dx() != 1024 || b.Dy() != 512 {
		t.Fatalf("expected 1024x512, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestToWireString_SmallImageUnchanged(t *testing.T) {
	wire, err := ToWireString(solid(10, 20))
	if err != nil {
		t.Fatalf("ToWireString failed: %v", err)
	}
	if b := decodeWire(t, wire).Bounds(); b.Dx() != 10 || b.Dy() != 20 {
		t.Fatalf("unexpected size %v", b)
	}
}

func TestToWireString_PixelBuffer(t *testing.T) {
	buf := PixelBuffer{Width: 2, Height: 1, Channels: 3, Pix: []float32{1, 0, 0, 0, 2, -1}}
	wire, err := ToWireString(buf)
	if err != nil {
		t.Fatalf("ToWireString failed: %v", err)
	}
	img := decodeWire(t, wire)
	r, g, _, a := img.At(0, 0).RGBA()
	if r>>8 != 0xff || g != 0 || a>>8 != 0xff {
		t.Fatalf("unexpected first pixel %v", img.At(0, 0))
	}
	_, g, b, _ := img.At(1, 0).RGBA()
	if g>>8 != 0xff || b != 0 {
		t.Fatalf("samples not clamped: %v", img.At(1, 0))
	}

	if _, err := ToWireString(PixelBuffer{Width: 2, Height: 2, Channels: 3, Pix: []float32{1}}); err == nil {
		t.Fatal("expected size mismatch error")
	}
	if _, err := ToWireString(PixelBuffer{Width: 1, Height: 1, Channels: 2, Pix: []float32{1, 1}}); err == nil {
		t.Fatal("expected channel error")
	}
}

func TestToWireString_FilePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.png")
	if err := os.WriteFile(path, pngBytes(t, solid(4, 4)), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	wire, err := ToWireString(path)
	if err != nil {
		t.Fatalf("ToWireString failed: %v", err)
	}
	decodeWire(t, wire)

	if _, err := ToWireString(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := ToWireString(42); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestToRemoteWireString_RejectsFilePaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.png")
	if err := os.WriteFile(path, pngBytes(t, solid(4, 4)), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := ToRemoteWireString(path); err == nil {
		t.Fatal("expected file path to be rejected")
	}
	for _, in := range []string{"https://x/cat.png", "data:image/png;base64,AAA"} {
		if got, err := ToRemoteWireString(in); err != nil || got != in {
			t.Errorf("ToRemoteWireString(%q) = %q, %v", in, got, err)
		}
	}
}

func TestParse_MixedOutputs(t *testing.T) {
	var jpg bytes.Buffer
	gray := image.NewGray(image.Rect(0, 0, 3, 3))
	gray.Set(1, 1, color.Gray{Y: 200})
	if err := jpeg.Encode(&jpg, gray, nil); err != nil {
		t.Fatalf("jpeg.Encode failed: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/out.jpg":
			_, _ = w.Write(jpg.Bytes())
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	raw := base64.StdEncoding.EncodeToString(pngBytes(t, solid(2, 2)))
	output := []any{
		srv.URL + "/out.jpg",
		"data:image/png;base64," + raw,
		raw,
		"just some text",
		srv.URL + "/missing.png",
		map[string]any{"nsfw": false},
		nil,
	}

	images, texts := NewParser().Parse(context.Background(), output)
	if len(images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(images))
	}
	if images[0].ContentType != "image/jpeg" || images[0].Ext() != "jpg" || images[0].Source != srv.URL+"/out.jpg" {
		t.Errorf("unexpected url image: %+v", images[0])
	}
	if images[1].ContentType != "image/png" || images[1].Source != "data-uri" {
		t.Errorf("unexpected data uri image: %+v", images[1])
	}
	if images[2].Source != "base64" {
		t.Errorf("unexpected raw image source %s", images[2].Source)
	}

	want := []string{"just some text", srv.URL + "/missing.png", `{"nsfw":false}`}
	if len(texts) != len(want) {
		t.Fatalf("expected texts %v, got %v", want, texts)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Errorf("text %d: want %q, got %q", i, want[i], texts[i])
		}
	}
}

func TestParse_SingleValue(t *testing.T) {
	images, texts := ParseOutputs(context.Background(), "hello")
	if len(images) != 0 || len(texts) != 1 || texts[0] != "hello" {
		t.Fatalf("unexpected parse: %v %v", images, texts)
	}
}
