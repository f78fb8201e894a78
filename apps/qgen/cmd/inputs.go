package cmd

import (
	"github.com/quatton/qgen/pkg/qapi/services"
	"github.com/quatton/qgen/pkg/qparam"
	"github.com/spf13/cobra"
)

// addInputFlags registers the flags shared by commands that resolve inputs
// against a model's schema.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String("version", "", "Version id (default latest)")
	cmd.Flags().StringP("prompt", "p", "", "Prompt text")
	cmd.Flags().StringArrayP("media", "m", nil, "Media input: file path, URL or data URI (repeatable, consumed in order)")
	cmd.Flags().StringArray("set", nil, "Override a parameter: name=value, value parsed as JSON when possible (repeatable)")
	cmd.Flags().String("overrides-json", "", "JSON object of parameter overrides")
	cmd.Flags().String("prior-json", "", "JSON object of values from an earlier step, used as fallbacks")
}

func resolveParamsFromFlags(cmd *cobra.Command, ref string) (services.ResolveParams, error) {
	owner, name, err := splitModel(ref)
	if err != nil {
		return services.ResolveParams{}, err
	}
	sets, _ := cmd.Flags().GetStringArray("set")
	overrides, err := parseSets(sets)
	if err != nil {
		return services.ResolveParams{}, err
	}
	priorText, _ := cmd.Flags().GetString("prior-json")
	prior, err := parseJSONObject("--prior-json", priorText)
	if err != nil {
		return services.ResolveParams{}, err
	}

	version, _ := cmd.Flags().GetString("version")
	prompt, _ := cmd.Flags().GetString("prompt")
	media, _ := cmd.Flags().GetStringArray("media")
	overridesJSON, _ := cmd.Flags().GetString("overrides-json")

	return services.ResolveParams{
		Owner:   owner,
		Name:    name,
		Version: version,
		Request: qparam.Request{
			Prompt:        prompt,
			Media:         media,
			OverridesJSON: overridesJSON,
			Overrides:     overrides,
			Prior:         prior,
		},
	}, nil
}
