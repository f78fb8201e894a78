package cmd

import (
	"os"

	"github.com/quatton/qgen/pkg/qapi/services"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve owner/name",
	Short: "Build the prediction input for a model without running it",
	Long: `Fetches the model's input schema and fills every parameter from, in order:
--set/--overrides-json, the --media queue, --prompt, --prior-json and the
schema default. Prints the version id and the resolved input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := resolveParamsFromFlags(cmd, args[0])
		if err != nil {
			return err
		}
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		resolved, err := services.New(client, nil, getLogger(cmd)).ResolveInputs(cmd.Context(), params)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, map[string]any{
			"versionId": resolved.Summary.VersionID,
			"input":     resolved.Input,
		})
	},
}

func init() {
	addInputFlags(resolveCmd)
	rootCmd.AddCommand(resolveCmd)
}
