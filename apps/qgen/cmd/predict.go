package cmd

import (
	"os"

	"github.com/quatton/qgen/pkg/qsdk"
	"github.com/quatton/qgen/pkg/qsdk/qerr"
	"github.com/spf13/cobra"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run one prediction with a raw input and print the result",
	Long: `Creates a prediction for --version with the --input JSON object and waits
for it to finish. Failed and canceled predictions are printed like any other
result; the exit status is non-zero.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd)
		if err != nil {
			return err
		}
		version, _ := cmd.Flags().GetString("version")
		if version == "" {
			return qerr.Validation("--version is required")
		}
		inputText, _ := cmd.Flags().GetString("input")
		input, err := parseJSONObject("--input", inputText)
		if err != nil {
			return err
		}
		if input == nil {
			input = map[string]any{}
		}

		timeout, _ := cmd.Flags().GetDuration("timeout")
		if timeout <= 0 {
			timeout = cfg.PredictionTimeout
		}
		webhook, _ := cmd.Flags().GetString("webhook")

		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		pred, err := client.Predict(cmd.Context(), qsdk.PredictRequest{
			Version:      version,
			Input:        input,
			Webhook:      webhook,
			Timeout:      timeout,
			PollInterval: cfg.PollInterval,
		})
		if pred != nil {
			if perr := printJSON(os.Stdout, pred); perr != nil && err == nil {
				err = perr
			}
		}
		return err
	},
}

func init() {
	predictCmd.Flags().String("version", "", "Version id to run")
	predictCmd.Flags().String("input", "", "Input as a JSON object")
	predictCmd.Flags().String("webhook", "", "Webhook URL for completion events")
	predictCmd.Flags().Duration("timeout", 0, "Give up waiting after this long (default from config)")
	rootCmd.AddCommand(predictCmd)
}
