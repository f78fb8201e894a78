package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/quatton/qgen/pkg/qapi/services"
	"github.com/quatton/qgen/pkg/qart"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:     "generate owner/name",
	Aliases: []string{"gen"},
	Short:   "Run jobs until the requested number of images exists",
	Long: `Resolves inputs like 'qgen resolve', then submits jobs to the model until
--count images are produced. Models that batch natively get as many images per
job as they allow; others get one job per image with a fresh seed each time.
Images are written under --out as generations/<run id>/<n>.<ext>.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd)
		if err != nil {
			return err
		}
		params, err := resolveParamsFromFlags(cmd, args[0])
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		store, err := qart.NewLocalStore(out)
		if err != nil {
			return err
		}
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		svcs := services.New(client, store, getLogger(cmd))
		svcs.Defaults.PredictionTimeout = int(cfg.PredictionTimeout.Seconds())
		svcs.Defaults.PollInterval = int(cfg.PollInterval.Seconds())

		count, _ := cmd.Flags().GetInt("count")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		res, err := svcs.Generate(cmd.Context(), services.GenerateParams{
			ResolveParams: params,
			Count:         count,
			Timeout:       timeout,
		})
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(os.Stdout, res)
		}
		if res.Soft {
			for _, t := range res.Texts {
				fmt.Fprintf(os.Stderr, "⚠️  %s\n", t)
			}
			return nil
		}
		fmt.Printf("Run %s on %s (%s): %d images from %d jobs\n",
			res.RunID, res.Model, res.VersionID, len(res.Images), len(res.Records))
		for _, a := range res.Artifacts {
			fmt.Println("  " + filepath.Join(out, filepath.FromSlash(a.Key)))
		}
		for _, t := range res.Texts {
			fmt.Println("  text: " + t)
		}
		return nil
	},
}

func init() {
	addInputFlags(generateCmd)
	generateCmd.Flags().IntP("count", "n", 1, "Number of images to produce")
	generateCmd.Flags().Duration("timeout", 0, "Per-job timeout (default from config)")
	generateCmd.Flags().StringP("out", "o", ".", "Directory images are written to")
	generateCmd.Flags().Bool("json", false, "Print the full run result as JSON")
	rootCmd.AddCommand(generateCmd)
}
