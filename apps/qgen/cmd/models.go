package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/quatton/qgen/pkg/qparam"
	"github.com/quatton/qgen/pkg/qschema"
	"github.com/quatton/qgen/pkg/qsdk"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:     "models",
	Aliases: []string{"model"},
	Short:   "Browse and inspect models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models, optionally filtered by a search query",
	RunE: func(cmd *cobra.Command, args []string) error {
		if presets, _ := cmd.Flags().GetBool("presets"); presets {
			for _, id := range qsdk.PresetModels {
				fmt.Println(id)
			}
			return nil
		}

		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		search, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")
		models, err := client.ListModels(cmd.Context(), search, limit)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(os.Stdout, models)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tDESCRIPTION")
		for _, m := range models {
			fmt.Fprintf(w, "%s\t%s\n", m.ID(), truncate(m.Description, 72))
		}
		return w.Flush()
	},
}

var modelsGetCmd = &cobra.Command{
	Use:   "get owner/name",
	Short: "Show a model's parameters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, name, err := splitModel(args[0])
		if err != nil {
			return err
		}
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		version, _ := cmd.Flags().GetString("version")
		schema, err := qschema.NewCache(client).Get(cmd.Context(), owner, name, version)
		if err != nil {
			return err
		}
		summary := qparam.Summarize(schema)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(os.Stdout, summary)
		}
		fmt.Printf("Model:   %s/%s\n", owner, name)
		fmt.Printf("Version: %s\n\n", summary.VersionID)
		printParams(summary)
		return nil
	},
}

var modelsSelectCmd = &cobra.Command{
	Use:   "select",
	Short: "Pick a model by preset or search and print its details",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		preset, _ := cmd.Flags().GetString("preset")
		search, _ := cmd.Flags().GetString("search")
		refresh, _ := cmd.Flags().GetBool("refresh")
		info, err := client.SelectModel(cmd.Context(), qsdk.SelectRequest{
			Preset:  preset,
			Search:  search,
			Refresh: refresh,
		})
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, info)
	},
}

func printParams(summary qparam.Summary) {
	if len(summary.Params) == 0 {
		fmt.Println("(no declared parameters)")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tREQUIRED\tDEFAULT\tKIND")
	for _, p := range summary.Params {
		kind := ""
		switch {
		case p.IsMedia:
			kind = "media"
		case p.IsPrompt:
			kind = "prompt"
		}
		def := ""
		if p.Default != nil {
			def = fmt.Sprint(p.Default)
		}
		if len(p.Enum) > 0 {
			opts := make([]string, len(p.Enum))
			for i, e := range p.Enum {
				opts[i] = fmt.Sprint(e)
			}
			def += " [" + strings.Join(opts, "|") + "]"
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n", p.Name, p.Type, p.Required, strings.TrimSpace(def), kind)
	}
	w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-3]) + "..."
}

func init() {
	modelsListCmd.Flags().String("search", "", "Search query")
	modelsListCmd.Flags().Int("limit", 20, "Maximum number of models")
	modelsListCmd.Flags().Bool("presets", false, "Only print the recommended presets")
	modelsListCmd.Flags().Bool("json", false, "Print JSON")

	modelsGetCmd.Flags().String("version", "", "Version id (default latest)")
	modelsGetCmd.Flags().Bool("json", false, "Print JSON")

	modelsSelectCmd.Flags().String("preset", "", "Preset owner/name, or 'custom' to search")
	modelsSelectCmd.Flags().String("search", "", "Search query when no preset is given")
	modelsSelectCmd.Flags().Bool("refresh", false, "Drop cached listings first")

	modelsCmd.AddCommand(modelsListCmd, modelsGetCmd, modelsSelectCmd)
	rootCmd.AddCommand(modelsCmd)
}
