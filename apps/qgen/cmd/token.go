package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/quatton/qgen/pkg/qapi/config"
	"github.com/quatton/qgen/pkg/qsdk"
	"github.com/quatton/qgen/pkg/qsdk/qerr"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the API token",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store the API token in the OS keyring",
	Long: `Stores the token for the configured base URL. With no argument the token is
read from stdin. REPLICATE_API_TOKEN, when set, still takes precedence.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd)
		if err != nil {
			return err
		}

		var token string
		if len(args) == 1 {
			token = args[0]
		} else {
			fmt.Fprint(os.Stderr, "API token: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return qerr.Validation("no token given")
			}
			token = line
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return qerr.Validation("token is empty")
		}

		if test, _ := cmd.Flags().GetBool("test"); test {
			client, err := qsdk.NewClient(token, qsdk.WithBaseURL(cfg.BaseURL), qsdk.WithLogger(getLogger(cmd)))
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := client.Ping(ctx); err != nil {
				return err
			}
			fmt.Println("✅ Token accepted")
		}

		if err := qsdk.SaveToken(cfg, token); err != nil {
			return err
		}
		fmt.Printf("🔐 Token saved for %s\n", cfg.BaseURL)
		return nil
	},
}

var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show where the API token comes from",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd)
		if err != nil {
			return err
		}
		token, source, err := qsdk.LoadToken(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("Token:  %s\n", config.MaskSecret(token))
		fmt.Printf("Source: %s\n", source)
		return nil
	},
}

var tokenDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the keyring entry for the configured base URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd)
		if err != nil {
			return err
		}
		if err := qsdk.DeleteKeyringToken(cfg.BaseURL); err != nil {
			return qerr.New(qerr.CodeConfig, err)
		}
		fmt.Printf("🗑️  Token removed for %s\n", cfg.BaseURL)
		return nil
	},
}

func init() {
	tokenSetCmd.Flags().Bool("test", false, "Verify the token against the API before saving")
	tokenCmd.AddCommand(tokenSetCmd, tokenShowCmd, tokenDeleteCmd)
	rootCmd.AddCommand(tokenCmd)
}
