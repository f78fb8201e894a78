package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/quatton/qgen/pkg/qapi"
	"github.com/quatton/qgen/pkg/qapi/routes"
	"github.com/spf13/cobra"
)

// openapiCmd represents the openapi command
var openapiCmd = &cobra.Command{
	Use:     "openapi",
	Aliases: []string{"spec"},
	Short:   "Print the gateway's OpenAPI document",
	Long:    `Outputs the OpenAPI document of the HTTP gateway without a token or any backing services.`,
	Run:     generateOpenAPI,
}

var (
	openapiOutput    string
	openapiDowngrade bool
)

func init() {
	rootCmd.AddCommand(openapiCmd)
	openapiCmd.Flags().StringVarP(&openapiOutput, "output", "o", "", "Write output to file (default stdout)")
	openapiCmd.Flags().BoolVar(&openapiDowngrade, "downgrade", true, "Downgrade to OpenAPI 3.0")
}

func generateOpenAPI(cmd *cobra.Command, args []string) {
	api := qapi.NewApi()
	routes.RegisterAPI(api.Api, nil)

	var (
		doc []byte
		err error
	)
	if openapiDowngrade {
		doc, err = api.Api.OpenAPI().Downgrade()
	} else {
		doc, err = json.Marshal(api.Api.OpenAPI())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate OpenAPI document: %v\n", err)
		os.Exit(1)
	}

	if openapiOutput == "" {
		fmt.Println(string(doc))
		return
	}
	if err := os.WriteFile(openapiOutput, doc, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", openapiOutput, err)
		os.Exit(1)
	}
}
