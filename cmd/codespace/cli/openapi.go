package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/faucetdb/codespace/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		outputFile string
		baseURL    string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI specification",
		Long:  "Print the OpenAPI 3.1 description of the HTTP API, the same document served at /openapi.json.",
		Example: `  codespace openapi
  codespace openapi --base-url https://code.example.com -o openapi.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpenAPI(outputFile, baseURL)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the document to a file instead of stdout")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Server URL to list in the document")

	return cmd
}

func runOpenAPI(outputFile, baseURL string) error {
	doc, err := openapi.Document(versionString(), baseURL)
	if err != nil {
		return fmt.Errorf("build openapi document: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	if outputFile == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outputFile, err)
	}
	fmt.Printf("Wrote %s\n", outputFile)
	return nil
}
