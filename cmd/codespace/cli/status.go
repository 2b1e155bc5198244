package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/faucetdb/codespace/internal/model"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check if the Codespace server is running",
		Long:  "Query the liveness and readiness probes of a running server at the configured host and port.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.OutOrStdout())
		},
	}
}

func runStatus(w io.Writer) error {
	port := viper.GetInt("server.port")
	if port == 0 {
		port = 8000
	}
	host := viper.GetString("server.host")
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	reportStatus(w, &http.Client{Timeout: 2 * time.Second}, fmt.Sprintf("http://%s:%d", host, port))
	return nil
}

// reportStatus prints the liveness and readiness of the server at base.
func reportStatus(w io.Writer, client *http.Client, base string) {
	resp, err := client.Get(base + "/healthz")
	if err != nil {
		fmt.Fprintf(w, "Server is not responding at %s.\n", base)
		return
	}
	resp.Body.Close()
	fmt.Fprintf(w, "Server is running at %s\n", base)
	fmt.Fprintf(w, "  Health:  %d\n", resp.StatusCode)

	resp, err = client.Get(base + "/readyz")
	if err != nil {
		fmt.Fprintf(w, "  Ready:   unknown (%v)\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		fmt.Fprintf(w, "  Ready:   %d\n", resp.StatusCode)
		return
	}

	var body model.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		fmt.Fprintf(w, "  Ready:   %d\n", resp.StatusCode)
		return
	}
	fmt.Fprintf(w, "  Ready:   %d %s\n", resp.StatusCode, body.Error.Message)
	for name, reason := range body.Error.Context {
		fmt.Fprintf(w, "    %-10s %v\n", name+":", reason)
	}
}
