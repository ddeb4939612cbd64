// scoutctl is a small operator CLI for the threadscout HTTP API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

func main() {
	root := &cobra.Command{
		Use:   "scoutctl",
		Short: "Operate the threadscout engagement engine",
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Base URL of the threadscout server")

	root.AddCommand(runCmd(), workflowCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start and inspect runs",
	}

	var dryRun bool
	start := &cobra.Command{
		Use:   "start <workflow-id>",
		Short: "Start a run and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _ := json.Marshal(map[string]interface{}{
				"workflow_id": args[0],
				"dry_run":     dryRun,
			})
			return request(http.MethodPost, "/api/v1/runs", bytes.NewBuffer(body))
		},
	}
	start.Flags().BoolVar(&dryRun, "dry-run", false, "Produce drafts without recording")

	get := &cobra.Command{
		Use:   "get <run-id>",
		Short: "Print a run's status and result summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return request(http.MethodGet, "/api/v1/runs/"+args[0], nil)
		},
	}

	cmd.AddCommand(start, get)
	return cmd
}

func workflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Inspect workflow definitions",
	}

	var workspaceID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List workflow definitions for a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return request(http.MethodGet, "/api/v1/workflows?workspace_id="+workspaceID, nil)
		},
	}
	list.Flags().StringVar(&workspaceID, "workspace", "", "Workspace ID")
	list.MarkFlagRequired("workspace")

	cmd.AddCommand(list)
	return cmd
}

// request performs an API call and pretty-prints the JSON response.
func request(method, path string, body io.Reader) error {
	req, err := http.NewRequest(method, serverURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(data))
	}

	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(out.String())
	return nil
}
