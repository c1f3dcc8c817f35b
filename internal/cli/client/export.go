package client

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ExportCmd creates the export command.
func ExportCmd() *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a session transcript",
		Long:  "Download a session's chat history as JSON or plain text.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], format, out)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Export format (json or txt)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, sessionID, format, out string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	data, err := api.GetRaw(fmt.Sprintf("/sessions/%s/export?format=%s", sessionID, format))
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if out == "" {
		_, err := os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	fmt.Printf("Exported session %s to %s (%d bytes)\n", sessionID, out, len(data))

	return nil
}
