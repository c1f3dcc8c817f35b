package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// UploadResult mirrors the ingestion response.
type UploadResult struct {
	SessionID  string `json:"session_id"`
	ChunkCount int    `json:"chunk_count"`
	Failures   []struct {
		Source string `json:"source"`
		Reason string `json:"reason"`
	} `json:"failures,omitempty"`
}

// UploadCmd creates the upload command.
func UploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file.pdf> [more.pdf...]",
		Short: "Upload PDFs and start a chat session",
		Long:  "Uploads one or more PDF files, indexes their pages, and prints the new session ID.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runUpload(cmd, args, outputJSON)
		},
	}

	return cmd
}

func runUpload(cmd *cobra.Command, files []string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.PostMultipart("/sessions", files)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	var result UploadResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse upload response: %w", err)
	}

	if outputJSON {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Session created: %s\n", result.SessionID)
	fmt.Printf("Indexed %d chunks from %d file(s)\n", result.ChunkCount, len(files)-len(result.Failures))
	for _, f := range result.Failures {
		fmt.Printf("  skipped %s: %s\n", f.Source, f.Reason)
	}

	return nil
}
