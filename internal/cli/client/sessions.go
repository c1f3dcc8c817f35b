package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// SessionItem is one entry in the session listing.
type SessionItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	Queryable bool   `json:"queryable"`
}

type sessionPage struct {
	Items   []SessionItem `json:"items"`
	Cursor  string        `json:"cursor,omitempty"`
	HasMore bool          `json:"has_more"`
}

// MessageItem is one entry in a session transcript.
type MessageItem struct {
	ID        string        `json:"id"`
	Sender    string        `json:"sender"`
	Text      string        `json:"text"`
	Citations []AskCitation `json:"citations,omitempty"`
	CreatedAt string        `json:"created_at"`
}

// SessionsCmd creates the sessions command with subcommands.
func SessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect chat sessions",
		Long:  "List sessions and browse their transcripts and document summaries.",
	}

	cmd.AddCommand(SessionsListCmd())
	cmd.AddCommand(SessionsMessagesCmd())
	cmd.AddCommand(SessionsSummaryCmd())

	return cmd
}

// SessionsListCmd creates the sessions list command.
func SessionsListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your sessions",
		Long:  "List your chat sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSessionsList(cmd, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runSessionsList(cmd *cobra.Command, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/sessions?limit=%d", limit)
	if cursor != "" {
		path += "&cursor=" + cursor
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	var page sessionPage
	if err := json.Unmarshal(resp.Data, &page); err != nil {
		return fmt.Errorf("failed to parse session list: %w", err)
	}

	if outputJSON {
		data, _ := json.MarshalIndent(page, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	if len(page.Items) == 0 {
		fmt.Println("No sessions found")
		return nil
	}
	fmt.Println("Sessions:")
	for _, s := range page.Items {
		status := "archived"
		if s.Queryable {
			status = "active"
		}
		fmt.Printf("  %s: %s (%s, created: %s)\n", s.ID, s.Title, status, s.CreatedAt)
	}
	if page.HasMore && page.Cursor != "" {
		fmt.Printf("\nMore results available. Use --cursor %s\n", page.Cursor)
	}

	return nil
}

// SessionsMessagesCmd creates the sessions messages command.
func SessionsMessagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages <session-id>",
		Short: "Show a session's transcript",
		Long:  "Print the full question/answer transcript of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSessionsMessages(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runSessionsMessages(cmd *cobra.Command, sessionID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/sessions/%s/messages", sessionID))
	if err != nil {
		return fmt.Errorf("failed to fetch messages: %w", err)
	}

	var messages []MessageItem
	if err := json.Unmarshal(resp.Data, &messages); err != nil {
		return fmt.Errorf("failed to parse messages: %w", err)
	}

	if outputJSON {
		data, _ := json.MarshalIndent(messages, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	if len(messages) == 0 {
		fmt.Println("No messages in this session")
		return nil
	}
	for _, m := range messages {
		fmt.Printf("[%s] %s\n", m.Sender, m.Text)
		for _, c := range m.Citations {
			fmt.Printf("    - %s (p.%d): %s\n", c.Source, c.Page, c.Preview)
		}
	}

	return nil
}

// SessionsSummaryCmd creates the sessions summary command.
func SessionsSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary <session-id>",
		Short: "Show a session's document summary",
		Long:  "Print per-document chunk counts and content previews for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSessionsSummary(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runSessionsSummary(cmd *cobra.Command, sessionID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/sessions/%s/summary", sessionID))
	if err != nil {
		return fmt.Errorf("failed to fetch summary: %w", err)
	}

	var summary struct {
		ChunkCount  int `json:"chunk_count"`
		SourceCount int `json:"source_count"`
		Sources     []struct {
			Name       string `json:"name"`
			ChunkCount int    `json:"chunk_count"`
			Preview    string `json:"preview"`
		} `json:"sources"`
	}
	if err := json.Unmarshal(resp.Data, &summary); err != nil {
		return fmt.Errorf("failed to parse summary: %w", err)
	}

	if outputJSON {
		data, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%d chunks across %d document(s)\n", summary.ChunkCount, summary.SourceCount)
	for _, s := range summary.Sources {
		fmt.Printf("  %s (%d chunks): %s\n", s.Name, s.ChunkCount, s.Preview)
	}

	return nil
}
