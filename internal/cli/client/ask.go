package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docuchat/internal/service"
)

// AskCitation mirrors the citation payload trailing a streamed answer.
type AskCitation struct {
	Source  string `json:"source"`
	Page    int    `json:"page"`
	Preview string `json:"preview"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <session-id> <question>",
		Short: "Ask a question about a session's documents",
		Long:  "Streams the answer to stdout, followed by the supporting citations.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, args[0], args[1])
		},
	}

	return cmd
}

func runAsk(cmd *cobra.Command, sessionID, question string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.PostStream(fmt.Sprintf("/sessions/%s/ask", sessionID), map[string]string{
		"question": question,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	// Blank lines are held back so the padding before the citation
	// sentinel never reaches the terminal.
	pendingBlanks := 0
	inCitations := false
	var citationJSON strings.Builder

	for scanner.Scan() {
		line := scanner.Text()

		if inCitations {
			citationJSON.WriteString(line)
			continue
		}

		if line == service.CitationsSentinel {
			inCitations = true
			continue
		}

		if line == "" {
			pendingBlanks++
			continue
		}

		for ; pendingBlanks > 0; pendingBlanks-- {
			fmt.Println()
		}
		fmt.Println(line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream interrupted: %w", err)
	}

	if citationJSON.Len() > 0 {
		var citations []AskCitation
		if err := json.Unmarshal([]byte(citationJSON.String()), &citations); err != nil {
			return fmt.Errorf("failed to parse citations: %w", err)
		}
		if len(citations) > 0 {
			fmt.Println("\nSources:")
			for _, c := range citations {
				fmt.Printf("  - %s (p.%d): %s\n", c.Source, c.Page, c.Preview)
			}
		}
	}

	return nil
}
