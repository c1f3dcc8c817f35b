package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const envFile = ".env"

func InitCmd() *cobra.Command {
	var token string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize docuchat credentials",
		Long:  "Creates a .env file with the bearer token and API URL and verifies the server is reachable.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runInit(token, apiURL, outputJSON)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Bearer token for authentication")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL (default: http://localhost:8080)")

	return cmd
}

func runInit(token, apiURL string, outputJSON bool) error {
	_ = godotenv.Load()
	if token == "" {
		token = os.Getenv(envAPIToken)
	}
	if token == "" {
		fmt.Print("Enter bearer token: ")
		reader := bufio.NewReader(os.Stdin)
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		token = strings.TrimSpace(input)
		if token == "" {
			return fmt.Errorf("token is required")
		}
	}

	if apiURL == "" {
		apiURL = os.Getenv(envAPIURL)
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	envData := fmt.Sprintf("%s=%s\n%s=%s\n", envAPIToken, token, envAPIURL, apiURL)
	if err := os.WriteFile(envFile, []byte(envData), 0600); err != nil {
		return fmt.Errorf("failed to create .env: %w", err)
	}

	api, err := NewAPIClientWithConfig(token, apiURL)
	if err != nil {
		os.Remove(envFile)
		return fmt.Errorf("failed to create API client: %w", err)
	}

	if _, err := api.Get("/health"); err != nil {
		os.Remove(envFile)
		return fmt.Errorf("server not reachable at %s: %w", apiURL, err)
	}

	if outputJSON {
		result := map[string]interface{}{
			"success": true,
			"api_url": apiURL,
			"env":     envFile,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("Initialized docuchat credentials (API: %s)\n", apiURL)
		fmt.Printf("Credentials saved to %s\n", envFile)
	}

	return nil
}
