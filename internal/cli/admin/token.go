package admin

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docuchat/internal/domain"
	"github.com/cloo-solutions/docuchat/internal/repository"
)

const defaultTokenTTL = 30 * 24 * time.Hour

func TokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage bearer tokens",
		Long:  "Issue bearer tokens for user accounts",
	}

	cmd.AddCommand(TokenIssueCmd())

	return cmd
}

func TokenIssueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a new bearer token",
		Long:  "Issue a new bearer token for a user. The token is shown once and only its hash is stored.",
		RunE:  runTokenIssue,
	}

	cmd.Flags().StringP("user", "u", "", "Username (required)")
	cmd.Flags().Duration("ttl", defaultTokenTTL, "Token lifetime")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("user")

	return cmd
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	username, _ := cmd.Flags().GetString("user")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	userSessionRepo := repository.NewUserSessionRepository(pool)

	user, err := userRepo.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user not found: %s", username)
	}

	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	sum := sha256.Sum256([]byte(token))
	now := time.Now().UTC()
	session := &domain.UserSession{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: hex.EncodeToString(sum[:]),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := userSessionRepo.Create(ctx, session); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         session.ID,
			"user":       user.Username,
			"token":      token,
			"expires_at": session.ExpiresAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Token issued for %s (expires: %s)\n", user.Username, session.ExpiresAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Token: %s\n", token)
		fmt.Println("\n⚠️  Save this token now. You won't be able to see it again!")
	}

	return nil
}

func generateToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return "dcu_" + hex.EncodeToString(raw), nil
}
