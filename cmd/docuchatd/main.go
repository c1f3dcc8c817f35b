package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docuchat/internal/cli"
	"github.com/cloo-solutions/docuchat/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "docuchatd",
		Short: "Docuchat daemon and CLI",
		Long:  "Docuchat daemon for running the API server and managing users and bearer tokens",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.UserCmd())
	rootCmd.AddCommand(admin.TokenCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
