package main

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "credvault",
	Short: "CredVault agent CLI",
	Long:  "A CLI for the CredVault credential agent: log in, list and reveal credentials.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadConfig()
		// Env var overrides are applied in newClient()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: table, json, raw")
	rootCmd.PersistentFlags().StringVar(&outputField, "field", "", "Print only this field (use with -format=raw)")

	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(revealCmd())
	rootCmd.AddCommand(refreshCmd())
	rootCmd.AddCommand(accessLogCmd())
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <user-id>",
		Short: "Start a vault session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				fmt.Print("Password: ")
				scanner := bufio.NewScanner(os.Stdin)
				scanner.Scan()
				password = strings.TrimSpace(scanner.Text())
			}
			client := newClient()
			result, err := client.post("/v1/auth/login", map[string]any{
				"user_id":  args[0],
				"password": password,
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	cmd.Flags().String("password", "", "Password (prompted if omitted)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and wipe the credential cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			if _, err := client.post("/v1/auth/logout", nil); err != nil {
				printError(err.Error())
				return nil
			}
			printSuccess("Success! Session ended.")
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.get("/v1/auth/status")
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List credentials visible to the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			pageURL, _ := cmd.Flags().GetString("url")
			path := "/v1/credentials"
			if pageURL != "" {
				path += "?url=" + url.QueryEscape(pageURL)
			}
			client := newClient()
			result, err := client.get(path)
			if err != nil {
				printError(err.Error())
				return nil
			}
			if creds, ok := result["credentials"].([]any); ok && outputFormat == "table" {
				printRows(creds, []string{"id", "website_url", "username"})
				return nil
			}
			printResult(result)
			return nil
		},
	}
	cmd.Flags().String("url", "", "Only credentials matching this page URL")
	return cmd
}

func revealCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reveal <id>",
		Short: "Reveal one credential's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.Atoi(args[0]); err != nil {
				printError("id must be a number")
				return nil
			}
			client := newClient()
			result, err := client.post("/v1/credentials/"+args[0]+"/reveal", nil)
			if err != nil {
				printError(err.Error())
				return nil
			}
			if cred, ok := result["credential"].(map[string]any); ok {
				printResult(cred)
				return nil
			}
			printResult(result)
			return nil
		},
	}
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Discard the cache and refetch from the source",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.post("/v1/credentials/refresh", nil)
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
}

func accessLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "access-log",
		Short: "Show the session's credential access log",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.get("/v1/sys/access-log")
			if err != nil {
				printError(err.Error())
				return nil
			}
			if entries, ok := result["entries"].([]any); ok && outputFormat == "table" {
				printRows(entries, []string{"timestamp", "user_id", "credential_id", "action"})
				return nil
			}
			printResult(result)
			return nil
		},
	}
}
