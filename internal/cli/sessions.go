// internal/cli/sessions.go
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cultcrawl/cultcrawl/internal/auth"
	"github.com/cultcrawl/cultcrawl/internal/ui"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved login sessions",
	Long: `Lists, inspects and deletes saved login sessions. Sessions hold the
cookies captured by "cultcrawl login" or imported from the environment
and are stored in the OS keyring where one is available.`,
	Example: `  # List all saved sessions
  $ cultcrawl sessions list

  # Inspect one
  $ cultcrawl sessions view cultfit

  # Delete one
  $ cultcrawl sessions delete cultfit`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsViewCmd = &cobra.Command{
	Use:   "view <session-name>",
	Short: "Show the details of a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsView,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-name>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsViewCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	names, err := auth.ListSessions()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	if len(names) == 0 {
		fmt.Println("No saved sessions.")
		fmt.Println("\nCreate one with:")
		fmt.Println("  cultcrawl login --session=<name>")
		fmt.Println("  cultcrawl sessions import <name>")
		return nil
	}

	fmt.Printf("\n%s\n\n", ui.Bold(fmt.Sprintf("Saved sessions (%d)", len(names))))
	for i, name := range names {
		fmt.Printf("%d. %s\n", i+1, ui.Bold(name))

		session, err := auth.LoadSession(name)
		if err != nil {
			fmt.Printf("   %s\n", ui.Warn(err.Error()))
			continue
		}
		fmt.Printf("   URL:     %s\n", session.URL)
		fmt.Printf("   Cookies: %d\n", len(session.Cookies))
		fmt.Printf("   Created: %s\n", session.CreatedAt.Format(time.RFC1123))
		if !session.ExpiresAt.IsZero() {
			fmt.Printf("   Expires: %s (in %s)\n",
				session.ExpiresAt.Format(time.RFC1123),
				time.Until(session.ExpiresAt).Round(time.Hour))
		}
		if i < len(names)-1 {
			fmt.Println()
		}
	}
	fmt.Println()
	return nil
}

func runSessionsView(cmd *cobra.Command, args []string) error {
	name := args[0]

	session, err := auth.LoadSession(name)
	if err != nil {
		return fmt.Errorf("load session %q: %w", name, err)
	}

	fmt.Printf("\n%s\n\n", ui.Bold("Session "+name))
	fmt.Printf("URL:      %s\n", session.URL)
	fmt.Printf("Created:  %s\n", session.CreatedAt.Format(time.RFC1123))
	if !session.ExpiresAt.IsZero() {
		fmt.Printf("Expires:  %s\n", session.ExpiresAt.Format(time.RFC1123))
	}

	fmt.Printf("\nCookies (%d):\n", len(session.Cookies))
	for i, cookie := range session.Cookies {
		if i >= 5 {
			fmt.Printf("  ... and %d more\n", len(session.Cookies)-5)
			break
		}
		fmt.Printf("  - %s (domain: %s)\n", cookie.Name, cookie.Domain)
	}

	if len(session.Headers) > 0 {
		fmt.Printf("\nHeaders (%d):\n", len(session.Headers))
		for key, value := range session.Headers {
			fmt.Printf("  - %s: %s\n", key, value)
		}
	}
	fmt.Println()
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	fmt.Printf("Delete session %q? [y/N]: ", name)
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "y" && confirm != "Y" {
		fmt.Println("Cancelled.")
		return nil
	}

	if err := auth.DeleteSession(name); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	fmt.Println(ui.Success(fmt.Sprintf("Session %q deleted", name)))
	return nil
}
