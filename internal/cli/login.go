// internal/cli/login.go
package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cultcrawl/cultcrawl/internal/auth"
	"github.com/cultcrawl/cultcrawl/internal/ui"
)

var (
	loginSession   string
	loginWait      string
	loginTimeout   time.Duration
	loginDebugPort int
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in through a visible browser and save the session",
	Long: `Opens a visible Chrome window on the configured site so you can log in
by hand. Once you confirm, the browser's cookies are captured and
stored as a named session, in the OS keyring where one is available
and under ~/.cultcrawl/sessions otherwise.

Headless environments cannot open a window. There, put your browser
cookies in .env and run "cultcrawl sessions import <name>" instead.`,
	Example: `  # Log in and store the session as "cultfit"
  $ cultcrawl login --session=cultfit

  # Consider the login done when the profile avatar appears
  $ cultcrawl login --session=cultfit --wait=".user-avatar"

  # Expose the login browser on a debugging port (dev containers)
  $ cultcrawl login --session=cultfit --remote-debug=9222`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVarP(&loginSession, "session", "s", "", "Name to save the session under (required)")
	loginCmd.Flags().StringVarP(&loginWait, "wait", "w", "", "CSS selector that appears once login succeeded")
	loginCmd.Flags().DurationVar(&loginTimeout, "login-timeout", 5*time.Minute, "How long to wait for the login to finish")
	loginCmd.Flags().IntVar(&loginDebugPort, "remote-debug", 0, "Chrome remote debugging port (e.g. 9222)")
	loginCmd.MarkFlagRequired("session")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg := getConfig(cmd)

	log.Info().Str("url", cfg.BaseURL).Str("session", loginSession).Msg("Starting interactive login")

	fmt.Printf("\n%s\n\n", ui.Bold("Interactive login"))
	fmt.Printf("  %s  %s\n", ui.Bold("Session:"), loginSession)
	fmt.Printf("  %s      %s\n", ui.Bold("URL:"), cfg.BaseURL)
	if loginWait != "" {
		fmt.Printf("  %s  %s\n", ui.Bold("Waiting:"), loginWait)
	}
	fmt.Printf("  %s  %s\n\n", ui.Bold("Timeout:"), loginTimeout)

	session, err := auth.InteractiveLogin(auth.LoginOptions{
		SessionName:         loginSession,
		URL:                 cfg.BaseURL,
		WaitSelector:        loginWait,
		Timeout:             loginTimeout,
		Headers:             cfg.Headers,
		RemoteDebuggingPort: loginDebugPort,
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := auth.SaveSession(session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	fmt.Printf("\n%s\n", ui.Success(fmt.Sprintf("Session %q saved (%d cookies)", session.Name, len(session.Cookies))))
	if !session.ExpiresAt.IsZero() {
		fmt.Printf("Expires: %s\n", session.ExpiresAt.Format(time.RFC1123))
	}
	fmt.Printf("\nCrawl with it:\n  %s\n\n", ui.Bold("cultcrawl crawl --session="+session.Name))
	return nil
}
