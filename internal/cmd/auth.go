package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in with a one-time code",
	Long: `Sign in with a one-time code. A code is emailed to you and the
command waits for you to type it. Pass --code to supply a code you already
have without requesting a new one.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show who is signed in and which backend is used",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var loginCode string

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)

	loginCmd.Flags().StringVar(&loginCode, "code", "", "One-time code from an earlier email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	c, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx := cmd.Context()
	email := args[0]
	out := cmd.OutOrStdout()

	code := loginCode
	if code == "" {
		if err := c.Auth.SignInWithOTP(ctx, email, c.Config.Auth.RedirectURL); err != nil {
			return failure(c, "send code", err)
		}
		fmt.Fprintf(out, "We sent a code to %s.\n", email)
		fmt.Fprint(out, "Code: ")
		code, err = readLine(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read code: %w", err)
		}
	}

	session, err := c.Auth.VerifyOTP(ctx, email, code)
	if err != nil {
		return failure(c, "sign in", err)
	}
	fmt.Fprintf(out, "Signed in as %s.\n", session.User.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	c, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if c.SignedIn(ctx) == nil {
		fmt.Fprintln(out, "Not signed in.")
		return nil
	}
	if err := c.Auth.SignOut(ctx); err != nil {
		return failure(c, "sign out", err)
	}
	fmt.Fprintln(out, "Signed out.")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backend: %s\n", c.Config.API.BaseURL)
	fmt.Fprintf(out, "Session file: %s\n", c.Config.SessionFile())

	session := c.SignedIn(cmd.Context())
	if session == nil {
		fmt.Fprintln(out, "Not signed in.")
		return nil
	}
	fmt.Fprintf(out, "Signed in as %s\n", session.User.Email)
	if !session.ExpiresAt.IsZero() {
		fmt.Fprintf(out, "Session expires: %s\n", session.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}
