package cmd

import (
	"fmt"
	"os"

	"github.com/Iron-Ham/gentle/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// minWidth is the narrowest terminal the interface lays out cleanly in.
const minWidth = 40

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Open the interactive interface",
	Long: `Open the interactive interface. This is also what running gentle
without a command does.

The interface needs a terminal; use 'gentle tasks' and the other commands
from scripts.`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("the interactive interface needs a terminal; try 'gentle tasks' instead")
	}

	c, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if width, height, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		c.Logger.Info("starting interface", "width", width, "height", height)
		if width < minWidth {
			c.Logger.Warn("terminal narrower than layout", "width", width, "min", minWidth)
		}
	}

	ctx := cmd.Context()
	c.Start(ctx)

	app := tui.New(ctx, c)
	if err := app.Run(ctx); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
