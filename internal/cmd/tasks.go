package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Iron-Ham/gentle/internal/task"
	"github.com/Iron-Ham/gentle/internal/util"
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"ls"},
	Short:   "List your tasks, newest first",
	Args:    cobra.NoArgs,
	RunE:    runTasks,
}

var showCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task with its steps and progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task and its steps",
	Long: `Delete a task and all of its steps. This cannot be undone.

Without --yes the command asks for confirmation first.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

var deleteYes bool

func init() {
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Delete without asking")
}

func runTasks(cmd *cobra.Command, args []string) error {
	c, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx := cmd.Context()
	if err := requireSession(ctx, c); err != nil {
		return err
	}

	tasks, err := c.API.ListTasks(ctx)
	if err != nil {
		return failure(c, "list tasks", err)
	}

	out := cmd.OutOrStdout()
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks yet.")
		fmt.Fprintln(out, "Run 'gentle' to break something down.")
		return nil
	}
	for _, t := range tasks {
		fmt.Fprintf(out, "%-36s  %-8s  %s  %s\n",
			t.ID, t.State.Label(), t.CreatedAt.Local().Format("Jan 02 15:04"), util.Truncate(t.Title, 60))
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	c, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx := cmd.Context()
	if err := requireSession(ctx, c); err != nil {
		return err
	}

	detail, err := c.API.GetTask(ctx, args[0])
	if err != nil {
		return failure(c, "show task", err)
	}
	printDetail(cmd.OutOrStdout(), detail)
	return nil
}

// printDetail renders a task the way the detail screen does, without styling.
func printDetail(out io.Writer, detail task.Detail) {
	fmt.Fprintf(out, "%s [%s]\n", detail.Title, detail.State.Label())

	done := 0
	for _, s := range detail.Steps {
		if s.Done() {
			done++
		}
	}
	fmt.Fprintf(out, "%d of %s done (%d%%)\n", done, util.Plural(len(detail.Steps), "step"), detail.Progress())

	next, hasNext := detail.NextStep()
	if hasNext {
		fmt.Fprintf(out, "Next: %s\n", next.Content)
	}
	fmt.Fprintln(out)

	for i, s := range detail.Steps {
		mark := "○"
		if s.Done() {
			mark = "✓"
		}
		fmt.Fprintf(out, "%s %d. %s\n", mark, i+1, s.Content)
		fmt.Fprintf(out, "     %s\n", s.ID)
	}
}

func runDelete(cmd *cobra.Command, args []string) error {
	c, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx := cmd.Context()
	if err := requireSession(ctx, c); err != nil {
		return err
	}

	taskID := args[0]
	out := cmd.OutOrStdout()
	if !deleteYes {
		detail, err := c.API.GetTask(ctx, taskID)
		if err != nil {
			return failure(c, "delete task", err)
		}
		if !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Delete %q? [y/N] ", detail.Title)) {
			fmt.Fprintln(out, "Kept.")
			return nil
		}
	}

	if err := c.API.DeleteTask(ctx, taskID); err != nil {
		return failure(c, "delete task", err)
	}
	c.Logger.WithTask(taskID).Info("task deleted")
	fmt.Fprintln(out, "Deleted.")
	return nil
}

// confirm asks a yes/no question on in and reports whether the answer was yes.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	answer, _ := readLine(in)
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// readLine reads one trimmed line from in.
func readLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	line = strings.TrimSpace(line)
	if err == io.EOF && line != "" {
		err = nil
	}
	return line, err
}
