package cmd

import (
	"fmt"

	"github.com/Iron-Ham/gentle/internal/task"
	"github.com/Iron-Ham/gentle/internal/workflow"
	"github.com/spf13/cobra"
)

var completeCmd = &cobra.Command{
	Use:   "complete <step-id>",
	Short: "Mark a step as done",
	Long: `Mark a step as done. With --task, the task's progress is shown
afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: runComplete,
}

var tooBigCmd = &cobra.Command{
	Use:   "too-big <step-id>",
	Short: "Split a step that feels too big into smaller ones",
	Args:  cobra.ExactArgs(1),
	RunE:  runTooBig,
}

var checkinCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Tell gentle how you feel and get one tiny step",
	Long: `Record how you feel right now and get one tiny, doable step back.

Emotions: calm, anxious, tired, energized, low, mixed.
Energy runs from 0 (drained) to 5 (buzzing).`,
	Args: cobra.NoArgs,
	RunE: runCheckin,
}

var (
	completeTaskID string
	checkinEmotion string
	checkinEnergy  int
	checkinNote    string
)

func init() {
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(tooBigCmd)
	rootCmd.AddCommand(checkinCmd)

	completeCmd.Flags().StringVar(&completeTaskID, "task", "", "Task the step belongs to, to show its progress")
	checkinCmd.Flags().StringVar(&checkinEmotion, "emotion", "", "How you feel (required)")
	checkinCmd.Flags().IntVar(&checkinEnergy, "energy", 2, "Energy level, 0 to 5")
	checkinCmd.Flags().StringVar(&checkinNote, "note", "", "Anything else worth saying")
}

func runComplete(cmd *cobra.Command, args []string) error {
	c, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx := cmd.Context()
	if err := requireSession(ctx, c); err != nil {
		return err
	}

	result, err := workflow.NewStepCompleter(c.Deps()).Complete(ctx, args[0], completeTaskID)
	if err != nil {
		return failure(c, "complete step", err)
	}

	out := cmd.OutOrStdout()
	if result.TaskCompleted {
		cheer := workflow.NewCelebration(workflow.CelebrateRoute(completeTaskID, true)).Cheer
		fmt.Fprintf(out, "%s %s %s\n", cheer.Emoji, cheer.Title, cheer.Subtitle)
		fmt.Fprintln(out, "You finished the whole task.")
		return nil
	}
	fmt.Fprintln(out, "✓ Step done.")

	if completeTaskID != "" {
		detail, err := c.API.GetTask(ctx, completeTaskID)
		if err != nil {
			return failure(c, "show task", err)
		}
		fmt.Fprintf(out, "%d%% done\n", detail.Progress())
		if next, ok := detail.NextStep(); ok {
			fmt.Fprintf(out, "Next: %s\n", next.Content)
		}
	}
	return nil
}

func runTooBig(cmd *cobra.Command, args []string) error {
	c, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx := cmd.Context()
	if err := requireSession(ctx, c); err != nil {
		return err
	}

	breaker := workflow.NewSubStepBreaker(c.Deps(), workflow.NewSubStepMap())
	subSteps, err := breaker.Expand(ctx, args[0])
	if err != nil {
		return failure(c, "split step", err)
	}

	out := cmd.OutOrStdout()
	if len(subSteps) == 0 {
		fmt.Fprintln(out, "No smaller steps came back. Try the step as it is, one minute at a time.")
		return nil
	}
	fmt.Fprintln(out, "Smaller steps:")
	for i, s := range subSteps {
		fmt.Fprintf(out, "  %d. %s\n", i+1, s.Content)
		if s.Rationale != "" {
			fmt.Fprintf(out, "     %s\n", s.Rationale)
		}
	}
	return nil
}

func runCheckin(cmd *cobra.Command, args []string) error {
	mood := task.Mood{Emotion: task.Emotion(checkinEmotion), Energy: checkinEnergy}
	if err := mood.Validate(); err != nil {
		return err
	}

	c, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx := cmd.Context()
	if err := requireSession(ctx, c); err != nil {
		return err
	}

	result, err := c.API.MoodCheckin(ctx, mood, checkinNote)
	if err != nil {
		return failure(c, "check in", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Feeling %s, energy %s.\n", mood.Emotion.Label(), task.EnergyLabel(mood.Energy))
	fmt.Fprintf(out, "One tiny step: %s\n", result.Content)
	if result.Rationale != "" {
		fmt.Fprintf(out, "  %s\n", result.Rationale)
	}
	return nil
}
