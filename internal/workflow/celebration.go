package workflow

import "math/rand/v2"

// Cheer is the encouragement shown on the celebration screen.
type Cheer struct {
	Emoji    string
	Title    string
	Subtitle string
	Quote    string
}

var cheers = []Cheer{
	{"🎉", "Amazing work!", "You crushed it!", "Every accomplishment starts with the decision to try."},
	{"🌟", "You're a star!", "Shining bright today!", "Progress is impossible without change, and you're proof of that."},
	{"⚡", "Incredible!", "You're unstoppable!", "Small steps in the right direction can turn out to be the biggest step of your life."},
	{"👑", "You're royalty!", "Absolutely magnificent!", "The secret of getting ahead is getting started. You did it!"},
	{"🎁", "What a gift!", "You gave yourself progress!", "Self-care is giving yourself permission to pause and celebrate your wins."},
	{"💪", "So proud of you!", "Your strength is showing!", "You are braver than you believe, stronger than you seem, and more capable than you imagine."},
}

// Cheers returns every cheer.
func Cheers() []Cheer {
	return append([]Cheer(nil), cheers...)
}

// Celebration is the view model shown after a step finished a task, or when
// the user opens the celebration screen directly.
type Celebration struct {
	TaskID    string
	Completed bool
	Cheer     Cheer
}

// NewCelebration builds the celebration for a celebrate route with a random
// cheer.
func NewCelebration(r Route) Celebration {
	return NewCelebrationWith(r, rand.IntN)
}

// NewCelebrationWith is NewCelebration with an explicit index picker.
func NewCelebrationWith(r Route, pick func(n int) int) Celebration {
	return Celebration{
		TaskID:    r.TaskID,
		Completed: r.TaskCompleted,
		Cheer:     cheers[pick(len(cheers))],
	}
}

// NextRoute is where "continue" leads: the task list when the task is
// finished or unknown, otherwise back into the task.
func (c Celebration) NextRoute() Route {
	if c.Completed || c.TaskID == "" {
		return TaskListRoute()
	}
	return TaskDetailRoute(c.TaskID)
}
