package fakeapi

import "fmt"

// The real decomposition is done by a language model behind the backend.
// These are the deterministic fallbacks the backend uses when no model is
// configured.

func breakdownTemplate(title string) []string {
	return []string{
		"Plan your approach for: " + truncate(title, 50),
		"Gather all necessary materials and resources",
		"Set up your workspace and environment",
		"Start with the first manageable piece",
		"Work through each section systematically",
		"Review progress and adjust if needed",
		"Complete the final steps",
		"Review and celebrate your completion",
	}
}

type subStepTemplate struct {
	content   string
	rationale string
}

func tooBigTemplate(content string) []subStepTemplate {
	return []subStepTemplate{
		{"Begin with the easiest part of: " + truncate(content, 30), "Starting small makes it easier to begin"},
		{"Take the next small piece", "Momentum builds one piece at a time"},
		{"Finish the remaining part", ""},
	}
}

const (
	moodStepContent   = "Take three deep breaths and notice how you're feeling right now"
	moodStepRationale = "Starting with breathing helps ground you in the present moment"
	moodTaskTitle     = "Gentle: mood-driven micro-step"
)

// celebrationMessage rotates through the fallback messages by how many
// tasks the user has finished.
func celebrationMessage(title string, completed int) string {
	t := truncate(title, 30)
	messages := []string{
		fmt.Sprintf("You did it! Completing '%s' is a real accomplishment. 🎉", t),
		fmt.Sprintf("Amazing work on '%s'! Every step forward matters. ✨", t),
		fmt.Sprintf("Celebrate this win! You tackled '%s' like a champion. 🌟", t),
		fmt.Sprintf("Way to go! '%s' is done and you should be proud. 💪", t),
	}
	return messages[completed%len(messages)]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
