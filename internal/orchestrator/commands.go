package orchestrator

import "strings"

// Command is a recognized conversational keyword, checked before any
// retrieval happens.
type Command int

const (
	CmdNone Command = iota
	CmdReset
	CmdPause
	CmdResume
	CmdNextStep
	CmdPrevStep
	CmdWhatStep
)

// classify maps normalized inbound text to a command. Phrases are matched
// as substrings; single words must appear as whole words so text like
// "abandoned" never reads as "done".
func classify(text string) Command {
	lower := strings.ToLower(strings.TrimSpace(text))

	switch {
	case strings.Contains(lower, "start over"), strings.Contains(lower, "reset"):
		return CmdReset
	case strings.Contains(lower, "next step"):
		return CmdNextStep
	case strings.Contains(lower, "previous step"):
		return CmdPrevStep
	case strings.Contains(lower, "what step"):
		return CmdWhatStep
	case lower == "resume":
		return CmdResume
	case hasWord(lower, "done"), hasWord(lower, "resolved"):
		return CmdPause
	}
	return CmdNone
}

func hasWord(text, word string) bool {
	for _, w := range strings.Fields(text) {
		if strings.Trim(w, ".,!?:;") == word {
			return true
		}
	}
	return false
}
