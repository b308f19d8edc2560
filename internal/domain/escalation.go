package domain

// Level is the escalation step taken when a session's prompt window opens.
type Level int

const (
	// LevelPrompt is the first, low-severity check on the owner.
	LevelPrompt Level = iota
	// LevelReminder repeats the check with medium severity.
	LevelReminder
	// LevelAlert prompts the owner and alerts every supervisor.
	LevelAlert
	// LevelUnsupervised is the top level for a session nobody watches.
	LevelUnsupervised
)

func (l Level) String() string {
	switch l {
	case LevelPrompt:
		return "prompt"
	case LevelReminder:
		return "reminder"
	case LevelAlert:
		return "alert"
	case LevelUnsupervised:
		return "unsupervised"
	default:
		return "unknown"
	}
}

// LevelFor depends only on the missed count and supervisor count.
func LevelFor(missed uint, supervisors int, threshold uint) Level {
	switch {
	case missed == 0:
		return LevelPrompt
	case missed < threshold:
		return LevelReminder
	case supervisors > 0:
		return LevelAlert
	default:
		return LevelUnsupervised
	}
}
