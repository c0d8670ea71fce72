package model

type Priority int32

const (
	PriorityLow    Priority = 10
	PriorityNormal Priority = 20
	PriorityHigh   Priority = 30
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "normal"
	}
}

// ParsePriority maps a wire-level priority label to its internal level.
// Unknown labels degrade to normal rather than failing the message.
func ParsePriority(s string) Priority {
	switch s {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	default:
		return PriorityNormal
	}
}
