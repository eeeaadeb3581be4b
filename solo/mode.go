package solo

import "github.com/pkg/errors"

// Mode decides what triggers a production cycle.
type Mode int

const (
	// ModeInstant produces a block whenever an executable tx enters the pool.
	ModeInstant Mode = iota
	// ModeInterval produces a block, possibly empty, on a fixed wall clock interval.
	ModeInterval
	// ModeManual produces blocks only on request.
	ModeManual
)

func (m Mode) String() string {
	switch m {
	case ModeInstant:
		return "instant"
	case ModeInterval:
		return "interval"
	case ModeManual:
		return "manual"
	}
	return "unknown"
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{ModeInstant, ModeInterval, ModeManual} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, errors.Errorf("unknown mining mode %q", s)
}
