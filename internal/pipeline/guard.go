package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/mdombrov-33/go-promptguard/detector"
)

// GuardMode controls what happens to connection text flagged as a prompt
// injection attempt.
type GuardMode string

const (
	GuardOff     GuardMode = "off"
	GuardWarn    GuardMode = "warn"
	GuardExclude GuardMode = "exclude"
)

// ParseGuardMode validates s; empty means GuardWarn.
func ParseGuardMode(s string) (GuardMode, error) {
	switch m := GuardMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return GuardWarn, nil
	case GuardOff, GuardWarn, GuardExclude:
		return m, nil
	default:
		return "", fmt.Errorf("unknown prompt guard mode %q", s)
	}
}

// Guard flags note text that tries to steer the model.
type Guard struct {
	mode   GuardMode
	unsafe func(ctx context.Context, text string) bool
}

// guardInputLimit bounds how much of each note the detector inspects.
const guardInputLimit = 20000

// NewGuard builds a Guard on the go-promptguard multi-detector.
func NewGuard(mode GuardMode) *Guard {
	d := detector.New(
		detector.WithThreshold(0.6),
		detector.WithAllDetectors(),
		detector.WithMaxInputLength(guardInputLimit),
	)
	return &Guard{
		mode: mode,
		unsafe: func(ctx context.Context, text string) bool {
			if text == "" {
				return false
			}
			if len(text) > guardInputLimit {
				text = strings.ToValidUTF8(text[:guardInputLimit], "")
			}
			return !d.Detect(ctx, text).Safe
		},
	}
}

// Mode returns the configured mode.
func (g *Guard) Mode() GuardMode {
	if g == nil {
		return GuardOff
	}
	return g.mode
}

// Flagged reports whether text looks like an injection attempt. It is always
// false when the guard is off.
func (g *Guard) Flagged(ctx context.Context, text string) bool {
	if g.Mode() == GuardOff {
		return false
	}
	return g.unsafe(ctx, text)
}
