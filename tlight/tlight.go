// Package tlight implements the traffic signal controller: phase clocks
// that gate grid cells between Free and Banned state each tick.
package tlight

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/LdDl/micro-traffic-sim-core-sub000/grid"
)

// ID identifies a TrafficLight.
type ID uint64

// SignalType is a single phase's displayed signal for one group.
type SignalType int8

const (
	Red SignalType = iota
	Yellow
	RedYellow
	Blinking
	Green
	GreenPriority
	GreenRight
	NoSignal
)

// SignalTypeFromString parses a SignalType by name (case-insensitive),
// matching the textual configuration format the original source's
// SignalType::from_str accepts.
func SignalTypeFromString(raw string) (SignalType, error) {
	switch strings.ToLower(raw) {
	case "red":
		return Red, nil
	case "yellow":
		return Yellow, nil
	case "redyellow", "red_yellow":
		return RedYellow, nil
	case "blinking":
		return Blinking, nil
	case "green":
		return Green, nil
	case "greenpriority", "green_priority":
		return GreenPriority, nil
	case "greenright", "green_right":
		return GreenRight, nil
	case "nosignal", "no_signal":
		return NoSignal, nil
	default:
		return 0, errors.Errorf("tlight: unknown signal type %q", raw)
	}
}

// Bans reports whether this signal gates its cells to Banned.
func (s SignalType) Bans() bool {
	switch s {
	case Red, Yellow, RedYellow, Blinking:
		return true
	default:
		return false
	}
}

// Group is a set of cells gated together, with one SignalType per phase.
type Group struct {
	Cells   []grid.CellID
	Signals []SignalType
}

// Light is a traffic light: a phase clock plus the groups of cells it gates.
type Light struct {
	ID              ID
	PhaseDurations  []int
	Groups          []Group

	activePhase int
	timer       int
}

// Builder constructs a Light fluently.
type Builder struct {
	l Light
}

func New(id ID) *Builder {
	return &Builder{l: Light{ID: id}}
}

func (b *Builder) WithPhaseDurations(d []int) *Builder {
	b.l.PhaseDurations = append([]int(nil), d...)
	return b
}

func (b *Builder) WithGroup(g Group) *Builder {
	b.l.Groups = append(b.l.Groups, g)
	return b
}

// Build validates that every group's signal sequence matches the phase
// count, per the mismatched-length ConfigurationError taxonomy entry.
func (b *Builder) Build() (*Light, error) {
	if len(b.l.PhaseDurations) == 0 {
		return nil, errors.New("tlight: phase_durations must be non-empty")
	}
	for i, g := range b.l.Groups {
		if len(g.Signals) != len(b.l.PhaseDurations) {
			return nil, errors.Errorf(
				"tlight: group %d has %d signals but light has %d phases",
				i, len(g.Signals), len(b.l.PhaseDurations))
		}
	}
	l := b.l
	return &l, nil
}

// ActivePhase returns the current phase index.
func (l *Light) ActivePhase() int { return l.activePhase }

// Timer returns the current phase's elapsed ticks.
func (l *Light) Timer() int { return l.timer }

// Reset rewinds the light to phase 0, timer 0.
func (l *Light) Reset() {
	l.activePhase = 0
	l.timer = 0
}

// Step advances the phase clock by one tick and applies the resulting
// Free/Banned state to every cell in every group via roads.
func (l *Light) Step(roads *grid.Roads) error {
	l.timer++
	if l.timer >= l.PhaseDurations[l.activePhase] {
		l.activePhase = (l.activePhase + 1) % len(l.PhaseDurations)
		l.timer = 0
	}
	for _, g := range l.Groups {
		signal := g.Signals[l.activePhase]
		state := grid.Free
		if signal.Bans() {
			state = grid.Banned
		}
		for _, cellID := range g.Cells {
			if err := roads.SetState(cellID, state); err != nil {
				return errors.Wrapf(err, "tlight: light %d group cell", l.ID)
			}
		}
	}
	return nil
}
