package models

import (
	"errors"
	"fmt"
	"strings"
)

// MinParticipants is the smallest group a draw can be created for.
const MinParticipants = 2

var (
	ErrTooFewParticipants   = errors.New("at least 2 participants are required")
	ErrBlankParticipant     = errors.New("participant names cannot be blank")
	ErrDuplicateParticipant = errors.New("participant names must be unique")
	ErrCorruptDraw          = errors.New("draw record violates its invariants")
)

// Draw is one secret santa event.
// Participants is fixed at creation. Assignments maps a claimant to the
// recipient they drew and only ever grows.
// The JSON names match the records written by the first version of the app.
type Draw struct {
	ID           string            `json:"id"`
	Participants []string          `json:"participantes"`
	Assignments  map[string]string `json:"sorteados"`
	CreatedAt    int64             `json:"criadoEm"` // epoch milliseconds
}

// NewDraw builds an empty draw for an already cleaned participant list.
func NewDraw(id string, participants []string, createdAt int64) (*Draw, error) {
	if err := validateParticipants(participants); err != nil {
		return nil, err
	}

	return &Draw{
		ID:           id,
		Participants: append([]string(nil), participants...),
		Assignments:  make(map[string]string),
		CreatedAt:    createdAt,
	}, nil
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (d *Draw) Clone() *Draw {
	if d == nil {
		return nil
	}
	clone := &Draw{
		ID:           d.ID,
		Participants: append([]string(nil), d.Participants...),
		Assignments:  make(map[string]string, len(d.Assignments)),
		CreatedAt:    d.CreatedAt,
	}
	for claimant, recipient := range d.Assignments {
		clone.Assignments[claimant] = recipient
	}
	return clone
}

// HasParticipant reports whether name is on the participant list (exact match).
func (d *Draw) HasParticipant(name string) bool {
	for _, p := range d.Participants {
		if p == name {
			return true
		}
	}
	return false
}

// ClaimedCount is the number of participants who already drew.
func (d *Draw) ClaimedCount() int {
	return len(d.Assignments)
}

// TotalCount is the number of participants in the draw.
func (d *Draw) TotalCount() int {
	return len(d.Participants)
}

// Complete reports whether every participant has drawn.
func (d *Draw) Complete() bool {
	return d.ClaimedCount() == d.TotalCount()
}

// Claimants returns the names that already drew, in participant order.
func (d *Draw) Claimants() []string {
	claimants := make([]string, 0, len(d.Assignments))
	for _, p := range d.Participants {
		if _, ok := d.Assignments[p]; ok {
			claimants = append(claimants, p)
		}
	}
	return claimants
}

// Validate checks a draw restored from storage.
func (d *Draw) Validate() error {
	if err := validateParticipants(d.Participants); err != nil {
		return err
	}
	if len(d.Assignments) > len(d.Participants) {
		return fmt.Errorf("%w: %d assignments for %d participants", ErrCorruptDraw, len(d.Assignments), len(d.Participants))
	}

	drawn := make(map[string]bool, len(d.Assignments))
	for claimant, recipient := range d.Assignments {
		if !d.HasParticipant(claimant) || !d.HasParticipant(recipient) {
			return fmt.Errorf("%w: unknown name in %q -> %q", ErrCorruptDraw, claimant, recipient)
		}
		if claimant == recipient {
			return fmt.Errorf("%w: %q drew themselves", ErrCorruptDraw, claimant)
		}
		if drawn[recipient] {
			return fmt.Errorf("%w: %q drawn twice", ErrCorruptDraw, recipient)
		}
		drawn[recipient] = true
	}
	return nil
}

func validateParticipants(participants []string) error {
	if len(participants) < MinParticipants {
		return ErrTooFewParticipants
	}

	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if strings.TrimSpace(p) == "" {
			return ErrBlankParticipant
		}
		if seen[p] {
			return ErrDuplicateParticipant
		}
		seen[p] = true
	}
	return nil
}

// CleanParticipants trims names, drops blanks and removes repeats, keeping the
// first occurrence of each name.
func CleanParticipants(raw []string) []string {
	cleaned := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, p := range raw {
		name := strings.TrimSpace(p)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		cleaned = append(cleaned, name)
	}
	return cleaned
}
