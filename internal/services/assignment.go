package services

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"secretsanta/internal/models"
)

var (
	ErrAlreadyClaimed  = errors.New("you have already drawn")
	ErrNotAParticipant = errors.New("your name is not on the participant list")
	ErrPoolExhausted   = errors.New("there is no one left for you to draw")
)

// AlreadyClaimedError is returned when a claimant asks again. It carries the
// recipient they got the first time and matches ErrAlreadyClaimed.
type AlreadyClaimedError struct {
	Claimant  string
	Recipient string
}

func (e *AlreadyClaimedError) Error() string {
	return ErrAlreadyClaimed.Error()
}

func (e *AlreadyClaimedError) Is(target error) bool {
	return target == ErrAlreadyClaimed
}

// Picker chooses an index in [0, n). n is always at least 1.
type Picker interface {
	Intn(n int) int
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(n int) int

func (f PickerFunc) Intn(n int) int {
	return f(n)
}

// RandomPicker draws uniformly from the auto-seeded math/rand/v2 source.
var RandomPicker Picker = PickerFunc(rand.IntN)

// EligiblePool returns, in participant order, everyone who has not been drawn
// yet and is not the claimant.
func EligiblePool(d *models.Draw, claimant string) []string {
	drawn := make(map[string]bool, len(d.Assignments))
	for _, recipient := range d.Assignments {
		drawn[recipient] = true
	}

	pool := make([]string, 0, len(d.Participants))
	for _, p := range d.Participants {
		if p != claimant && !drawn[p] {
			pool = append(pool, p)
		}
	}
	return pool
}

// Claim draws a recipient for name and returns a copy of d with the new
// assignment recorded. d itself is left untouched.
//
// Checks run in a fixed order: a repeat claim wins over everything else, then
// membership, then the pool. A late claimant can find the pool empty even
// though nobody drew them; that outcome is ErrPoolExhausted.
func Claim(d *models.Draw, name string, picker Picker) (*models.Draw, string, error) {
	claimant := strings.TrimSpace(name)

	if recipient, ok := d.Assignments[claimant]; ok {
		return nil, "", &AlreadyClaimedError{Claimant: claimant, Recipient: recipient}
	}
	if !d.HasParticipant(claimant) {
		return nil, "", ErrNotAParticipant
	}

	pool := EligiblePool(d, claimant)
	if len(pool) == 0 {
		return nil, "", ErrPoolExhausted
	}

	if picker == nil {
		picker = RandomPicker
	}
	idx := picker.Intn(len(pool))
	if idx < 0 || idx >= len(pool) {
		return nil, "", fmt.Errorf("picker returned %d for a pool of %d", idx, len(pool))
	}
	recipient := pool[idx]

	updated := d.Clone()
	updated.Assignments[claimant] = recipient
	return updated, recipient, nil
}
