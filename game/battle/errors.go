package battle

import (
	"errors"
	"fmt"
)

var (
	// ErrNotYourTurn is returned when the acting user does not own the
	// fighter whose turn it is.
	ErrNotYourTurn = errors.New("battle: not your turn")

	// ErrAlreadyFinished is returned for any action on a finished battle.
	ErrAlreadyFinished = errors.New("battle: battle has already ended")

	// ErrSkillNotOwned is returned when the acting character has not
	// purchased the requested skill.
	ErrSkillNotOwned = errors.New("battle: skill not owned")

	// ErrNotFound is returned when a battle, skill or fighter row is missing.
	ErrNotFound = errors.New("battle: not found")
)

// InsufficientManaError rejects a skill the fighter cannot afford. The
// turn is aborted before any state changes.
type InsufficientManaError struct {
	Skill   string
	Current int
	Cost    int
}

func (e *InsufficientManaError) Error() string {
	return fmt.Sprintf("battle: not enough mana for %s: have %d, need %d", e.Skill, e.Current, e.Cost)
}
