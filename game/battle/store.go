package battle

import (
	"context"

	"github.com/fitquest/fitquest/model"
)

// RNG is the randomness source for accuracy rolls and monster skill
// selection. *math/rand.Rand satisfies it; tests inject fixed sequences.
type RNG interface {
	Float64() float64
}

// ActiveEffect is a live turn-counted modifier. ID is zero until the
// effect has been persisted.
type ActiveEffect struct {
	ID     int64
	Type   string
	Value  int
	Target string
	Turns  int
}

// TurnOutcome carries every mutation of one turn request. The store
// applies it atomically: a failed turn leaves no trace.
type TurnOutcome struct {
	Battle   *model.Battle
	Attacker *Fighter
	Defender *Fighter

	DeletedEffects []int64
	UpdatedEffects []*ActiveEffect
	NewEffects     []*ActiveEffect
}

// Store loads and persists battle state.
type Store interface {
	Battle(ctx context.Context, id int64) (*model.Battle, error)
	Fighters(ctx context.Context, b *model.Battle) (attacker, defender *Fighter, err error)
	ActiveEffects(ctx context.Context, battleID int64) ([]*ActiveEffect, error)
	CharacterOwnsSkill(ctx context.Context, characterID, skillID int64) (bool, error)
	SaveTurn(ctx context.Context, out *TurnOutcome) error
}

// Catalog provides read access to the skill catalog.
type Catalog interface {
	Skill(ctx context.Context, id int64) (*model.Skill, error)
	SkillEffects(ctx context.Context, skillID int64) ([]model.SkillEffect, error)
	Skills(ctx context.Context) ([]model.Skill, error)
}
