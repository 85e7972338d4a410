// Package battle resolves combat turns for PvP and PvE battles.
//
// A turn request runs through a fixed pipeline: load battle and fighter
// snapshots, countdown of active effects, the acting fighter's action
// (skill, guard or forfeit), a monster reply for PvE, then outcome
// resolution. All mutations of the request are persisted in a single
// atomic save at the end.
package battle

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/fitquest/fitquest/game/loot"
	"github.com/fitquest/fitquest/game/progression"
	"github.com/fitquest/fitquest/model"
)

const (
	// DefaultGuardManaGain is the mana restored by a guard action.
	DefaultGuardManaGain = 20

	// Using a skill matching the fighter's element boosts its damage.
	sameElementBonus = 1.2

	// Monster AI prefers skills priced around 50 + 10 per level, and
	// triples the weight of skills matching its element.
	monsterSkillBaseCost     = 50
	monsterSkillCostPerLevel = 10
	monsterElementWeight     = 3
)

// Engine resolves battle turns on top of a storage and catalog collaborator.
type Engine struct {
	store   Store
	catalog Catalog
	logger  *zap.Logger
	rng     RNG // injectable for testing

	// GuardManaGain is the mana restored by a guard action.
	GuardManaGain int
}

// NewEngine creates an engine with a time-seeded RNG.
func NewEngine(store Store, catalog Catalog, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:         store,
		catalog:       catalog,
		logger:        logger,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		GuardManaGain: DefaultGuardManaGain,
	}
}

// SetRNG replaces the randomness source. Tests use this to force
// accuracy rolls and monster skill choices.
func (e *Engine) SetRNG(rng RNG) { e.rng = rng }

// UseSkill resolves a turn in which the acting character uses a skill.
func (e *Engine) UseSkill(ctx context.Context, battleID, userID, skillID int64) (*TurnResult, error) {
	skill, err := e.catalog.Skill(ctx, skillID)
	if err != nil {
		return nil, err
	}

	tc, err := e.prepare(ctx, battleID, userID)
	if err != nil {
		return nil, err
	}

	owned, err := e.store.CharacterOwnsSkill(ctx, tc.Active.CharacterID, skill.ID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrSkillNotOwned
	}

	effects, err := e.catalog.SkillEffects(ctx, skill.ID)
	if err != nil {
		return nil, err
	}

	if err := tc.beginTurn(); err != nil {
		return nil, err
	}
	if err := e.useSkill(tc, skill, effects); err != nil {
		return nil, err
	}
	if err := e.monsterReply(ctx, tc); err != nil {
		return nil, err
	}
	return e.finish(ctx, tc)
}

// Guard resolves a turn in which the acting character holds position to
// recover mana.
func (e *Engine) Guard(ctx context.Context, battleID, userID int64) (*TurnResult, error) {
	tc, err := e.prepare(ctx, battleID, userID)
	if err != nil {
		return nil, err
	}
	if err := tc.beginTurn(); err != nil {
		return nil, err
	}

	active := tc.Active
	oldMana := active.Mana
	newMana := oldMana + e.GuardManaGain
	if newMana > active.MaxMana {
		newMana = active.MaxMana
	}
	active.Mana = newMana
	tc.Battle.Turns++
	tc.narrate("%s holds position. [+%d Mana]", active.Name, newMana-oldMana)

	if err := e.monsterReply(ctx, tc); err != nil {
		return nil, err
	}
	return e.finish(ctx, tc)
}

// Forfeit resolves a turn in which the acting character gives up. The
// turn counter does not advance and a monster gets no reply; outcome
// resolution settles the loss within this call.
func (e *Engine) Forfeit(ctx context.Context, battleID, userID int64) (*TurnResult, error) {
	tc, err := e.prepare(ctx, battleID, userID)
	if err != nil {
		return nil, err
	}
	if err := tc.beginTurn(); err != nil {
		return nil, err
	}

	tc.narrate("%s has forfeited the battle.", tc.Active.Name)
	tc.Active.Forfeit()

	return e.finish(ctx, tc)
}

// prepare loads everything a turn needs and verifies it is the caller's
// fighter's turn.
func (e *Engine) prepare(ctx context.Context, battleID, userID int64) (*TurnContext, error) {
	b, err := e.store.Battle(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if b.Finished {
		return nil, ErrAlreadyFinished
	}

	attacker, defender, err := e.store.Fighters(ctx, b)
	if err != nil {
		return nil, err
	}
	effects, err := e.store.ActiveEffects(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	tc := newTurnContext(b, attacker, defender, effects)
	if tc.Active.UserID == 0 || tc.Active.UserID != userID {
		return nil, ErrNotYourTurn
	}
	return tc, nil
}

// useSkill executes a skill for the current active fighter. A fighter
// whose health already ran out skips its action silently. Called both
// for the player's action and the monster reply.
func (e *Engine) useSkill(tc *TurnContext, skill *model.Skill, effects []model.SkillEffect) error {
	active, passive := tc.Active, tc.Passive
	if active.Health <= 0 {
		return nil
	}

	if active.HasMana {
		if active.Mana < skill.ManaCost {
			return &InsufficientManaError{Skill: skill.Name, Current: active.Mana, Cost: skill.ManaCost}
		}
		active.Mana -= skill.ManaCost
	}
	tc.Battle.Turns++

	tc.narrate("%s used %s.", active.Name, skill.Name)
	if active.HasMana {
		tc.narrateAppend(" [-%d Mana]", skill.ManaCost)
	}

	if active.Element == skill.Element {
		tc.DamageMultiplier *= sameElementBonus
	}

	if e.rng.Float64()*100 >= float64(skill.Accuracy)*tc.AccuracyMultiplier {
		tc.narrate("The skill missed.")
		return nil
	}

	damage := int(math.Floor(float64(skill.Damage+active.Power) * tc.DamageMultiplier))
	passive.Health -= float64(damage)
	if damage > 0 {
		tc.narrate("Dealt %d damage to %s!", damage, passive.Name)
	}

	for _, se := range effects {
		if err := tc.applySkillEffect(se); err != nil {
			return err
		}
	}
	return nil
}

// monsterReply runs the monster's counter-turn for PvE battles. The
// monster takes its own effect countdown, then uses one skill picked by
// weighted draw over the catalog. A dead monster still burns the
// sub-turn (its countdown runs) but takes no action.
func (e *Engine) monsterReply(ctx context.Context, tc *TurnContext) error {
	if !tc.Battle.PvE() {
		return nil
	}
	monster := tc.Defender

	tc.Active, tc.Passive = tc.Passive, tc.Active
	if err := tc.beginTurn(); err != nil {
		return err
	}

	skill, err := e.pickMonsterSkill(ctx, monster)
	if err != nil {
		return err
	}
	effects, err := e.catalog.SkillEffects(ctx, skill.ID)
	if err != nil {
		return err
	}
	return e.useSkill(tc, skill, effects)
}

// pickMonsterSkill draws one skill from the catalog, weighted towards
// skills priced near the monster's level budget and matching its element.
func (e *Engine) pickMonsterSkill(ctx context.Context, monster *Fighter) (*model.Skill, error) {
	skills, err := e.catalog.Skills(ctx)
	if err != nil {
		return nil, err
	}

	targetCost := monsterSkillBaseCost + monster.Level*monsterSkillCostPerLevel
	var table loot.Table[*model.Skill]
	for i := range skills {
		s := &skills[i]
		weight := 1 / float64(abs(s.PurchaseCost-targetCost)+1)
		if s.Element == monster.Element {
			weight *= monsterElementWeight
		}
		table.Add(s, weight)
	}

	skill, ok := table.Pick(e.rng)
	if !ok {
		return nil, ErrNotFound
	}
	return skill, nil
}

// finish resolves the battle outcome, persists the whole turn atomically
// and builds the caller response.
func (e *Engine) finish(ctx context.Context, tc *TurnContext) (*TurnResult, error) {
	e.resolveOutcome(tc)
	tc.finalize()

	if err := e.store.SaveTurn(ctx, tc.outcome()); err != nil {
		return nil, err
	}

	e.logger.Info("battle turn resolved",
		zap.Int64("battle_id", tc.Battle.ID),
		zap.Int("turns", tc.Battle.Turns),
		zap.Bool("finished", tc.Battle.Finished))

	return &TurnResult{
		Logs:     tc.Logs,
		Attacker: tc.Attacker.State(),
		Defender: tc.Defender.State(),
	}, nil
}

// resolveOutcome settles the battle after the action(s): records the
// monster's remaining health, determines loser/winner or a draw, awards
// exp and clamps the loser's health.
func (e *Engine) resolveOutcome(tc *TurnContext) {
	active, passive := tc.Active, tc.Passive
	b := tc.Battle

	if tc.Defender.IsMonster() {
		h := int(math.Max(tc.Defender.Health, 0))
		b.MonsterHealth = &h
	}

	var loser *Fighter
	draw := false
	if active.Health <= 0 {
		loser = active
	}
	if passive.Health <= 0 {
		if loser != nil {
			loser = nil
			draw = true
		} else {
			loser = passive
		}
	}

	switch {
	case loser != nil:
		winner := active
		if loser == active {
			winner = passive
		}
		loser.Health = 0

		loserExp := loser.Exp
		if !loser.HasExp {
			loserExp = progression.MaxExp(loser.Level)
		}

		tc.narrate("%s wins!", winner.Name)
		if winner.HasExp {
			earnings := int(math.Floor(20 + math.Sqrt(float64(loserExp))))
			winner.Exp += earnings
			tc.narrate("[+%d EXP]", earnings)
		}

		if winner.CharacterID != 0 {
			id := winner.CharacterID
			b.WinnerID = &id
		}
		b.Finished = true

	case draw:
		active.Health = 0
		passive.Health = 0
		tc.narrate("Both characters have lost all their health. It's a draw!")
		b.Finished = true
	}
}
