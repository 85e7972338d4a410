package battle

import (
	"fmt"
	"math"
	"strings"

	"github.com/fitquest/fitquest/model"
)

// TurnContext threads the state of one turn request through the
// resolution pipeline. A PvE request resolves two sub-turns (player then
// monster) on the same context; active/passive are swapped in between.
type TurnContext struct {
	Battle   *model.Battle
	Attacker *Fighter
	Defender *Fighter
	Active   *Fighter
	Passive  *Fighter

	// Reset to 1 at the start of every sub-turn, adjusted by effects.
	DamageMultiplier   float64
	AccuracyMultiplier float64

	Logs []*TurnLog
	cur  *TurnLog

	effects []*ActiveEffect
	deleted []int64
}

func newTurnContext(b *model.Battle, attacker, defender *Fighter, effects []*ActiveEffect) *TurnContext {
	tc := &TurnContext{
		Battle:   b,
		Attacker: attacker,
		Defender: defender,
		effects:  effects,
	}
	tc.assignRoles()
	return tc
}

// assignRoles sets active/passive from turn parity: even turns belong to
// the attacker.
func (tc *TurnContext) assignRoles() {
	if tc.Battle.Turns%2 == 0 {
		tc.Active, tc.Passive = tc.Attacker, tc.Defender
	} else {
		tc.Active, tc.Passive = tc.Defender, tc.Attacker
	}
}

// beginTurn opens a sub-turn: snapshots both sides into a fresh log,
// resets the multipliers, then runs the active-effect countdown. Every
// live effect is applied once and its counter decremented; expired
// effects are queued for deletion.
func (tc *TurnContext) beginTurn() error {
	tc.cur = &TurnLog{
		Attacker: tc.Attacker.State().sideLog(),
		Defender: tc.Defender.State().sideLog(),
	}
	tc.Logs = append(tc.Logs, tc.cur)
	tc.DamageMultiplier = 1
	tc.AccuracyMultiplier = 1

	alive := tc.effects[:0]
	for _, e := range tc.effects {
		if err := tc.applyEffect(e.Type, e.Value, e.Target, e.Turns); err != nil {
			return err
		}
		e.Turns--
		if e.Turns <= 0 {
			if e.ID != 0 {
				tc.deleted = append(tc.deleted, e.ID)
			}
			continue
		}
		alive = append(alive, e)
	}
	tc.effects = alive
	return nil
}

// applySkillEffect applies a landed skill's effect template and, if it
// outlives this turn, registers it as an active effect. Target roles are
// fixed here relative to the current active fighter.
func (tc *TurnContext) applySkillEffect(se model.SkillEffect) error {
	var target string
	switch se.Target {
	case model.TargetSelf:
		target = tc.roleOf(tc.Active)
	case model.TargetOpponent:
		target = tc.roleOf(tc.Passive)
	default:
		return fmt.Errorf("battle: invalid effect target %q", se.Target)
	}
	if err := tc.applyEffect(se.Type, se.Value, target, se.Duration); err != nil {
		return err
	}
	if se.Duration-1 >= 0 {
		tc.effects = append(tc.effects, &ActiveEffect{
			Type:   se.Type,
			Value:  se.Value,
			Target: target,
			Turns:  se.Duration - 1,
		})
	}
	return nil
}

func (tc *TurnContext) roleOf(f *Fighter) string {
	if f == tc.Attacker {
		return model.RoleAttacker
	}
	return model.RoleDefender
}

func (tc *TurnContext) fighterFor(role string) (*Fighter, error) {
	switch role {
	case model.RoleAttacker:
		return tc.Attacker, nil
	case model.RoleDefender:
		return tc.Defender, nil
	}
	return nil, fmt.Errorf("battle: invalid effect target %q", role)
}

// applyEffect applies one effect occurrence and narrates it. Health
// effects change the target's health immediately; the modifier effects
// adjust the current sub-turn's multipliers, but only when they belong
// to the side the multiplier reads from (damage taken concerns the
// passive fighter, damage done and accuracy the active one).
func (tc *TurnContext) applyEffect(typ string, value int, target string, turns int) error {
	f, err := tc.fighterFor(target)
	if err != nil {
		return err
	}

	switch typ {
	case model.EffectHealth:
		before := f.Health
		after := math.Min(before+float64(value), float64(f.MaxHealth))
		f.Health = after
		verb := "Hurt"
		if value > 0 {
			verb = "Healed"
		}
		tc.narrateEffect("%s %s by %d health.%s", verb, f.Name, abs(int(after-before)), turnsLeft(turns))

	case model.EffectIncomingDamage:
		if f == tc.Passive {
			tc.DamageMultiplier *= float64(100+value) / 100
		}
		tc.narrateEffect("%s %s's damage taken by %d%%.%s", incDec(value), f.Name, abs(value), turnsLeft(turns))

	case model.EffectOutgoingDamage:
		if f == tc.Active {
			tc.DamageMultiplier *= float64(100+value) / 100
		}
		tc.narrateEffect("%s %s's damage done by %d%%.%s", incDec(value), f.Name, abs(value), turnsLeft(turns))

	case model.EffectAccuracy:
		if f == tc.Active {
			tc.AccuracyMultiplier += float64(value) / 100
		}
		tc.narrateEffect("%s %s's accuracy by %d.%s", incDec(value), f.Name, abs(value), turnsLeft(turns))

	default:
		return fmt.Errorf("battle: invalid effect type %q", typ)
	}
	return nil
}

// narrate appends a line to the current sub-turn's action narration.
func (tc *TurnContext) narrate(format string, args ...interface{}) {
	tc.cur.Result += "\n" + fmt.Sprintf(format, args...)
}

// narrateAppend continues the current narration line without a line break.
func (tc *TurnContext) narrateAppend(format string, args ...interface{}) {
	tc.cur.Result += fmt.Sprintf(format, args...)
}

func (tc *TurnContext) narrateEffect(format string, args ...interface{}) {
	tc.cur.EffectResult += "\n" + fmt.Sprintf(format, args...)
}

// finalize strips the leading newline from every log line pair and
// copies the latest narration onto the battle row.
func (tc *TurnContext) finalize() {
	for _, l := range tc.Logs {
		l.Result = strings.TrimPrefix(l.Result, "\n")
		l.EffectResult = strings.TrimPrefix(l.EffectResult, "\n")
	}
	last := tc.Logs[len(tc.Logs)-1]
	tc.Battle.LastResult = last.Result
	tc.Battle.LastEffectResult = last.EffectResult
}

// outcome builds the persistence payload. Persisted effects still alive
// keep their decremented counters; fresh ones are inserted.
func (tc *TurnContext) outcome() *TurnOutcome {
	out := &TurnOutcome{
		Battle:         tc.Battle,
		Attacker:       tc.Attacker,
		Defender:       tc.Defender,
		DeletedEffects: tc.deleted,
	}
	for _, e := range tc.effects {
		if e.ID != 0 {
			out.UpdatedEffects = append(out.UpdatedEffects, e)
		} else {
			out.NewEffects = append(out.NewEffects, e)
		}
	}
	return out
}

func (s FighterState) sideLog() SideLog {
	return SideLog{StartingHealth: s.Health, StartingMana: s.Mana}
}

func turnsLeft(n int) string {
	switch {
	case n == 0:
		return ""
	case n == 1:
		return " (1 turn left)"
	default:
		return fmt.Sprintf(" (%d turns left)", n)
	}
}

func incDec(value int) string {
	if value > 0 {
		return "Increased"
	}
	return "Decreased"
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
