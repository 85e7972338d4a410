package battle

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/fitquest/fitquest/game/progression"
	"github.com/fitquest/fitquest/model"
)

// SQLStore is the gorm-backed Store and Catalog implementation.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore creates a store on top of the given database handle.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Battle loads a battle row by id.
func (s *SQLStore) Battle(ctx context.Context, id int64) (*model.Battle, error) {
	var b model.Battle
	if err := s.db.WithContext(ctx).First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// OngoingBattle returns the unfinished battle the character participates
// in, or ErrNotFound.
func (s *SQLStore) OngoingBattle(ctx context.Context, characterID int64) (*model.Battle, error) {
	var b model.Battle
	err := s.db.WithContext(ctx).
		Where("finished = ? AND (attacker_id = ? OR defender_id = ?)", false, characterID, characterID).
		First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Fighters builds combat snapshots for both sides of the battle.
// Character stats are derived from exp and equipped items; the monster's
// current health comes from the battle row.
func (s *SQLStore) Fighters(ctx context.Context, b *model.Battle) (*Fighter, *Fighter, error) {
	attacker, err := s.characterFighter(ctx, b.AttackerID)
	if err != nil {
		return nil, nil, err
	}

	if b.PvE() {
		defender, err := s.monsterFighter(ctx, b)
		if err != nil {
			return nil, nil, err
		}
		return attacker, defender, nil
	}

	if b.DefenderID == nil {
		return nil, nil, ErrNotFound
	}
	defender, err := s.characterFighter(ctx, *b.DefenderID)
	if err != nil {
		return nil, nil, err
	}
	return attacker, defender, nil
}

// characterFighter loads one character with its derived stats.
func (s *SQLStore) characterFighter(ctx context.Context, characterID int64) (*Fighter, error) {
	var ch model.Character
	if err := s.db.WithContext(ctx).First(&ch, characterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	equipment, err := s.Equipment(ctx, characterID)
	if err != nil {
		return nil, err
	}
	stats := progression.Compute(&ch, equipment)

	return &Fighter{
		CharacterID: ch.ID,
		UserID:      ch.UserID,
		Name:        ch.Name,
		Element:     ch.Element,
		Level:       stats.Level,
		Health:      float64(ch.Health),
		MaxHealth:   stats.MaxHealth,
		Mana:        ch.Mana,
		MaxMana:     stats.MaxMana,
		HasMana:     true,
		Power:       stats.Power,
		Exp:         ch.Exp,
		HasExp:      true,
	}, nil
}

func (s *SQLStore) monsterFighter(ctx context.Context, b *model.Battle) (*Fighter, error) {
	var m model.Monster
	if err := s.db.WithContext(ctx).First(&m, *b.MonsterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	health := m.Health
	if b.MonsterHealth != nil {
		health = *b.MonsterHealth
	}
	return &Fighter{
		MonsterID: m.ID,
		Name:      m.Name,
		Element:   m.Element,
		Level:     m.Level,
		Health:    float64(health),
		MaxHealth: m.Health,
		Power:     m.Power,
	}, nil
}

// Equipment returns the character's currently equipped items.
func (s *SQLStore) Equipment(ctx context.Context, characterID int64) ([]progression.EquippedItem, error) {
	var rows []progression.EquippedItem
	err := s.db.WithContext(ctx).
		Table("item_ownerships").
		Select("items.slot, items.power, items.element").
		Joins("JOIN items ON items.id = item_ownerships.item_id").
		Where("item_ownerships.character_id = ? AND item_ownerships.equipped IS NOT NULL", characterID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ActiveEffects loads the battle's live effects in creation order.
func (s *SQLStore) ActiveEffects(ctx context.Context, battleID int64) ([]*ActiveEffect, error) {
	var rows []model.BattleEffect
	err := s.db.WithContext(ctx).
		Where("battle_id = ?", battleID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	effects := make([]*ActiveEffect, 0, len(rows))
	for _, r := range rows {
		effects = append(effects, &ActiveEffect{
			ID:     r.ID,
			Type:   r.Type,
			Value:  r.Value,
			Target: r.Target,
			Turns:  r.Turns,
		})
	}
	return effects, nil
}

// CharacterOwnsSkill reports whether the character purchased the skill.
func (s *SQLStore) CharacterOwnsSkill(ctx context.Context, characterID, skillID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.SkillOwnership{}).
		Where("character_id = ? AND skill_id = ?", characterID, skillID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveTurn persists every mutation of one turn request in a single
// transaction: effect deletions, countdowns and inserts, fighter
// health/mana/exp, and the battle row itself.
func (s *SQLStore) SaveTurn(ctx context.Context, out *TurnOutcome) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(out.DeletedEffects) > 0 {
			if err := tx.Delete(&model.BattleEffect{}, out.DeletedEffects).Error; err != nil {
				return err
			}
		}
		for _, e := range out.UpdatedEffects {
			err := tx.Model(&model.BattleEffect{}).
				Where("id = ?", e.ID).
				Update("turns", e.Turns).Error
			if err != nil {
				return err
			}
		}
		for _, e := range out.NewEffects {
			row := model.BattleEffect{
				BattleID: out.Battle.ID,
				Type:     e.Type,
				Value:    e.Value,
				Target:   e.Target,
				Turns:    e.Turns,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			e.ID = row.ID
		}

		for _, f := range []*Fighter{out.Attacker, out.Defender} {
			if f.CharacterID == 0 {
				continue
			}
			err := tx.Model(&model.Character{}).
				Where("id = ?", f.CharacterID).
				Updates(map[string]interface{}{
					"health": int(f.Health),
					"mana":   f.Mana,
					"exp":    f.Exp,
				}).Error
			if err != nil {
				return err
			}
		}

		b := out.Battle
		return tx.Model(&model.Battle{}).
			Where("id = ?", b.ID).
			Updates(map[string]interface{}{
				"turns":              b.Turns,
				"finished":           b.Finished,
				"winner_id":          b.WinnerID,
				"monster_health":     b.MonsterHealth,
				"last_result":        b.LastResult,
				"last_effect_result": b.LastEffectResult,
			}).Error
	})
}

// Skill loads one skill from the catalog.
func (s *SQLStore) Skill(ctx context.Context, id int64) (*model.Skill, error) {
	var sk model.Skill
	if err := s.db.WithContext(ctx).First(&sk, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sk, nil
}

// SkillEffects loads a skill's effect templates in creation order.
func (s *SQLStore) SkillEffects(ctx context.Context, skillID int64) ([]model.SkillEffect, error) {
	var rows []model.SkillEffect
	err := s.db.WithContext(ctx).
		Where("skill_id = ?", skillID).
		Order("id").
		Find(&rows).Error
	return rows, err
}

// Skills loads the full skill catalog, used for monster AI weighting.
func (s *SQLStore) Skills(ctx context.Context) ([]model.Skill, error) {
	var rows []model.Skill
	err := s.db.WithContext(ctx).Order("id").Find(&rows).Error
	return rows, err
}
