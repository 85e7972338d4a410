// Package dungeon implements dungeon exploration: entry gating, loot
// rolls, exp rewards and random monster encounters.
package dungeon

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fitquest/fitquest/game/battle"
	"github.com/fitquest/fitquest/game/loot"
	"github.com/fitquest/fitquest/game/progression"
	"github.com/fitquest/fitquest/model"
)

const (
	// Loot and monster candidates come from dungeons within this many
	// levels of the dungeon's requirement.
	levelRange = 3

	// Chance of running into a monster after clearing the dungeon.
	encounterChance = 0.5

	maxLootRolls = 3
)

// Rarity draw weights before distance damping.
var rarityWeights = map[string]float64{
	model.RarityCommon:    100,
	model.RarityRare:      30,
	model.RarityEpic:      10,
	model.RarityLegendary: 1,
}

// ErrNotFound is returned when the dungeon or character does not exist.
var ErrNotFound = errors.New("dungeon: not found")

// ErrCharacterDead rejects exploration with no health left.
var ErrCharacterDead = errors.New("dungeon: character is dead")

// ErrInBattle rejects exploration while the character has an unfinished
// battle; clearing a dungeon can start a new one.
var ErrInBattle = errors.New("dungeon: character is in battle")

// LevelTooLowError rejects a character below the dungeon's requirement.
type LevelTooLowError struct {
	Required int
	Current  int
}

func (e *LevelTooLowError) Error() string {
	return fmt.Sprintf("dungeon: level %d required, have %d", e.Required, e.Current)
}

// InsufficientSkillpointsError rejects a user who cannot pay the fee.
type InsufficientSkillpointsError struct {
	Required int
	Current  int
}

func (e *InsufficientSkillpointsError) Error() string {
	return fmt.Sprintf("dungeon: %d skillpoints required, have %d", e.Required, e.Current)
}

// Result is the outcome of one exploration.
type Result struct {
	Message  string       `json:"message"`
	Loot     []model.Item `json:"loot"`
	Exp      int          `json:"exp"`
	NewExp   int          `json:"new_exp"`
	NewLevel *int         `json:"new_level,omitempty"`

	// Set when a monster was encountered.
	BattleID  *int64 `json:"battle_id,omitempty"`
	MonsterID *int64 `json:"monster_id,omitempty"`
}

// Service runs dungeon explorations.
type Service struct {
	db      *gorm.DB
	battles *battle.SQLStore
	logger  *zap.Logger
	rng     loot.RNG // injectable for testing
}

// NewService creates a dungeon service with a time-seeded RNG.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:      db,
		battles: battle.NewSQLStore(db),
		logger:  logger,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRNG replaces the randomness source.
func (s *Service) SetRNG(rng loot.RNG) { s.rng = rng }

// Explore clears the dungeon with the given character: checks that the
// character is not mid-battle, the level requirement, health and entry
// fee, then rolls loot, grants exp and may start a monster battle. All
// writes happen in one transaction.
func (s *Service) Explore(ctx context.Context, dungeonID, characterID int64) (*Result, error) {
	var d model.Dungeon
	if err := s.db.WithContext(ctx).First(&d, dungeonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var ch model.Character
	if err := s.db.WithContext(ctx).First(&ch, characterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if _, err := s.battles.OngoingBattle(ctx, ch.ID); err == nil {
		return nil, ErrInBattle
	} else if !errors.Is(err, battle.ErrNotFound) {
		return nil, err
	}

	level := progression.Level(ch.Exp)
	if level < d.Req {
		return nil, &LevelTooLowError{Required: d.Req, Current: level}
	}
	if ch.Health <= 0 {
		return nil, ErrCharacterDead
	}

	var user model.User
	if err := s.db.WithContext(ctx).First(&user, ch.UserID).Error; err != nil {
		return nil, err
	}
	if user.Skillpoints < d.Fee {
		return nil, &InsufficientSkillpointsError{Required: d.Fee, Current: user.Skillpoints}
	}

	drops, err := s.rollLoot(ctx, &d)
	if err != nil {
		return nil, err
	}

	baseExp := float64(progression.MaxExp(d.Req))/15 + 15
	expGain := int(math.Floor(baseExp * (0.5 + s.rng.Float64())))
	oldLevel := level
	ch.Exp += expGain

	var monster *model.Monster
	if s.rng.Float64() > 1-encounterChance {
		monster, err = s.pickMonster(ctx, d.Req)
		if err != nil {
			return nil, err
		}
	}

	res := &Result{
		Message: "Dungeon cleared!",
		Loot:    drops,
		Exp:     expGain,
		NewExp:  ch.Exp,
	}
	if newLevel := progression.Level(ch.Exp); newLevel != oldLevel {
		res.NewLevel = &newLevel
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.User{}).
			Where("id = ?", user.ID).
			Update("skillpoints", gorm.Expr("skillpoints - ?", d.Fee)).Error
		if err != nil {
			return err
		}

		for _, item := range drops {
			ownership := model.ItemOwnership{CharacterID: ch.ID, ItemID: item.ID}
			if err := tx.Create(&ownership).Error; err != nil {
				return err
			}
		}

		err = tx.Model(&model.Character{}).
			Where("id = ?", ch.ID).
			Update("exp", ch.Exp).Error
		if err != nil {
			return err
		}

		if monster != nil {
			health := monster.Health
			b := model.Battle{
				AttackerID:    ch.ID,
				MonsterID:     &monster.ID,
				MonsterHealth: &health,
			}
			if err := tx.Create(&b).Error; err != nil {
				return err
			}
			res.BattleID = &b.ID
			res.MonsterID = &monster.ID
			res.Message = "A monster was encountered while clearing the dungeon!"
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("dungeon explored",
		zap.Int64("dungeon_id", d.ID),
		zap.Int64("character_id", ch.ID),
		zap.Int("loot", len(drops)),
		zap.Int("exp", expGain),
		zap.Bool("encounter", monster != nil))
	return res, nil
}

// rollLoot draws 1-3 items from the dungeon's loot table. Item weight is
// the rarity base damped by level distance; special items never drop.
func (s *Service) rollLoot(ctx context.Context, d *model.Dungeon) ([]model.Item, error) {
	var items []model.Item
	err := s.db.WithContext(ctx).
		Where("req BETWEEN ? AND ?", d.Req-levelRange, d.Req+levelRange).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	var table loot.Table[model.Item]
	for _, item := range items {
		if item.Special {
			continue
		}
		diff := d.Req - item.Req
		if diff < 0 {
			diff = -diff
		}
		table.Add(item, rarityWeights[item.Rarity]/float64(diff+1))
	}

	rolls := int(s.rng.Float64()*maxLootRolls) + 1
	return table.PickN(rolls, s.rng), nil
}

// pickMonster selects a uniformly random monster near the dungeon's
// level, or nil when none exists in range.
func (s *Service) pickMonster(ctx context.Context, req int) (*model.Monster, error) {
	var monsters []model.Monster
	err := s.db.WithContext(ctx).
		Where("level BETWEEN ? AND ?", req-levelRange, req+levelRange).
		Order("id").
		Find(&monsters).Error
	if err != nil {
		return nil, err
	}
	if len(monsters) == 0 {
		return nil, nil
	}
	idx := int(s.rng.Float64() * float64(len(monsters)))
	if idx >= len(monsters) {
		idx = len(monsters) - 1
	}
	return &monsters[idx], nil
}
