package progression

import (
	"testing"

	"github.com/fitquest/fitquest/model"
)

func TestComputeBaseStats(t *testing.T) {
	ch := &model.Character{Element: model.ElementFire, Exp: 0}
	s := Compute(ch, nil)
	if s.Level != 1 {
		t.Errorf("level = %d, want 1", s.Level)
	}
	if s.MaxHealth != 100 || s.MaxMana != 50 || s.Power != 0 {
		t.Errorf("stats = %+v, want 100 health / 50 mana / 0 power", s)
	}
}

func TestComputeEquipmentBonuses(t *testing.T) {
	ch := &model.Character{Element: model.ElementFire, Exp: 0}
	equipment := []EquippedItem{
		{Slot: model.SlotWeapon, Power: 10, Element: model.ElementFire},  // 12.5 effective
		{Slot: model.SlotHelmet, Power: 20, Element: model.ElementWater}, // no bonus
	}
	s := Compute(ch, equipment)
	if s.Power != 12 {
		t.Errorf("power = %d, want 12 (same-element weapon)", s.Power)
	}
	if s.MaxHealth != 120 {
		t.Errorf("max health = %d, want 120", s.MaxHealth)
	}
}

func TestComputePotionsDoNotCount(t *testing.T) {
	ch := &model.Character{Element: model.ElementFire, Exp: 0}
	s := Compute(ch, []EquippedItem{{Slot: model.SlotPotion, Power: 50, Element: model.ElementFire}})
	if s.Power != 0 || s.MaxHealth != 100 {
		t.Errorf("stats = %+v, potions must not affect stats", s)
	}
}
