package loot

import "testing"

type fixedRNG struct{ v float64 }

func (r fixedRNG) Float64() float64 { return r.v }

func TestPickWalksRunningSum(t *testing.T) {
	var table Table[string]
	table.Add("A", 3)
	table.Add("B", 1)

	// total = 4; r = 2.9 lands inside A's range, r = 3.1 inside B's
	if got, _ := table.Pick(fixedRNG{v: 2.9 / 4}); got != "A" {
		t.Errorf("Pick(r=2.9) = %q, want A", got)
	}
	if got, _ := table.Pick(fixedRNG{v: 3.1 / 4}); got != "B" {
		t.Errorf("Pick(r=3.1) = %q, want B", got)
	}
}

func TestPickEmptyTable(t *testing.T) {
	var table Table[int]
	if _, ok := table.Pick(fixedRNG{}); ok {
		t.Error("Pick on empty table must report !ok")
	}
}

func TestAddIgnoresNonPositiveWeights(t *testing.T) {
	var table Table[string]
	table.Add("A", 0)
	table.Add("B", -1)
	if table.Len() != 0 {
		t.Errorf("Len = %d, want 0", table.Len())
	}
	table.Add("C", 0.001)
	if table.Len() != 1 {
		t.Errorf("Len = %d, want 1", table.Len())
	}
	if got, _ := table.Pick(fixedRNG{v: 0.9999}); got != "C" {
		t.Errorf("Pick = %q, want C despite float drift", got)
	}
}

func TestPickNDrawsIndependently(t *testing.T) {
	var table Table[string]
	table.Add("A", 1)
	got := table.PickN(3, fixedRNG{v: 0.5})
	if len(got) != 3 {
		t.Fatalf("PickN = %d items, want 3", len(got))
	}
	for _, v := range got {
		if v != "A" {
			t.Errorf("PickN item = %q, want A", v)
		}
	}
}
