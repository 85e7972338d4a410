package progression

import "testing"

func TestLevelCurve(t *testing.T) {
	cases := []struct {
		exp  int
		want int
	}{
		{0, 1},
		{100, 1}, // level 1 completes just past 100 exp
		{101, 2},
		{195, 2},
		{196, 3},
	}
	for _, c := range cases {
		if got := Level(c.exp); got != c.want {
			t.Errorf("Level(%d) = %d, want %d", c.exp, got, c.want)
		}
	}
}

func TestMaxExpInverseOfLevel(t *testing.T) {
	for level := 1; level <= 30; level++ {
		edge := MaxExp(level)
		if got := Level(edge); got != level {
			t.Errorf("Level(MaxExp(%d)=%d) = %d, want %d", level, edge, got, level)
		}
		if got := Level(edge + 1); got != level+1 {
			t.Errorf("Level(MaxExp(%d)+1) = %d, want %d", level, got, level+1)
		}
	}
}

func TestMaxExpBelowLevelOne(t *testing.T) {
	if got := MaxExp(0); got != 0 {
		t.Errorf("MaxExp(0) = %d, want 0", got)
	}
	if got := MaxExp(-3); got != 0 {
		t.Errorf("MaxExp(-3) = %d, want 0", got)
	}
}
