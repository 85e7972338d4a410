package progression

import "math"

// The exp curve is exponential with base 1.1, shifted so that level 1
// starts at 0 exp: maxExp(L) = 80 * 1.1^(L+25) - 853.

// Level returns the level reached with the given total experience.
func Level(exp int) int {
	level := math.Log(float64(exp+853)/80)/math.Log(1.1) - 25
	if level < 0 {
		level = 0
	}
	return int(math.Floor(level + 1))
}

// MaxExp returns the total experience at which the given level is
// completed. Returns 0 for levels below 1.
func MaxExp(level int) int {
	if level < 1 {
		return 0
	}
	return int(math.Floor(80*math.Pow(1.1, float64(level+25)) - 853))
}
