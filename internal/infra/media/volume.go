package media

import "math"

// silentGain is the effects.Volume value used for levels at or below zero.
const silentGain = -10

// levelToGain converts a 0.0-1.0 level to the base-2 gain of effects.Volume:
// 1.0 -> 0, 0.5 -> -1, 0.25 -> -2. Levels above 1 amplify.
func levelToGain(level float64) float64 {
	if level <= 0 {
		return silentGain
	}
	return math.Log2(level)
}
