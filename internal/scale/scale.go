// Package scale computes output dimensions for a pixel budget. It is pure
// arithmetic with no I/O so the engine and its tests share one source of
// truth for dimension math.
package scale

import "math"

// FitBudget returns the output dimensions for an image of width x height
// against targetPixels. Resize happens only when the original is strictly
// larger than the budget; an image exactly at the budget is left alone.
// Scaled dimensions are truncated, never rounded up, so the result cannot
// exceed the budget.
func FitBudget(width, height int, targetPixels int64) (newWidth, newHeight int, resize bool) {
	originalPixels := int64(width) * int64(height)
	if originalPixels <= targetPixels {
		return width, height, false
	}

	factor := math.Sqrt(float64(targetPixels) / float64(originalPixels))
	newWidth = int(float64(width) * factor)
	newHeight = int(float64(height) * factor)
	return newWidth, newHeight, true
}
