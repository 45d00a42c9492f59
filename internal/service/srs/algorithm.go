package srs

import (
	"math"
	"time"

	"github.com/yourusername/vocabot/internal/models"
)

// Quality is the SM-2 response grade on the 0-5 scale.
type Quality int

const (
	// Forgot: incorrect response, the correct one remembered once shown.
	Forgot Quality = 1
	// Remembered: correct response after a hesitation.
	Remembered Quality = 4

	passThreshold Quality = 3
	forgotPenalty         = 0.8
)

// Passed reports whether the grade counts as a successful recall.
func (q Quality) Passed() bool {
	return q >= passThreshold
}

// NextInterval returns the interval and ease factor that follow a review of
// the given grade. It does not touch any other state.
func NextInterval(intervalDays int, easeFactor float64, quality Quality) (int, float64) {
	if quality.Passed() {
		switch intervalDays {
		case 0:
			intervalDays = 1
		case 1:
			intervalDays = 6
		default:
			intervalDays = int(math.RoundToEven(float64(intervalDays) * easeFactor))
		}

		q := float64(5 - quality)
		easeFactor += 0.1 - q*(0.08+q*0.02)
	} else {
		intervalDays = 1
		easeFactor -= forgotPenalty
	}

	if easeFactor < models.MinEaseFactor {
		easeFactor = models.MinEaseFactor
	}

	return intervalDays, easeFactor
}

// Apply updates the scheduling fields of progress for a review graded at now.
// Knew/didn't-know counters are left to the caller.
func Apply(progress *models.ReviewProgress, quality Quality, now time.Time) {
	progress.IntervalDays, progress.EaseFactor = NextInterval(progress.IntervalDays, progress.EaseFactor, quality)

	reviewedAt := now
	progress.LastAppeared = &reviewedAt
	progress.NextReview = now.AddDate(0, 0, progress.IntervalDays)
	progress.AppearedCount++
}
