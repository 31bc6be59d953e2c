// Package ranking provides centralized ranking component calculations
// with calibration support for the creator discovery feed.
package ranking

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// clamp01 limits v to the [0, 1] range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RecencyWeight computes a half-life decay score normalized to [0, 1].
// A creator active at now scores 1.0, one idle for halfLife scores 0.5,
// two half-lives 0.25 and so on.
//
// Parameters:
//   - lastActive: The creator's last activity timestamp (nil means never active)
//   - now: Reference time
//   - halfLife: Duration after which the score halves
//
// Formula: 0.5 ^ (max(0, hours since last active) / halfLifeHours)
func RecencyWeight(lastActive *time.Time, now time.Time, halfLife time.Duration) float64 {
	if lastActive == nil {
		return 0.0
	}
	if halfLife <= 0 {
		return 1.0
	}

	hours := now.Sub(*lastActive).Hours()
	if hours < 0 {
		hours = 0 // Clock skew: treat future activity as "now"
	}

	return math.Pow(0.5, hours/halfLife.Hours())
}

// RatingWeight converts an average rating on a 0-5 scale into a [0, 1] score.
// A nil or unparseable rating yields neutral.
func RatingWeight(avgRating *float64, neutral float64) float64 {
	if avgRating == nil || math.IsNaN(*avgRating) {
		return neutral
	}
	return clamp01(*avgRating / 5.0)
}

// ParseRating parses a decimal rating string such as "4.80".
// Returns nil for empty or malformed input.
func ParseRating(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// MediaBonus returns bonus when the creator has at least one media item.
func MediaBonus(mediaCount int, bonus float64) float64 {
	if mediaCount > 0 {
		return bonus
	}
	return 0.0
}

// InterestOverlap counts the case-insensitive, de-duplicated intersection
// of viewer interests and creator specialties.
func InterestOverlap(interests, specialties []string) int {
	if len(interests) == 0 || len(specialties) == 0 {
		return 0
	}

	wanted := make(map[string]struct{}, len(interests))
	for _, i := range interests {
		if k := strings.ToLower(strings.TrimSpace(i)); k != "" {
			wanted[k] = struct{}{}
		}
	}

	seen := make(map[string]struct{}, len(specialties))
	overlap := 0
	for _, s := range specialties {
		k := strings.ToLower(strings.TrimSpace(s))
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := wanted[k]; ok {
			overlap++
		}
	}
	return overlap
}

// InterestBoost computes the interest match bonus.
// Returns 0 if either list is empty, otherwise min(cap, base + perMatch*overlap).
func InterestBoost(interests, specialties []string, w FeedWeights) float64 {
	if len(interests) == 0 || len(specialties) == 0 {
		return 0.0
	}
	overlap := InterestOverlap(interests, specialties)
	return math.Min(w.InterestCap, w.InterestBase+w.InterestPerMatch*float64(overlap))
}

// LoyaltyBoost returns boost when the viewer has a completed booking with the creator.
func LoyaltyBoost(hasCompletedBooking bool, boost float64) float64 {
	if hasCompletedBooking {
		return boost
	}
	return 0.0
}

// Jitter returns a uniform random value in [0, max).
// It is intentionally unseeded so ties resolve differently across calls.
func Jitter(max float64) float64 {
	if max <= 0 {
		return 0.0
	}
	return rand.Float64() * max
}

// CreatorParams holds the raw inputs for computing a creator composite score.
type CreatorParams struct {
	LastActiveAt        *time.Time
	AvgRating           *float64
	MediaCount          int
	Interests           []string
	Specialties         []string
	HasCompletedBooking bool
}

// ScoreBreakdown exposes every score component, mostly for debugging and tests.
type ScoreBreakdown struct {
	Recency       float64 `json:"recency"`
	Rating        float64 `json:"rating"`
	MediaBonus    float64 `json:"media_bonus"`
	InterestBoost float64 `json:"interest_boost"`
	LoyaltyBoost  float64 `json:"loyalty_boost"`
	Jitter        float64 `json:"jitter"`
	Total         float64 `json:"total"`
}

// BreakdownCreator computes each component of a creator score without jitter.
//
// Default formula:
//
//	score = 0.45*recency + 0.30*rating + media_bonus + interest_boost + loyalty_boost
func BreakdownCreator(params CreatorParams, now time.Time, weights *Weights) ScoreBreakdown {
	if weights == nil {
		weights = DefaultWeights()
	}
	w := weights.Feed

	b := ScoreBreakdown{
		Recency:       RecencyWeight(params.LastActiveAt, now, w.HalfLife()),
		Rating:        RatingWeight(params.AvgRating, w.NeutralRating),
		MediaBonus:    MediaBonus(params.MediaCount, w.MediaBonus),
		InterestBoost: InterestBoost(params.Interests, params.Specialties, w),
		LoyaltyBoost:  LoyaltyBoost(params.HasCompletedBooking, w.LoyaltyBoost),
	}
	b.Total = w.Recency*b.Recency + w.Rating*b.Rating + b.MediaBonus + b.InterestBoost + b.LoyaltyBoost
	return b
}

// CompositeScoreCreator computes the final feed score for a creator,
// including the random tie-breaking jitter.
func CompositeScoreCreator(params CreatorParams, now time.Time, weights *Weights) float64 {
	if weights == nil {
		weights = DefaultWeights()
	}
	b := BreakdownCreator(params, now, weights)
	return b.Total + Jitter(weights.Feed.JitterMax)
}
