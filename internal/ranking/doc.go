// Package ranking provides centralized ranking component calculations
// with calibration support for the creator discovery feed.
//
// Basic Usage:
//
//	// Load calibration (typically at startup)
//	weights, err := ranking.LoadCalibration("configs/ranking.calibration.json", logger)
//	if err != nil {
//		log.Warn("using default weights", "error", err)
//	}
//
//	// Score a creator
//	score := ranking.CompositeScoreCreator(ranking.CreatorParams{
//		LastActiveAt:        profile.LastActiveAt,
//		AvgRating:           ranking.ParseRating(profile.AvgRating),
//		MediaCount:          len(media),
//		Interests:           filters.Interests,
//		Specialties:         profile.Specialties,
//		HasCompletedBooking: booked,
//	}, time.Now(), weights)
//
// Weight Functions:
//
// RecencyWeight and RatingWeight return values in the [0, 1] range and are
// multiplied by their calibrated weight. MediaBonus, InterestBoost and
// LoyaltyBoost are flat additive bonuses. Jitter adds a tiny unseeded random
// value so exact ties do not always resolve in the same order.
//
// Calibration:
//
// Weights can be tuned at deploy time via a JSON file loaded at startup.
// Keys the file omits keep their defaults. See
// configs/ranking.calibration.json.
package ranking
