package ranking

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	json "github.com/goccy/go-json"
)

// FeedWeights are the terms of the creator score. Recency and Rating scale
// [0, 1] signals; the bonuses are added as-is.
type FeedWeights struct {
	Recency       float64 `json:"recency"`
	Rating        float64 `json:"rating"`
	HalfLifeHours float64 `json:"half_life_hours"`
	// NeutralRating stands in for creators nobody has rated yet.
	NeutralRating float64 `json:"neutral_rating"`
	MediaBonus    float64 `json:"media_bonus"`

	// Interest boost: base + per_match*overlap, capped.
	InterestBase     float64 `json:"interest_base"`
	InterestPerMatch float64 `json:"interest_per_match"`
	InterestCap      float64 `json:"interest_cap"`

	// LoyaltyBoost applies after a completed booking with the viewer.
	LoyaltyBoost float64 `json:"loyalty_boost"`
	JitterMax    float64 `json:"jitter_max"`
}

// HalfLife returns the recency half-life as a duration.
func (w FeedWeights) HalfLife() time.Duration {
	return time.Duration(w.HalfLifeHours * float64(time.Hour))
}

// Weights is the full ranking calibration. Only the creator feed is ranked
// today.
type Weights struct {
	Feed FeedWeights `json:"feed"`
}

// calibrationFile is the on-disk shape of configs/ranking.calibration.json.
type calibrationFile struct {
	Version string  `json:"version"`
	Weights Weights `json:"weights"`
}

// ErrInvalidCalibration wraps every rejected calibration value.
var ErrInvalidCalibration = errors.New("invalid ranking calibration")

// DefaultWeights returns the shipped calibration:
//
//	score = 0.45*recency + 0.30*rating + media_bonus + interest_boost + loyalty_boost + jitter
//
// Recency halves every 48h, an unrated creator rates 0.4 and jitter stays
// below 0.006 so it only reorders near-ties.
func DefaultWeights() *Weights {
	return &Weights{
		Feed: FeedWeights{
			Recency:          0.45,
			Rating:           0.30,
			HalfLifeHours:    48,
			NeutralRating:    0.4,
			MediaBonus:       0.15,
			InterestBase:     0.03,
			InterestPerMatch: 0.02,
			InterestCap:      0.10,
			LoyaltyBoost:     0.10,
			JitterMax:        0.006,
		},
	}
}

// LoadCalibration decodes the JSON file at path over DefaultWeights, so keys
// the file omits keep their default and an explicit 0 turns a term off. An
// empty path yields the defaults. A file that cannot be read, decoded or
// validated also yields the defaults, together with the error.
func LoadCalibration(path string, logger *slog.Logger) (*Weights, error) {
	if path == "" {
		return DefaultWeights(), nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	file := calibrationFile{Weights: *DefaultWeights()}
	err := readCalibration(path, &file)
	if err != nil {
		logger.Warn("ranking calibration rejected, using default weights",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return DefaultWeights(), err
	}

	logger.Info("ranking calibration loaded",
		slog.String("path", path),
		slog.String("version", file.Version),
		slog.Any("overrides", DefaultWeights().Feed.diff(file.Weights.Feed)))
	return &file.Weights, nil
}

func readCalibration(path string, file *calibrationFile) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read ranking calibration: %w", err)
	}
	if err := json.Unmarshal(data, file); err != nil {
		return fmt.Errorf("failed to parse ranking calibration: %w", err)
	}
	return file.Weights.Feed.validate()
}

type weightField struct {
	name  string
	value float64
}

func (w FeedWeights) fields() []weightField {
	return []weightField{
		{"recency", w.Recency},
		{"rating", w.Rating},
		{"half_life_hours", w.HalfLifeHours},
		{"neutral_rating", w.NeutralRating},
		{"media_bonus", w.MediaBonus},
		{"interest_base", w.InterestBase},
		{"interest_per_match", w.InterestPerMatch},
		{"interest_cap", w.InterestCap},
		{"loyalty_boost", w.LoyaltyBoost},
		{"jitter_max", w.JitterMax},
	}
}

// validate rejects negative terms and a non-positive half-life, which would
// make recency blow up instead of decay.
func (w FeedWeights) validate() error {
	var errs []error
	for _, f := range w.fields() {
		if f.value < 0 {
			errs = append(errs, fmt.Errorf("feed.%s must not be negative, got %g", f.name, f.value))
		}
	}
	if w.HalfLifeHours <= 0 {
		errs = append(errs, fmt.Errorf("feed.half_life_hours must be positive, got %g", w.HalfLifeHours))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCalibration, err)
	}
	return nil
}

// diff lists the weights that differ between w and other as "name old -> new".
func (w FeedWeights) diff(other FeedWeights) []string {
	var changed []string
	theirs := other.fields()
	for i, f := range w.fields() {
		if f.value != theirs[i].value {
			changed = append(changed, fmt.Sprintf("feed.%s %g -> %g", f.name, f.value, theirs[i].value))
		}
	}
	return changed
}
