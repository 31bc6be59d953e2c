package ranking

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeCalibration(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ranking.calibration.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write calibration: %v", err)
	}
	return path
}

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights().Feed

	if w.Recency+w.Rating != 0.75 {
		t.Errorf("recency + rating = %v, want 0.75", w.Recency+w.Rating)
	}
	if w.HalfLife() != 48*time.Hour {
		t.Errorf("half-life = %s, want 48h", w.HalfLife())
	}
	if w.JitterMax >= 0.01 {
		t.Errorf("jitter %v is large enough to reorder distinct scores", w.JitterMax)
	}
	if err := w.validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadCalibration_ShippedFile(t *testing.T) {
	weights, err := LoadCalibration(filepath.Join("..", "..", "configs", "ranking.calibration.json"), nil)
	if err != nil {
		t.Fatalf("shipped calibration rejected: %v", err)
	}
	if *weights != *DefaultWeights() {
		t.Errorf("shipped calibration drifted from the defaults:\n%+v\n%+v", weights.Feed, DefaultWeights().Feed)
	}
}

func TestLoadCalibration_Overrides(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, nil))
	path := writeCalibration(t, `{"version":"1.1","weights":{"feed":{"recency":0.6,"half_life_hours":24,"jitter_max":0}}}`)

	weights, err := LoadCalibration(path, logger)
	if err != nil {
		t.Fatalf("LoadCalibration failed: %v", err)
	}

	want := DefaultWeights().Feed
	want.Recency, want.HalfLifeHours, want.JitterMax = 0.6, 24, 0
	if weights.Feed != want {
		t.Errorf("weights = %+v, want %+v", weights.Feed, want)
	}
	for _, fragment := range []string{"version=1.1", "feed.recency 0.45 -> 0.6", "feed.jitter_max 0.006 -> 0"} {
		if !strings.Contains(buf.String(), fragment) {
			t.Errorf("log is missing %q: %s", fragment, buf.String())
		}
	}
}

func TestLoadCalibration_FallsBackToDefaults(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr error
	}{
		{"empty path", func(*testing.T) string { return "" }, nil},
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "none.json") }, os.ErrNotExist},
		{"malformed json", func(t *testing.T) string { return writeCalibration(t, "{not json") }, nil},
		{"negative weight", func(t *testing.T) string {
			return writeCalibration(t, `{"weights":{"feed":{"loyalty_boost":-0.1}}}`)
		}, ErrInvalidCalibration},
		{"zero half-life", func(t *testing.T) string {
			return writeCalibration(t, `{"weights":{"feed":{"half_life_hours":0}}}`)
		}, ErrInvalidCalibration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path(t)
			weights, err := LoadCalibration(path, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

			if *weights != *DefaultWeights() {
				t.Errorf("expected default weights, got %+v", weights.Feed)
			}
			switch {
			case path == "" && err != nil:
				t.Errorf("empty path should not error, got %v", err)
			case path != "" && err == nil:
				t.Error("expected an error")
			case tt.wantErr != nil && !errors.Is(err, tt.wantErr):
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFeedWeights_Diff(t *testing.T) {
	a := DefaultWeights().Feed
	if d := a.diff(a); len(d) != 0 {
		t.Errorf("identical weights differ: %v", d)
	}
	b := a
	b.MediaBonus = 0.2
	if d := a.diff(b); len(d) != 1 || d[0] != "feed.media_bonus 0.15 -> 0.2" {
		t.Errorf("diff = %v", d)
	}
}
