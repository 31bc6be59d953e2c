// Package feed ranks creators for the discovery feed.
package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/onnwee/creatorfeed/internal/creator"
)

// Query keys accepted by Sanitize.
const (
	KeyCity              = "city"
	KeySpecialties       = "specialties"
	KeyGear              = "gear"
	KeyMinTravelRadiusKm = "min_travel_radius_km"
	KeyInterests         = "interests"
	KeyPage              = "page"
	KeyLimit             = "limit"
	KeyMaxMedia          = "max_media"
)

// Pagination and media bounds.
const (
	DefaultPage     = 1
	DefaultLimit    = 20
	MinLimit        = 1
	MaxLimit        = 50
	DefaultMaxMedia = 4
	MinMaxMedia     = 1
	MaxMaxMedia     = 10
)

// cacheKeyVersion is bumped whenever the cached Page shape changes.
const cacheKeyVersion = "v1"

// Filters is a sanitized feed request. Build it with Sanitize.
type Filters struct {
	City               string   `json:"city"`
	Specialties        []string `json:"specialties"`
	Gear               []string `json:"gear"`
	MinTravelRadiusKm  int      `json:"min_travel_radius_km"`
	Interests          []string `json:"interests"`
	Page               int      `json:"page"`
	Limit              int      `json:"limit"`
	MaxMediaPerCreator int      `json:"max_media"`
}

// Sanitize coerces a raw key/value map into Filters.
// Malformed values fall back to defaults and out-of-range numbers are clamped;
// nothing is ever rejected.
func Sanitize(raw map[string]string) Filters {
	return Filters{
		City:               strings.TrimSpace(raw[KeyCity]),
		Specialties:        splitList(raw[KeySpecialties]),
		Gear:               splitList(raw[KeyGear]),
		MinTravelRadiusKm:  max(parseInt(raw[KeyMinTravelRadiusKm], 0), 0),
		Interests:          splitList(raw[KeyInterests]),
		Page:               max(parseInt(raw[KeyPage], DefaultPage), 1),
		Limit:              clampInt(parseInt(raw[KeyLimit], DefaultLimit), MinLimit, MaxLimit),
		MaxMediaPerCreator: clampInt(parseInt(raw[KeyMaxMedia], DefaultMaxMedia), MinMaxMedia, MaxMaxMedia),
	}
}

// Criteria returns the profile-level predicates of f.
func (f Filters) Criteria() creator.Criteria {
	return creator.Criteria{
		City:              f.City,
		Specialties:       f.Specialties,
		Gear:              f.Gear,
		MinTravelRadiusKm: f.MinTravelRadiusKm,
	}
}

// Matches reports whether p satisfies the profile filter contract.
// Interests only boost scores and never filter.
func (f Filters) Matches(p *creator.Profile) bool {
	return f.Criteria().Matches(p)
}

// Offset is the index of the first result on the requested page.
// It saturates at total so absurd page numbers cannot overflow.
func (f Filters) Offset(total int) int {
	if f.Page-1 > total {
		return total
	}
	return min((f.Page-1)*f.Limit, total)
}

// Hash returns a stable digest of every field in f.
func (f Filters) Hash() string {
	b, _ := json.Marshal(f)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// CacheKey returns the page cache key for viewerID and f.
func (f Filters) CacheKey(viewerID string) string {
	if viewerID == "" {
		viewerID = "anonymous"
	}
	return "feed:" + cacheKeyVersion + ":" + viewerID + ":" + f.Hash()
}

// splitList splits a comma-separated value into trimmed, non-empty items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseInt parses s as an integer, accepting a decimal and truncating it.
// Empty or unparseable input yields def.
func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	switch {
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
