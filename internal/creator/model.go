// Package creator provides read models and repositories for creator profiles
// and the media assets they publish to the discovery feed.
package creator

import (
	"strings"
	"time"
)

// PurposeCreatorFeed tags media assets eligible for the discovery feed.
const PurposeCreatorFeed = "creator_feed"

// MaxFeedMediaScan bounds how many media rows a single feed request reads.
const MaxFeedMediaScan = 500

// MediaType is the kind of a media asset.
type MediaType string

// Supported media types.
const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Profile is the public profile of a creator. The feed only reads it.
type Profile struct {
	UserID         string     `json:"user_id"`
	DisplayName    string     `json:"display_name"`
	BaseCity       string     `json:"base_city"`
	Bio            string     `json:"bio"`
	AvgRating      *string    `json:"avg_rating,omitempty"` // Decimal string, e.g. "4.80"
	RatingsCount   int        `json:"ratings_count"`
	Specialties    []string   `json:"specialties"`
	Gear           []string   `json:"gear"`
	TravelRadiusKm int        `json:"travel_radius_km"`
	LastActiveAt   *time.Time `json:"last_active_at,omitempty"`
}

// MediaAsset is an uploaded image or video owned by a creator.
type MediaAsset struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Type         MediaType `json:"type"`
	AspectRatio  string    `json:"aspect_ratio"`
	PublicURL    string    `json:"public_url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Caption      string    `json:"caption"`
	Purpose      string    `json:"purpose"`
	CreatedAt    time.Time `json:"created_at"`
}

// Criteria is the profile-level filter contract shared by media and profile selection.
// Zero values disable the corresponding predicate.
type Criteria struct {
	City              string
	Specialties       []string
	Gear              []string
	MinTravelRadiusKm int
}

// Matches reports whether a profile satisfies every active predicate:
// exact case-insensitive city, any-of specialties, any-of gear and an
// inclusive minimum travel radius. A specialty or gear term matches when it
// occurs case-insensitively inside any listed value, so "boxing" selects a
// "Kickboxing" creator.
func (c Criteria) Matches(p *Profile) bool {
	if p == nil {
		return false
	}
	if c.City != "" && !strings.EqualFold(strings.TrimSpace(p.BaseCity), c.City) {
		return false
	}
	if len(c.Specialties) > 0 && !containsAnyFold(p.Specialties, c.Specialties) {
		return false
	}
	if len(c.Gear) > 0 && !containsAnyFold(p.Gear, c.Gear) {
		return false
	}
	if c.MinTravelRadiusKm > 0 && p.TravelRadiusKm < c.MinTravelRadiusKm {
		return false
	}
	return true
}

// IsZero reports whether no predicate is active.
func (c Criteria) IsZero() bool {
	return c.City == "" && len(c.Specialties) == 0 && len(c.Gear) == 0 && c.MinTravelRadiusKm <= 0
}

// MediaQuery selects feed media. Results are ordered by CreatedAt descending.
type MediaQuery struct {
	Criteria
	Purpose string // Defaults to PurposeCreatorFeed
	Limit   int    // Defaults to MaxFeedMediaScan
}

func (q MediaQuery) normalized() MediaQuery {
	if q.Purpose == "" {
		q.Purpose = PurposeCreatorFeed
	}
	if q.Limit <= 0 || q.Limit > MaxFeedMediaScan {
		q.Limit = MaxFeedMediaScan
	}
	return q
}

func containsAnyFold(have, want []string) bool {
	for _, w := range want {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		for _, h := range have {
			if strings.Contains(strings.ToLower(h), w) {
				return true
			}
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		// An empty term would match every element.
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
