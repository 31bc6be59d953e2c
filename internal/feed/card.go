package feed

import (
	"time"

	"github.com/onnwee/creatorfeed/internal/creator"
)

// MediaItem is a media asset as shown on a card.
type MediaItem struct {
	ID           string            `json:"id"`
	Type         creator.MediaType `json:"type"`
	AspectRatio  string            `json:"aspect_ratio"`
	PublicURL    string            `json:"public_url"`
	ThumbnailURL string            `json:"thumbnail_url"`
	Caption      string            `json:"caption"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Card is one ranked creator in a feed page.
type Card struct {
	CreatorID      string      `json:"creator_id"`
	DisplayName    string      `json:"display_name"`
	BaseCity       string      `json:"base_city"`
	Bio            string      `json:"bio"`
	AvgRating      *float64    `json:"avg_rating"`
	RatingsCount   int         `json:"ratings_count"`
	Specialties    []string    `json:"specialties"`
	Gear           []string    `json:"gear"`
	TravelRadiusKm int         `json:"travel_radius_km"`
	LastActiveAt   *time.Time  `json:"last_active_at"`
	Media          []MediaItem `json:"media"`
	Score          float64     `json:"score"`
}

// Page is a paginated slice of ranked cards.
type Page struct {
	Page     int    `json:"page"`
	Limit    int    `json:"limit"`
	Total    int    `json:"total"`
	NextPage *int   `json:"next_page"`
	Results  []Card `json:"results"`
}

// EmptyPage returns a page with no results for f.
func EmptyPage(f Filters) Page {
	return Page{
		Page:    f.Page,
		Limit:   f.Limit,
		Total:   0,
		Results: []Card{},
	}
}

func newCard(p *creator.Profile, rating *float64, media []MediaItem, score float64) Card {
	specialties := p.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	gear := p.Gear
	if gear == nil {
		gear = []string{}
	}
	if media == nil {
		media = []MediaItem{}
	}
	return Card{
		CreatorID:      p.UserID,
		DisplayName:    p.DisplayName,
		BaseCity:       p.BaseCity,
		Bio:            p.Bio,
		AvgRating:      rating,
		RatingsCount:   p.RatingsCount,
		Specialties:    specialties,
		Gear:           gear,
		TravelRadiusKm: p.TravelRadiusKm,
		LastActiveAt:   p.LastActiveAt,
		Media:          media,
		Score:          score,
	}
}

func newMediaItem(m *creator.MediaAsset) MediaItem {
	return MediaItem{
		ID:           m.ID,
		Type:         m.Type,
		AspectRatio:  m.AspectRatio,
		PublicURL:    m.PublicURL,
		ThumbnailURL: m.ThumbnailURL,
		Caption:      m.Caption,
		CreatedAt:    m.CreatedAt,
	}
}

// groupMedia buckets media by owner, keeping at most perCreator items each.
// Input order (newest first) is preserved within a bucket.
func groupMedia(media []*creator.MediaAsset, perCreator int) map[string][]MediaItem {
	grouped := make(map[string][]MediaItem)
	for _, m := range media {
		if len(grouped[m.OwnerID]) >= perCreator {
			continue
		}
		grouped[m.OwnerID] = append(grouped[m.OwnerID], newMediaItem(m))
	}
	return grouped
}

// paginate slices sorted cards into the page requested by f.
func paginate(cards []Card, f Filters) Page {
	total := len(cards)
	offset := f.Offset(total)
	end := min(offset+f.Limit, total)

	page := Page{
		Page:    f.Page,
		Limit:   f.Limit,
		Total:   total,
		Results: append([]Card{}, cards[offset:end]...),
	}
	if offset+f.Limit < total {
		next := f.Page + 1
		page.NextPage = &next
	}
	return page
}
