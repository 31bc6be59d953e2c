//go:build integration

package creator

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/onnwee/creatorfeed/internal/testdb"
)

func insertProfile(t *testing.T, db *sql.DB, p Profile) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO creator_profiles
			(user_id, display_name, base_city, bio, avg_rating, ratings_count, specialties, gear, travel_radius_km, last_active_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10)`,
		p.UserID, p.DisplayName, p.BaseCity, p.Bio, p.AvgRating, p.RatingsCount,
		pq.Array(p.Specialties), pq.Array(p.Gear), p.TravelRadiusKm, p.LastActiveAt)
	if err != nil {
		t.Fatalf("failed to insert profile %s: %v", p.UserID, err)
	}
}

func insertMedia(t *testing.T, db *sql.DB, m MediaAsset) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO media_assets (id, owner_id, type, aspect_ratio, public_url, thumbnail_url, caption, purpose, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.OwnerID, string(m.Type), m.AspectRatio, m.PublicURL, m.ThumbnailURL, m.Caption, m.Purpose, m.CreatedAt)
	if err != nil {
		t.Fatalf("failed to insert media %s: %v", m.ID, err)
	}
}

// TestPostgresRepository_Integration exercises profile listing and media push-down.
func TestPostgresRepository_Integration(t *testing.T) {
	db := testdb.Start(t)
	repo := NewPostgresRepository(db, nil)
	ctx := context.Background()

	active := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	insertProfile(t, db, Profile{UserID: "a", DisplayName: "A", BaseCity: "Paris", AvgRating: strPtr("4.80"),
		RatingsCount: 12, Specialties: []string{"Boxing"}, Gear: []string{"drone"}, TravelRadiusKm: 20, LastActiveAt: &active})
	insertProfile(t, db, Profile{UserID: "b", DisplayName: "B", BaseCity: "Lyon", Specialties: []string{"yoga"}, Gear: []string{}})

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	insertMedia(t, db, MediaAsset{ID: "m1", OwnerID: "a", Type: MediaTypeImage, PublicURL: "u1", Purpose: PurposeCreatorFeed, CreatedAt: base})
	insertMedia(t, db, MediaAsset{ID: "m2", OwnerID: "a", Type: MediaTypeVideo, PublicURL: "u2", Purpose: PurposeCreatorFeed, CreatedAt: base.Add(time.Hour)})
	insertMedia(t, db, MediaAsset{ID: "m3", OwnerID: "b", Type: MediaTypeImage, PublicURL: "u3", Purpose: PurposeCreatorFeed, CreatedAt: base.Add(2 * time.Hour)})
	insertMedia(t, db, MediaAsset{ID: "m4", OwnerID: "b", Type: MediaTypeImage, PublicURL: "u4", Purpose: "avatar", CreatedAt: base.Add(3 * time.Hour)})

	t.Run("list profiles", func(t *testing.T) {
		profiles, err := repo.ListAllCreatorProfiles(ctx)
		if err != nil {
			t.Fatalf("ListAllCreatorProfiles failed: %v", err)
		}
		if len(profiles) != 2 {
			t.Fatalf("expected 2 profiles, got %d", len(profiles))
		}
		a := profiles[0]
		if a.AvgRating == nil || *a.AvgRating != "4.80" {
			t.Errorf("expected avg rating 4.80, got %v", a.AvgRating)
		}
		if a.LastActiveAt == nil || !a.LastActiveAt.Equal(active) {
			t.Errorf("expected last active %v, got %v", active, a.LastActiveAt)
		}
		if profiles[1].AvgRating != nil {
			t.Errorf("expected nil rating for unrated creator, got %v", *profiles[1].AvgRating)
		}
	})

	t.Run("media newest first, purpose filtered", func(t *testing.T) {
		media, err := repo.QueryFeedMedia(ctx, MediaQuery{})
		if err != nil {
			t.Fatalf("QueryFeedMedia failed: %v", err)
		}
		if len(media) != 3 {
			t.Fatalf("expected 3 media, got %d", len(media))
		}
		if media[0].ID != "m3" || media[2].ID != "m1" {
			t.Errorf("unexpected order: %s, %s, %s", media[0].ID, media[1].ID, media[2].ID)
		}
	})

	t.Run("media criteria push-down", func(t *testing.T) {
		media, err := repo.QueryFeedMedia(ctx, MediaQuery{Criteria: Criteria{City: "paris", Specialties: []string{"boxing"}}})
		if err != nil {
			t.Fatalf("QueryFeedMedia failed: %v", err)
		}
		if len(media) != 2 {
			t.Fatalf("expected 2 media for creator a, got %d", len(media))
		}
		for _, m := range media {
			if m.OwnerID != "a" {
				t.Errorf("unexpected owner %s", m.OwnerID)
			}
		}
	})

	t.Run("array predicates match substrings", func(t *testing.T) {
		media, err := repo.QueryFeedMedia(ctx, MediaQuery{Criteria: Criteria{Specialties: []string{"box"}, Gear: []string{"DRO"}}})
		if err != nil {
			t.Fatalf("QueryFeedMedia failed: %v", err)
		}
		if len(media) != 2 {
			t.Fatalf("expected 2 media for creator a, got %d", len(media))
		}
		for _, m := range media {
			if m.OwnerID != "a" {
				t.Errorf("unexpected owner %s", m.OwnerID)
			}
		}
	})
}
