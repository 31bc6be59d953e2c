package creator

import (
	"strings"
	"testing"
)

// TestBuildMediaQuery_NoCriteria tests the minimal query shape.
func TestBuildMediaQuery_NoCriteria(t *testing.T) {
	query, args := buildMediaQuery(MediaQuery{})

	if len(args) != 2 {
		t.Fatalf("expected 2 args (purpose, limit), got %d", len(args))
	}
	if args[0] != PurposeCreatorFeed {
		t.Errorf("expected default purpose %q, got %v", PurposeCreatorFeed, args[0])
	}
	if args[1] != MaxFeedMediaScan {
		t.Errorf("expected default limit %d, got %v", MaxFeedMediaScan, args[1])
	}
	if !strings.Contains(query, "ORDER BY m.created_at DESC") {
		t.Error("expected newest-first ordering")
	}
	if !strings.Contains(query, "LIMIT $2") {
		t.Errorf("expected LIMIT $2, got query:\n%s", query)
	}
	if strings.Contains(query, "base_city") {
		t.Error("city predicate should not be present")
	}
}

// TestBuildMediaQuery_AllCriteria tests placeholder numbering with every predicate.
func TestBuildMediaQuery_AllCriteria(t *testing.T) {
	query, args := buildMediaQuery(MediaQuery{
		Criteria: Criteria{
			City:              "Paris",
			Specialties:       []string{"Boxing"},
			Gear:              []string{"Drone"},
			MinTravelRadiusKm: 10,
		},
		Limit: 50,
	})

	if len(args) != 6 {
		t.Fatalf("expected 6 args, got %d", len(args))
	}
	if args[1] != "paris" {
		t.Errorf("expected lower-cased city, got %v", args[1])
	}
	if args[4] != 10 {
		t.Errorf("expected radius arg 10, got %v", args[4])
	}
	if args[5] != 50 {
		t.Errorf("expected limit arg 50, got %v", args[5])
	}

	for _, fragment := range []string{
		"lower(p.base_city) = $2",
		"unnest(p.specialties) s, unnest($3::text[]) t WHERE position(t in lower(s)) > 0",
		"unnest(p.gear) g, unnest($4::text[]) t WHERE position(t in lower(g)) > 0",
		"p.travel_radius_km >= $5",
		"LIMIT $6",
	} {
		if !strings.Contains(query, fragment) {
			t.Errorf("expected query to contain %q", fragment)
		}
	}
}

// TestBuildMediaQuery_LimitCapped tests that limits above the scan cap are clamped.
func TestBuildMediaQuery_LimitCapped(t *testing.T) {
	_, args := buildMediaQuery(MediaQuery{Limit: 10000})
	if args[len(args)-1] != MaxFeedMediaScan {
		t.Errorf("expected limit capped at %d, got %v", MaxFeedMediaScan, args[len(args)-1])
	}
}
