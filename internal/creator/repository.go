package creator

import (
	"context"
	"sort"
	"sync"
)

// ProfileRepository reads creator profiles.
type ProfileRepository interface {
	// ListAllCreatorProfiles returns every creator profile.
	// No filter is pushed down; callers apply Criteria in memory.
	ListAllCreatorProfiles(ctx context.Context) ([]*Profile, error)
}

// MediaRepository reads media assets for the feed.
type MediaRepository interface {
	// QueryFeedMedia returns media matching the query purpose whose owners
	// satisfy the query criteria, newest first, capped at the query limit.
	QueryFeedMedia(ctx context.Context, q MediaQuery) ([]*MediaAsset, error)
}

// InMemoryRepository is an in-memory implementation of ProfileRepository and MediaRepository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]*Profile // user id -> profile
	order    []string            // insertion order of profile ids
	media    []*MediaAsset
}

// NewInMemoryRepository creates a new in-memory creator repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		profiles: make(map[string]*Profile),
	}
}

// UpsertProfile stores a copy of the profile, replacing any existing one.
func (r *InMemoryRepository) UpsertProfile(p *Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[p.UserID]; !exists {
		r.order = append(r.order, p.UserID)
	}
	cp := copyProfile(p)
	r.profiles[p.UserID] = cp
}

// AddMedia stores a copy of the media asset.
func (r *InMemoryRepository) AddMedia(m *MediaAsset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.media = append(r.media, &cp)
}

// ListAllCreatorProfiles returns copies of all profiles in insertion order.
func (r *InMemoryRepository) ListAllCreatorProfiles(ctx context.Context) ([]*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Profile, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, copyProfile(r.profiles[id]))
	}
	return out, nil
}

// QueryFeedMedia returns matching media ordered by CreatedAt DESC, ID ASC.
func (r *InMemoryRepository) QueryFeedMedia(ctx context.Context, q MediaQuery) ([]*MediaAsset, error) {
	q = q.normalized()

	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := make([]*MediaAsset, 0, len(r.media))
	for _, m := range r.media {
		if m.Purpose != q.Purpose {
			continue
		}
		if !q.Criteria.IsZero() {
			owner, ok := r.profiles[m.OwnerID]
			if !ok || !q.Criteria.Matches(owner) {
				continue
			}
		}
		cp := *m
		candidates = append(candidates, &cp)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})

	if len(candidates) > q.Limit {
		candidates = candidates[:q.Limit]
	}
	return candidates, nil
}

func copyProfile(p *Profile) *Profile {
	cp := *p
	cp.Specialties = append([]string(nil), p.Specialties...)
	cp.Gear = append([]string(nil), p.Gear...)
	if p.AvgRating != nil {
		v := *p.AvgRating
		cp.AvgRating = &v
	}
	if p.LastActiveAt != nil {
		v := *p.LastActiveAt
		cp.LastActiveAt = &v
	}
	return &cp
}
