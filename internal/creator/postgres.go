package creator

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/creatorfeed/internal/tracing"
)

// PostgresRepository implements ProfileRepository and MediaRepository on PostgreSQL.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}

const profileColumns = `
	p.user_id, p.display_name, p.base_city, p.bio, p.avg_rating::text,
	p.ratings_count, p.specialties, p.gear, p.travel_radius_km, p.last_active_at`

func scanProfile(row *sql.Rows) (*Profile, error) {
	var (
		p          Profile
		avgRating  sql.NullString
		lastActive sql.NullTime
	)
	err := row.Scan(
		&p.UserID, &p.DisplayName, &p.BaseCity, &p.Bio, &avgRating,
		&p.RatingsCount, pq.Array(&p.Specialties), pq.Array(&p.Gear),
		&p.TravelRadiusKm, &lastActive,
	)
	if err != nil {
		return nil, err
	}
	if avgRating.Valid {
		v := avgRating.String
		p.AvgRating = &v
	}
	if lastActive.Valid {
		t := lastActive.Time
		p.LastActiveAt = &t
	}
	return &p, nil
}

// ListAllCreatorProfiles returns every creator profile ordered by user id.
func (r *PostgresRepository) ListAllCreatorProfiles(ctx context.Context) (profiles []*Profile, err error) {
	ctx, endSpan := tracing.StartQuery(ctx, tracing.TableCreatorProfiles)
	defer func() { endSpan(err) }()

	rows, err := r.db.QueryContext(ctx, `SELECT`+profileColumns+` FROM creator_profiles p ORDER BY p.user_id`)
	if err != nil {
		r.logger.Error("failed to list creator profiles", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list creator profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, scanErr := scanProfile(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan creator profile: %w", scanErr)
		}
		profiles = append(profiles, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate creator profiles: %w", err)
	}
	return profiles, nil
}

// buildMediaQuery renders the feed media SQL with criteria pushed down to
// the owning profile. Array predicates look for each lower-cased term inside
// the lower-cased elements, the same substring match as Criteria.Matches.
func buildMediaQuery(q MediaQuery) (string, []any) {
	q = q.normalized()

	var sb strings.Builder
	args := []any{q.Purpose}

	sb.WriteString(`
		SELECT m.id, m.owner_id, m.type, m.aspect_ratio, m.public_url,
		       m.thumbnail_url, m.caption, m.purpose, m.created_at
		FROM media_assets m
		JOIN creator_profiles p ON p.user_id = m.owner_id
		WHERE m.purpose = $1`)

	if q.City != "" {
		args = append(args, strings.ToLower(q.City))
		sb.WriteString(` AND lower(p.base_city) = $` + strconv.Itoa(len(args)))
	}
	if len(q.Specialties) > 0 {
		args = append(args, pq.Array(lowerAll(q.Specialties)))
		sb.WriteString(` AND EXISTS (SELECT 1 FROM unnest(p.specialties) s, unnest($` + strconv.Itoa(len(args)) + `::text[]) t WHERE position(t in lower(s)) > 0)`)
	}
	if len(q.Gear) > 0 {
		args = append(args, pq.Array(lowerAll(q.Gear)))
		sb.WriteString(` AND EXISTS (SELECT 1 FROM unnest(p.gear) g, unnest($` + strconv.Itoa(len(args)) + `::text[]) t WHERE position(t in lower(g)) > 0)`)
	}
	if q.MinTravelRadiusKm > 0 {
		args = append(args, q.MinTravelRadiusKm)
		sb.WriteString(` AND p.travel_radius_km >= $` + strconv.Itoa(len(args)))
	}

	args = append(args, q.Limit)
	sb.WriteString(` ORDER BY m.created_at DESC, m.id ASC LIMIT $` + strconv.Itoa(len(args)))

	return sb.String(), args
}

// QueryFeedMedia returns feed media newest first with criteria pushed down.
func (r *PostgresRepository) QueryFeedMedia(ctx context.Context, q MediaQuery) (media []*MediaAsset, err error) {
	ctx, endSpan := tracing.StartQuery(ctx, tracing.TableMediaAssets, attribute.Int("feed.scan_limit", q.normalized().Limit))
	defer func() { endSpan(err) }()

	query, args := buildMediaQuery(q)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query feed media", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to query feed media: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m         MediaAsset
			mediaType string
		)
		if err = rows.Scan(&m.ID, &m.OwnerID, &mediaType, &m.AspectRatio, &m.PublicURL,
			&m.ThumbnailURL, &m.Caption, &m.Purpose, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan media asset: %w", err)
		}
		m.Type = MediaType(mediaType)
		media = append(media, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate media assets: %w", err)
	}
	return media, nil
}
