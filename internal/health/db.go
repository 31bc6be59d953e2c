package health

import (
	"context"
	"fmt"

	"github.com/onnwee/creatorfeed/internal/tracing"
)

// dbPinger is satisfied by *sql.DB.
type dbPinger interface {
	PingContext(ctx context.Context) error
}

// DBChecker reports whether the creator database accepts connections. The
// ping runs inside a PING span so slow readiness checks show up in traces.
type DBChecker struct {
	db dbPinger
}

func NewDBChecker(db dbPinger) *DBChecker {
	return &DBChecker{db: db}
}

func (d *DBChecker) HealthCheck(ctx context.Context) (err error) {
	ctx, endSpan := tracing.StartPing(ctx)
	defer func() { endSpan(err) }()

	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	return nil
}
