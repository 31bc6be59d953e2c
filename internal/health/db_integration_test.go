//go:build integration

package health

import (
	"context"
	"testing"

	"github.com/onnwee/creatorfeed/internal/testdb"
)

func TestDBChecker_Integration(t *testing.T) {
	db := testdb.Start(t)
	if err := NewDBChecker(db).HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy database, got %v", err)
	}
}
