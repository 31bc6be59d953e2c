package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusRecorder_DefaultsTo200(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	if rec.Status() != http.StatusOK {
		t.Errorf("Status() = %d before any write, want 200", rec.Status())
	}

	_, _ = rec.Write([]byte(`{"results":[]}`))
	if rec.Status() != http.StatusOK || rec.written != 14 {
		t.Errorf("got status %d size %d, want 200 and 14", rec.Status(), rec.written)
	}
}

func TestStatusRecorder_FirstStatusWins(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := newStatusRecorder(rr)

	rec.WriteHeader(http.StatusTooManyRequests)
	rec.WriteHeader(http.StatusOK)

	if rec.Status() != http.StatusTooManyRequests || rr.Code != http.StatusTooManyRequests {
		t.Errorf("recorded %d, sent %d, want 429 for both", rec.Status(), rr.Code)
	}
}

// opaqueWriter stands in for a third-party wrapper between two recorders.
type opaqueWriter struct{ http.ResponseWriter }

func (o opaqueWriter) Unwrap() http.ResponseWriter { return o.ResponseWriter }

func TestUpdateResponseContext_ReachesEveryRecorder(t *testing.T) {
	outer := newStatusRecorder(httptest.NewRecorder())
	inner := newStatusRecorder(opaqueWriter{outer})

	ctx := SetErrorCode(SetUserID(context.Background(), "viewer-1"), "not_found")
	UpdateResponseContext(opaqueWriter{inner}, ctx)

	for name, rec := range map[string]*statusRecorder{"outer": outer, "inner": inner} {
		if rec.userID != "viewer-1" || rec.errorCode != "not_found" {
			t.Errorf("%s recorder got user %q code %q", name, rec.userID, rec.errorCode)
		}
	}
}

func TestUpdateResponseContext_KeepsEarlierValues(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	UpdateResponseContext(rec, SetUserID(context.Background(), "viewer-1"))
	UpdateResponseContext(rec, SetErrorCode(context.Background(), "rate_limited"))

	if rec.userID != "viewer-1" || rec.errorCode != "rate_limited" {
		t.Errorf("got user %q code %q", rec.userID, rec.errorCode)
	}
}

func TestUpdateResponseContext_PlainWriter(t *testing.T) {
	// Must not panic without a recorder in the chain.
	UpdateResponseContext(httptest.NewRecorder(), SetUserID(context.Background(), "viewer-1"))
	UpdateResponseContext(nil, context.Background())
}
