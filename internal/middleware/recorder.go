package middleware

import (
	"context"
	"net/http"
)

// statusRecorder remembers the status and body size of a response, and the
// viewer and error code handlers report through UpdateResponseContext.
type statusRecorder struct {
	http.ResponseWriter
	status    int
	written   int64
	userID    string
	errorCode string
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w}
}

// WriteHeader forwards the first status only, like net/http does.
func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status != 0 {
		return
	}
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.WriteHeader(http.StatusOK)
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.written += int64(n)
	return n, err
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// Status returns the response status, 200 if the handler wrote nothing.
func (sr *statusRecorder) Status() int {
	if sr.status == 0 {
		return http.StatusOK
	}
	return sr.status
}

func (sr *statusRecorder) observe(ctx context.Context) {
	if id := GetUserID(ctx); id != "" {
		sr.userID = id
	}
	if code := GetErrorCode(ctx); code != "" {
		sr.errorCode = code
	}
}

// UpdateResponseContext copies the viewer id and error code held by ctx onto
// every recorder wrapping w. Contexts only travel down the handler chain, so
// handlers call this for values the outer middleware report on.
func UpdateResponseContext(w http.ResponseWriter, ctx context.Context) {
	for w != nil {
		if sr, ok := w.(*statusRecorder); ok {
			sr.observe(ctx)
		}
		u, ok := w.(interface{ Unwrap() http.ResponseWriter })
		if !ok {
			return
		}
		w = u.Unwrap()
	}
}
