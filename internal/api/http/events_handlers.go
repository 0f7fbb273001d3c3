package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/events"
)

// EventFeed is the read side of the event log.
type EventFeed interface {
	Since(ctx context.Context, after int64, limit int) ([]events.Record, error)
}

type eventsResp struct {
	Events []events.Record `json:"events"`
	Next   int64           `json:"next"`
}

// GET /events?after=0&limit=100
// Returns lifecycle events after the given sequence number, oldest first.
// Next is the cursor for the following call.
func ListEventsHandler(feed EventFeed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after := parseIntDefault(r.URL.Query().Get("after"), 0)
		limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
		if limit > 1000 {
			limit = 1000
		}
		recs, err := feed.Since(r.Context(), int64(after), limit)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := eventsResp{Events: recs, Next: int64(after)}
		if out.Events == nil {
			out.Events = []events.Record{}
		}
		if n := len(recs); n > 0 {
			out.Next = recs[n-1].Seq
		}
		respondJSON(w, http.StatusOK, out)
	}
}

func parseIntDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
