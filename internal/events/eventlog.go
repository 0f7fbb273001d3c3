package events

import (
	"context"
	"database/sql"
	"encoding/json"
)

// LogRepo appends events to the event_log table, keyed by attempt id.
type LogRepo struct {
	db     *sql.DB
	siteID string
}

func NewLogRepo(db *sql.DB, siteID string) *LogRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &LogRepo{db: db, siteID: siteID}
}

func (r *LogRepo) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		r.siteID, string(e.Type), e.AttemptID, string(data), e.At.Unix())
	return err
}

// Since returns events with seq greater than after, oldest first.
func (r *LogRepo) Since(ctx context.Context, after int64, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Seq, &rec.SiteID, &rec.Type, &rec.Key, &rec.DataJSON, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Record is a stored event_log row.
type Record struct {
	Seq       int64  `json:"seq"`
	SiteID    string `json:"siteId"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"createdAt"`
}
