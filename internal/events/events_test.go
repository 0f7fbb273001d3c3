package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/db"
)

type captureSink struct {
	got []Event
	err error
}

func (c *captureSink) Publish(_ context.Context, e Event) error {
	c.got = append(c.got, e)
	return c.err
}

func TestMultiFansOutAndJoinsErrors(t *testing.T) {
	boom := errors.New("broker down")
	ok, bad := &captureSink{}, &captureSink{err: boom}
	m := Multi{ok, nil, bad, Discard{}}

	err := m.Publish(context.Background(), Event{ID: "e1", Type: AttemptStarted})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want broker error", err)
	}
	if len(ok.got) != 1 || len(bad.got) != 1 {
		t.Fatalf("delivered ok=%d bad=%d", len(ok.got), len(bad.got))
	}
	if err := (Multi{ok}).Publish(context.Background(), Event{}); err != nil {
		t.Fatalf("clean fan-out returned %v", err)
	}
}

func TestLogRepoAppendAndSince(t *testing.T) {
	name := strings.ReplaceAll(t.Name(), "/", "_")
	conn, err := db.Open(context.Background(), db.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	repo := NewLogRepo(conn, "")
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, typ := range []Type{AttemptStarted, AttemptSubmitted, AttemptGraded} {
		e := Event{ID: string(rune('a' + i)), Type: typ, AttemptID: "att-1", QuizID: "quiz-1", UserID: "u1", At: at,
			Data: map[string]any{"n": i}}
		if err := repo.Publish(ctx, e); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	all, err := repo.Since(ctx, 0, 0)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(all) != 3 || all[0].Type != string(AttemptStarted) || all[2].Type != string(AttemptGraded) {
		t.Fatalf("records = %+v", all)
	}
	if all[0].SiteID != "local" || all[0].Key != "att-1" || all[0].CreatedAt != at.Unix() {
		t.Fatalf("first record = %+v", all[0])
	}
	var decoded Event
	if err := json.Unmarshal([]byte(all[1].DataJSON), &decoded); err != nil || decoded.QuizID != "quiz-1" {
		t.Fatalf("payload %q: %v", all[1].DataJSON, err)
	}

	tail, err := repo.Since(ctx, all[0].Seq, 1)
	if err != nil {
		t.Fatalf("Since tail: %v", err)
	}
	if len(tail) != 1 || tail[0].Seq != all[1].Seq {
		t.Fatalf("tail = %+v", tail)
	}
}
