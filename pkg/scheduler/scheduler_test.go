// DoodleDuel - community drawing and guessing platform
// Copyright (C) 2026 DoodleDuel contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package scheduler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/doodleduel/doodleduel-go/pkg/kvStore"
)

func newTestScheduler(t *testing.T) Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return New(kvStore.New(client), func(format string, args ...interface{}) {})
}

func TestManager_RunJob(t *testing.T) {
	ctx := context.Background()
	m := newTestScheduler(t)

	id, err := m.RunJob(ctx, JobTournamentPayout, map[string]string{
		"postId": "p1",
	}, time.Time{})
	if err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}
	if id == "" {
		t.Errorf("RunJob() returned empty job id")
	}

	if _, err = m.RunJob(ctx, "", nil, time.Time{}); err == nil {
		t.Errorf("RunJob() with empty name did not fail")
	}
}

func TestManager_ProcessOnce(t *testing.T) {
	ctx := context.Background()
	m := newTestScheduler(t)

	type payload struct {
		PostId string `json:"postId"`
	}
	var got []payload
	m.Register(JobTournamentPayout, func(ctx context.Context, data json.RawMessage) error {
		p := payload{}
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		got = append(got, p)
		return nil
	})

	if _, err := m.RunJob(
		ctx, JobTournamentPayout, payload{PostId: "p1"}, time.Time{},
	); err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}
	if _, err := m.RunJob(
		ctx, JobTournamentPayout, payload{PostId: "p2"},
		time.Now().Add(time.Hour),
	); err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}

	n, err := m.ProcessOnce(ctx)
	if err != nil {
		t.Fatalf("ProcessOnce() error = %v", err)
	}
	if n != 1 {
		t.Errorf("ProcessOnce() = %d, want 1 (future job must stay queued)", n)
	}
	if len(got) != 1 || got[0].PostId != "p1" {
		t.Errorf("handled payloads = %v, want [{p1}]", got)
	}

	// The queue has drained for now.
	n, err = m.ProcessOnce(ctx)
	if err != nil || n != 0 {
		t.Errorf("second ProcessOnce() = %d, %v, want 0", n, err)
	}
}

func TestManager_ProcessOnce_reschedulingHandler(t *testing.T) {
	ctx := context.Background()
	m := newTestScheduler(t)

	runs := 0
	m.Register(JobSlateAggregator, func(ctx context.Context, data json.RawMessage) error {
		runs++
		if runs < 3 {
			// Recursive continuation, as the aggregator does.
			_, err := m.RunJob(ctx, JobSlateAggregator, nil, time.Time{})
			return err
		}
		return nil
	})

	if _, err := m.RunJob(ctx, JobSlateAggregator, nil, time.Time{}); err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}
	n, err := m.ProcessOnce(ctx)
	if err != nil {
		t.Fatalf("ProcessOnce() error = %v", err)
	}
	if n != 3 || runs != 3 {
		t.Errorf("ProcessOnce() = %d (runs %d), want 3 (3)", n, runs)
	}
}

func TestManager_ProcessOnce_unknownJob(t *testing.T) {
	ctx := context.Background()
	m := newTestScheduler(t)

	if _, err := m.RunJob(ctx, "NO_SUCH_JOB", nil, time.Time{}); err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}
	// The job is logged, dropped, and does not wedge the queue.
	n, err := m.ProcessOnce(ctx)
	if err != nil || n != 1 {
		t.Fatalf("ProcessOnce() = %d, %v, want 1", n, err)
	}
	n, err = m.ProcessOnce(ctx)
	if err != nil || n != 0 {
		t.Errorf("second ProcessOnce() = %d, %v, want 0", n, err)
	}
}
