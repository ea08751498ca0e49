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
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/kvStore"
)

// Recognized job names.
const (
	JobSlateAggregator             = "SLATE_AGGREGATOR"
	JobTournamentScheduler         = "TOURNAMENT_SCHEDULER"
	JobTournamentPayout            = "TOURNAMENT_PAYOUT"
	JobUserLevelUp                 = "USER_LEVEL_UP"
	JobSetUserFlair                = "SET_USER_FLAIR"
	JobCreatePinnedPostComment     = "CREATE_PINNED_POST_COMMENT"
	JobCreateTournamentPostComment = "CREATE_TOURNAMENT_POST_COMMENT"
	JobUpdatePinnedComment         = "UPDATE_PINNED_COMMENT"
)

const (
	// MaxJobRuntime bounds a single handler invocation.
	MaxJobRuntime = 60 * time.Second
	// ContinueBefore is the point at which a handler with remaining
	// work must have enqueued its continuation.
	ContinueBefore = 50 * time.Second

	payloadTTL = 7 * 24 * time.Hour
)

// HandlerFunc processes one job payload. Deliveries carry no
// at-most-once guarantee, handlers are idempotent via locks/ledgers.
type HandlerFunc func(ctx context.Context, data json.RawMessage) error

// Client enqueues jobs for a wall-clock time.
type Client interface {
	// RunJob accepts a job and returns its non-empty opaque id. A zero
	// runAt means "as soon as possible".
	RunJob(ctx context.Context, name string, data interface{}, runAt time.Time) (string, error)
}

type Manager interface {
	Client

	Register(name string, handler HandlerFunc)

	// ProcessOnce pops and dispatches all currently due jobs, returning
	// how many were handled.
	ProcessOnce(ctx context.Context) (int, error)

	// Run polls for due jobs until ctx is cancelled.
	Run(ctx context.Context, pollInterval time.Duration)
}

func New(store kvStore.Manager, log func(format string, args ...interface{})) Manager {
	return &manager{
		store:    store,
		log:      log,
		handlers: map[string]HandlerFunc{},
	}
}

type manager struct {
	store    kvStore.Manager
	log      func(format string, args ...interface{})
	handlers map[string]HandlerFunc
}

func getQueueKey() string {
	return "jobs:queue"
}

func getPayloadKey(id string) string {
	return "jobs:payload:" + id
}

func (m *manager) RunJob(ctx context.Context, name string, data interface{}, runAt time.Time) (string, error) {
	if name == "" {
		return "", &errors.ValidationError{Msg: "missing job name"}
	}
	blob, err := json.Marshal(data)
	if err != nil {
		return "", errors.Tag(err, "cannot serialize job data")
	}
	if runAt.IsZero() {
		runAt = time.Now()
	}
	id := uuid.NewString()
	err = m.store.HSetMap(ctx, getPayloadKey(id), map[string]string{
		"name": name,
		"data": string(blob),
	})
	if err != nil {
		return "", errors.Tag(err, "cannot persist job payload")
	}
	if err = m.store.Expire(ctx, getPayloadKey(id), payloadTTL); err != nil {
		return "", errors.Tag(err, "cannot expire job payload")
	}
	err = m.store.ZAdd(ctx, getQueueKey(), kvStore.Member{
		Member: id,
		Score:  float64(runAt.Unix()),
	})
	if err != nil {
		return "", errors.Tag(err, "cannot enqueue job")
	}
	return id, nil
}

func (m *manager) Register(name string, handler HandlerFunc) {
	m.handlers[name] = handler
}

// popDue returns the id of the next due job, or "" when the queue has
// drained. A job popped early due to racing schedulers is re-added.
func (m *manager) popDue(ctx context.Context, now time.Time) (string, error) {
	due, err := m.store.ZRangeByScore(
		ctx, getQueueKey(),
		"0", strconv.FormatInt(now.Unix(), 10),
		0, 1,
	)
	if err != nil {
		return "", errors.Tag(err, "cannot check for due jobs")
	}
	if len(due) == 0 {
		return "", nil
	}
	popped, err := m.store.ZPopMin(ctx, getQueueKey(), 1)
	if err != nil {
		return "", errors.Tag(err, "cannot pop job")
	}
	if len(popped) == 0 {
		return "", nil
	}
	if popped[0].Score > float64(now.Unix()) {
		if err = m.store.ZAdd(ctx, getQueueKey(), popped[0]); err != nil {
			return "", errors.Tag(err, "cannot requeue future job")
		}
		return "", nil
	}
	return popped[0].Member, nil
}

func (m *manager) dispatch(ctx context.Context, id string) error {
	payload, err := m.store.HGetAll(ctx, getPayloadKey(id))
	if err != nil {
		return errors.Tag(err, "cannot get job payload")
	}
	name := payload["name"]
	handler, ok := m.handlers[name]
	if !ok {
		return errors.New("no handler for job: " + name)
	}

	jobCtx, done := context.WithTimeout(ctx, MaxJobRuntime)
	defer done()
	if err = handler(jobCtx, json.RawMessage(payload["data"])); err != nil {
		return errors.Tag(err, "job failed: "+name)
	}
	_ = m.store.Del(ctx, getPayloadKey(id))
	return nil
}

func (m *manager) ProcessOnce(ctx context.Context) (int, error) {
	n := 0
	for {
		id, err := m.popDue(ctx, time.Now())
		if err != nil {
			return n, err
		}
		if id == "" {
			return n, nil
		}
		if err = m.dispatch(ctx, id); err != nil {
			m.log("scheduler: %s", err)
		}
		n++
	}
}

func (m *manager) Run(ctx context.Context, pollInterval time.Duration) {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if _, err := m.ProcessOnce(ctx); err != nil {
			m.log("scheduler: %s", err)
		}
	}
}
