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

package tournament

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/kvStore"
	"github.com/doodleduel/doodleduel-go/pkg/scheduler"
	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

func getHopperKey(c sharedTypes.Community) string {
	return "tournament:hopper:" + c.String()
}

func getSchedulerEnabledKey(c sharedTypes.Community) string {
	return "tournament:scheduler:enabled:" + c.String()
}

func getSchedulerLockKey(c sharedTypes.Community) string {
	return "tournament:scheduler:lock:" + c.String()
}

func (m *manager) AddPrompt(ctx context.Context, c sharedTypes.Community, raw string) error {
	w, err := sharedTypes.NormalizeWord(raw)
	if err != nil {
		return err
	}
	// FIFO by insertion time; NX keeps a re-added prompt in place.
	_, err = m.store.ZAddNX(ctx, getHopperKey(c), kvStore.Member{
		Member: w.String(),
		Score:  float64(m.now().UnixNano()),
	})
	if err != nil {
		return errors.Tag(err, "cannot add prompt to hopper")
	}
	return nil
}

func (m *manager) GetHopper(ctx context.Context, c sharedTypes.Community) ([]sharedTypes.Word, error) {
	members, err := m.store.ZRange(ctx, getHopperKey(c), 0, -1, false)
	if err != nil {
		return nil, errors.Tag(err, "cannot read hopper")
	}
	words := make([]sharedTypes.Word, len(members))
	for i, member := range members {
		words[i] = sharedTypes.Word(member.Member)
	}
	return words, nil
}

func (m *manager) SetSchedulerEnabled(ctx context.Context, c sharedTypes.Community, enabled bool) error {
	if !enabled {
		return m.store.Del(ctx, getSchedulerEnabledKey(c))
	}
	return m.store.Set(ctx, getSchedulerEnabledKey(c), "true", 0)
}

func (m *manager) isSchedulerEnabled(ctx context.Context, c sharedTypes.Community) (bool, error) {
	raw, err := m.store.Get(ctx, getSchedulerEnabledKey(c))
	if err != nil {
		if errors.IsNotFoundError(err) {
			return false, nil
		}
		return false, errors.Tag(err, "cannot read scheduler flag")
	}
	return raw == "true", nil
}

// SchedulerTick consumes the oldest hopper prompt into a fresh
// tournament. Returns (nil, nil) when there is nothing to do.
func (m *manager) SchedulerTick(ctx context.Context, c sharedTypes.Community) (*Tournament, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	enabled, err := m.isSchedulerEnabled(ctx, c)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, nil
	}
	lock, err := m.locker.TryAcquire(
		ctx, getSchedulerLockKey(c), m.options.SchedulerLockTTL,
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = lock.Release()
	}()

	head, err := m.store.ZRange(ctx, getHopperKey(c), 0, 0, false)
	if err != nil {
		return nil, errors.Tag(err, "cannot peek hopper")
	}
	if len(head) == 0 {
		return nil, nil
	}
	word := sharedTypes.Word(head[0].Member)

	post, err := m.content.SubmitPost(
		ctx, c, "Tournament: draw \""+word.String()+"\"",
	)
	if err != nil {
		return nil, errors.Tag(err, "cannot create tournament post")
	}
	createdAt := m.now()
	t := &Tournament{
		PostId:    post.Id,
		Word:      word,
		CreatedAt: createdAt,
	}
	err = m.store.HSetMap(ctx, getTournamentKey(post.Id), map[string]string{
		"type":      "tournament",
		"word":      word.String(),
		"createdAt": strconv.FormatInt(createdAt.Unix(), 10),
		"votes":     "0",
	})
	if err != nil {
		return nil, errors.Tag(err, "cannot persist tournament")
	}
	err = m.store.Global().ZAdd(ctx, getTournamentsIndexKey(), kvStore.Member{
		Member: post.Id.String(),
		Score:  float64(createdAt.Unix()),
	})
	if err != nil {
		return nil, errors.Tag(err, "cannot index tournament")
	}
	if err = m.store.ZRem(ctx, getHopperKey(c), word.String()); err != nil {
		return nil, errors.Tag(err, "cannot consume hopper prompt")
	}

	_, err = m.jobs.RunJob(
		ctx, scheduler.JobCreatePinnedPostComment,
		map[string]string{"postId": post.Id.String()},
		time.Time{},
	)
	if err != nil {
		return nil, errors.Tag(err, "cannot enqueue pinned comment job")
	}
	for k := 1; k <= m.options.SnapshotCount; k++ {
		_, err = m.jobs.RunJob(
			ctx, scheduler.JobTournamentPayout,
			PayoutPayload{PostId: post.Id, DayIndex: k},
			createdAt.Add(time.Duration(k)*m.options.PayoutWindow),
		)
		if err != nil {
			return nil, errors.Tag(err, "cannot enqueue payout job")
		}
	}
	return t, nil
}

// SchedulerPayload is the TOURNAMENT_SCHEDULER job contract. Unknown
// fields are ignored.
type SchedulerPayload struct {
	Community sharedTypes.Community `json:"community"`
}

func (m *manager) HandleSchedulerJob(ctx context.Context, data json.RawMessage) error {
	payload := SchedulerPayload{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return &errors.ValidationError{Msg: "malformed scheduler payload"}
	}
	_, err := m.SchedulerTick(ctx, payload.Community)
	if errors.IsAlreadyRunning(err) {
		return nil
	}
	return err
}
