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

package progression

import (
	"context"
	"encoding/json"
	"log"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/identity"
	"github.com/doodleduel/doodleduel-go/pkg/kvStore"
	"github.com/doodleduel/doodleduel-go/pkg/platform"
	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

// MultiplierSource yields the effective score multiplier from a user's
// active effects.
type MultiplierSource interface {
	GetScoreMultiplier(ctx context.Context, userId sharedTypes.UserId) (float64, error)
}

type LeaderboardEntry struct {
	UserId   sharedTypes.UserId `json:"userId"`
	Score    int64              `json:"score"`
	Username string             `json:"username"`
}

type Manager interface {
	GetScore(ctx context.Context, userId sharedTypes.UserId) (int64, error)
	SetScore(ctx context.Context, userId sharedTypes.UserId, score int64) error

	// IncrementScore awards amount, optionally scaled by the user's
	// active multiplier, and returns the score before and after.
	IncrementScore(ctx context.Context, userId sharedTypes.UserId, amount int64, applyMultiplier bool) (int64, int64, error)

	GetLeaderboard(ctx context.Context, limit, offset int64) ([]LeaderboardEntry, error)

	HandleLevelUpJob(ctx context.Context, data json.RawMessage) error
}

func New(store kvStore.Manager, users identity.Manager, boosts MultiplierSource, realtime platform.Realtime) Manager {
	return &manager{
		store:    store,
		users:    users,
		boosts:   boosts,
		realtime: realtime,
	}
}

type manager struct {
	store    kvStore.Manager
	users    identity.Manager
	boosts   MultiplierSource
	realtime platform.Realtime
}

func getScoresKey() string {
	return "scores"
}

func (m *manager) GetScore(ctx context.Context, userId sharedTypes.UserId) (int64, error) {
	score, err := m.store.Global().ZScore(ctx, getScoresKey(), userId.String())
	if err != nil {
		if errors.IsNotFoundError(err) {
			return 0, nil
		}
		return 0, errors.Tag(err, "cannot read score")
	}
	return int64(score), nil
}

func (m *manager) SetScore(ctx context.Context, userId sharedTypes.UserId, score int64) error {
	err := m.store.Global().ZAdd(ctx, getScoresKey(), kvStore.Member{
		Member: userId.String(),
		Score:  float64(score),
	})
	if err != nil {
		return errors.Tag(err, "cannot write score")
	}
	return nil
}

func (m *manager) IncrementScore(ctx context.Context, userId sharedTypes.UserId, amount int64, applyMultiplier bool) (int64, int64, error) {
	if amount < 0 {
		return 0, 0, &errors.InvalidStateError{Msg: "negative score award"}
	}
	if applyMultiplier && m.boosts != nil {
		multiplier, err := m.boosts.GetScoreMultiplier(ctx, userId)
		if err != nil {
			// The award must not fail on a boost lookup hiccup.
			log.Printf("score multiplier for %s: %s", userId, err)
		} else {
			amount = int64(float64(amount) * multiplier)
		}
	}
	newScore, err := m.store.Global().ZIncrBy(
		ctx, getScoresKey(), float64(amount), userId.String(),
	)
	if err != nil {
		return 0, 0, errors.Tag(err, "cannot increment score")
	}
	return int64(newScore) - amount, int64(newScore), nil
}

func (m *manager) GetLeaderboard(ctx context.Context, limit, offset int64) ([]LeaderboardEntry, error) {
	if limit < 1 {
		return nil, &errors.ValidationError{Msg: "bad limit"}
	}
	if offset < 0 {
		return nil, &errors.ValidationError{Msg: "bad offset"}
	}
	members, err := m.store.Global().ZRange(
		ctx, getScoresKey(), offset, offset+limit-1, true,
	)
	if err != nil {
		return nil, errors.Tag(err, "cannot read leaderboard")
	}
	entries := make([]LeaderboardEntry, len(members))
	for i, member := range members {
		userId := sharedTypes.UserId(member.Member)
		username, err2 := m.users.GetUsername(ctx, userId)
		if err2 != nil {
			// Projection stays best-effort, an unresolvable name must
			// not hide the row.
			username = ""
		}
		entries[i] = LeaderboardEntry{
			UserId:   userId,
			Score:    int64(member.Score),
			Username: username,
		}
	}
	return entries, nil
}
