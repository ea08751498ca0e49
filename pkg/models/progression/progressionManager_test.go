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
	"reflect"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/doodleduel/doodleduel-go/pkg/identity"
	"github.com/doodleduel/doodleduel-go/pkg/kvStore"
	"github.com/doodleduel/doodleduel-go/pkg/platform"
	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

type fakeIdentity struct{}

func (f *fakeIdentity) GetUserById(ctx context.Context, id sharedTypes.UserId) (*platform.User, error) {
	return &platform.User{Id: id, Username: "name-" + id.String()}, nil
}

func (f *fakeIdentity) GetUserByUsername(ctx context.Context, username string) (*platform.User, error) {
	return &platform.User{Id: "u1", Username: username}, nil
}

func (f *fakeIdentity) GetModerators(ctx context.Context, community sharedTypes.Community) ([]sharedTypes.UserId, error) {
	return nil, nil
}

type fakeBoosts struct {
	multiplier float64
}

func (f *fakeBoosts) GetScoreMultiplier(ctx context.Context, userId sharedTypes.UserId) (float64, error) {
	return f.multiplier, nil
}

type fakeRealtime struct {
	events []string
}

func (f *fakeRealtime) Send(ctx context.Context, userId sharedTypes.UserId, event string, payload interface{}) {
	f.events = append(f.events, event)
}

func newTestManager(t *testing.T, boosts MultiplierSource) (Manager, *fakeRealtime) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	store := kvStore.New(client)
	realtime := &fakeRealtime{}
	return New(store, identity.New(store, &fakeIdentity{}), boosts, realtime), realtime
}

func TestManager_scores(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, nil)

	score, err := m.GetScore(ctx, "u1")
	if err != nil || score != 0 {
		t.Errorf("GetScore(fresh) = %d, %v, want 0", score, err)
	}

	before, after, err := m.IncrementScore(ctx, "u1", 10, false)
	if err != nil {
		t.Fatalf("IncrementScore() error = %v", err)
	}
	if before != 0 || after != 10 {
		t.Errorf("IncrementScore() = %d, %d, want 0, 10", before, after)
	}

	if err = m.SetScore(ctx, "u1", 42); err != nil {
		t.Fatalf("SetScore() error = %v", err)
	}
	score, err = m.GetScore(ctx, "u1")
	if err != nil || score != 42 {
		t.Errorf("GetScore() = %d, %v, want 42", score, err)
	}
}

func TestManager_IncrementScore_multiplier(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, &fakeBoosts{multiplier: 3})

	_, after, err := m.IncrementScore(ctx, "u1", 10, true)
	if err != nil {
		t.Fatalf("IncrementScore() error = %v", err)
	}
	if after != 30 {
		t.Errorf("IncrementScore() with x3 = %d, want 30", after)
	}

	// Payout-style awards skip the multiplier.
	_, after, err = m.IncrementScore(ctx, "u1", 10, false)
	if err != nil {
		t.Fatalf("IncrementScore() error = %v", err)
	}
	if after != 40 {
		t.Errorf("IncrementScore() flat = %d, want 40", after)
	}
}

func TestGetUserLevel(t *testing.T) {
	tests := []struct {
		name  string
		score int64
		want  int
	}{
		{name: "fresh", score: 0, want: 1},
		{name: "just below", score: 99, want: 1},
		{name: "boundary", score: 100, want: 2},
		{name: "mid table", score: 3000, want: 6},
		{name: "top", score: 2000000, want: 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetUserLevel(tt.score); got.Rank != tt.want {
				t.Errorf("GetUserLevel(%d) = %d, want %d", tt.score, got.Rank, tt.want)
			}
		})
	}
}

func TestManager_GetLeaderboard(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, nil)

	for userId, score := range map[sharedTypes.UserId]int64{
		"u1": 10, "u2": 30, "u3": 20,
	} {
		if err := m.SetScore(ctx, userId, score); err != nil {
			t.Fatalf("SetScore() error = %v", err)
		}
	}

	top, err := m.GetLeaderboard(ctx, 2, 0)
	if err != nil {
		t.Fatalf("GetLeaderboard() error = %v", err)
	}
	want := []LeaderboardEntry{
		{UserId: "u2", Score: 30, Username: "name-u2"},
		{UserId: "u3", Score: 20, Username: "name-u3"},
	}
	if !reflect.DeepEqual(top, want) {
		t.Errorf("GetLeaderboard() = %v, want %v", top, want)
	}

	rest, err := m.GetLeaderboard(ctx, 2, 2)
	if err != nil {
		t.Fatalf("GetLeaderboard(offset) error = %v", err)
	}
	if len(rest) != 1 || rest[0].UserId != "u1" {
		t.Errorf("GetLeaderboard(offset) = %v, want [u1]", rest)
	}
}

func TestManager_HandleLevelUpJob(t *testing.T) {
	ctx := context.Background()
	m, realtime := newTestManager(t, nil)

	if err := m.SetScore(ctx, "u1", 500); err != nil {
		t.Fatalf("SetScore() error = %v", err)
	}
	err := m.HandleLevelUpJob(ctx, []byte(`{"userId":"u1","legacy":1}`))
	if err != nil {
		t.Fatalf("HandleLevelUpJob() error = %v", err)
	}
	if !reflect.DeepEqual(realtime.events, []string{"level_up"}) {
		t.Errorf("events = %v, want [level_up]", realtime.events)
	}

	if err = m.HandleLevelUpJob(ctx, []byte(`{}`)); err == nil {
		t.Errorf("HandleLevelUpJob() without user did not fail")
	}
}
