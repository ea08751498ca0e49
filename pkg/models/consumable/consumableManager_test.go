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

package consumable

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/kvStore"
	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

type fakeRealtime struct {
	events []string
}

func (f *fakeRealtime) Send(ctx context.Context, userId sharedTypes.UserId, event string, payload interface{}) {
	f.events = append(f.events, event)
}

func newTestManager(t *testing.T) (*manager, *fakeRealtime) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	realtime := &fakeRealtime{}
	return New(kvStore.New(client), realtime).(*manager), realtime
}

func TestManager_inventory(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	if err := m.GrantItem(ctx, "u1", "double_score_30m", 2); err != nil {
		t.Fatalf("GrantItem() error = %v", err)
	}
	if err := m.GrantItem(ctx, "u1", "no_such_item", 1); !errors.IsValidationError(err) {
		t.Errorf("GrantItem(unknown) error = %v, want ValidationError", err)
	}

	inventory, err := m.GetInventory(ctx, "u1")
	if err != nil {
		t.Fatalf("GetInventory() error = %v", err)
	}
	if inventory["double_score_30m"] != 2 {
		t.Errorf("inventory = %v, want double_score_30m: 2", inventory)
	}
}

func TestManager_Activate(t *testing.T) {
	ctx := context.Background()
	m, realtime := newTestManager(t)

	if _, err := m.Activate(
		ctx, "u1", "double_score_30m",
	); !errors.IsValidationError(err) {
		t.Errorf("Activate() without inventory error = %v, want ValidationError", err)
	}

	if err := m.GrantItem(ctx, "u1", "double_score_30m", 1); err != nil {
		t.Fatalf("GrantItem() error = %v", err)
	}
	effect, err := m.Activate(ctx, "u1", "double_score_30m")
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if effect.Kind != KindScoreMultiplier || effect.Multiplier != 2 {
		t.Errorf("effect = %+v, want x2 score multiplier", effect)
	}
	if len(realtime.events) != 1 || realtime.events[0] != "effects_updated" {
		t.Errorf("events = %v, want [effects_updated]", realtime.events)
	}

	// The single unit is consumed.
	inventory, err := m.GetInventory(ctx, "u1")
	if err != nil || len(inventory) != 0 {
		t.Errorf("inventory = %v, %v, want empty", inventory, err)
	}
	if _, err = m.Activate(
		ctx, "u1", "double_score_30m",
	); !errors.IsValidationError(err) {
		t.Errorf("second Activate() error = %v, want ValidationError", err)
	}

	effects, err := m.GetActiveEffects(ctx, "u1")
	if err != nil || len(effects) != 1 {
		t.Fatalf("GetActiveEffects() = %v, %v, want one effect", effects, err)
	}
	if effects[0].ActivationId != effect.ActivationId {
		t.Errorf("active effect = %+v, want %s", effects[0], effect.ActivationId)
	}
}

func TestManager_GetActiveEffects_prunesExpired(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	if err := m.GrantItem(ctx, "u1", "double_score_30m", 1); err != nil {
		t.Fatalf("GrantItem() error = %v", err)
	}
	if err := m.GrantItem(ctx, "u1", "extra_time_30s", 1); err != nil {
		t.Fatalf("GrantItem() error = %v", err)
	}
	if _, err := m.Activate(ctx, "u1", "double_score_30m"); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if _, err := m.Activate(ctx, "u1", "extra_time_30s"); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	// Jump past the multiplier's 30 minutes, not past the hour.
	base := time.Now()
	m.now = func() time.Time {
		return base.Add(45 * time.Minute)
	}

	effects, err := m.GetActiveEffects(ctx, "u1")
	if err != nil {
		t.Fatalf("GetActiveEffects() error = %v", err)
	}
	if len(effects) != 1 || effects[0].Kind != KindExtraDrawingTime {
		t.Fatalf("effects = %v, want only the extra time boost", effects)
	}
	for _, effect := range effects {
		if !effect.ExpiresAt.After(m.now()) {
			t.Errorf("returned expired effect %+v", effect)
		}
	}

	// The expired activation is gone from the boost zset now.
	members, err := m.store.ZRange(ctx, "user:active_boosts:u1", 0, -1, false)
	if err != nil || len(members) != 1 {
		t.Errorf("active_boosts = %v, %v, want one member", members, err)
	}
}

func TestManager_GetScoreMultiplier(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	multiplier, err := m.GetScoreMultiplier(ctx, "u1")
	if err != nil || multiplier != 1 {
		t.Errorf("GetScoreMultiplier(none) = %f, %v, want 1", multiplier, err)
	}

	for _, itemId := range []string{"double_score_30m", "triple_score_10m"} {
		if err = m.GrantItem(ctx, "u1", itemId, 1); err != nil {
			t.Fatalf("GrantItem() error = %v", err)
		}
		if _, err = m.Activate(ctx, "u1", itemId); err != nil {
			t.Fatalf("Activate() error = %v", err)
		}
	}

	// Non-stacking: the maximum wins.
	multiplier, err = m.GetScoreMultiplier(ctx, "u1")
	if err != nil || multiplier != 3 {
		t.Errorf("GetScoreMultiplier() = %f, %v, want 3", multiplier, err)
	}
}

func TestManager_GetExtraDrawingTime(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	for _, itemId := range []string{"extra_time_30s", "extra_time_60s"} {
		if err := m.GrantItem(ctx, "u1", itemId, 1); err != nil {
			t.Fatalf("GrantItem() error = %v", err)
		}
		if _, err := m.Activate(ctx, "u1", itemId); err != nil {
			t.Fatalf("Activate() error = %v", err)
		}
	}

	// Additive across active effects.
	extra, err := m.GetExtraDrawingTime(ctx, "u1")
	if err != nil || extra != 90*time.Second {
		t.Errorf("GetExtraDrawingTime() = %v, %v, want 90s", extra, err)
	}
}
