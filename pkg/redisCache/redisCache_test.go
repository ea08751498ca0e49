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

package redisCache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/kvStore"
)

func newTestStore(t *testing.T) (kvStore.Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return kvStore.New(client), mr
}

func TestGetOrFill(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	calls := 0
	fill := func(ctx context.Context) (string, error) {
		calls++
		return "value", nil
	}

	got, err := GetOrFill(ctx, store, "k", time.Minute, fill)
	if err != nil || got != "value" {
		t.Fatalf("GetOrFill() = %v, %v", got, err)
	}
	got, err = GetOrFill(ctx, store, "k", time.Minute, fill)
	if err != nil || got != "value" {
		t.Fatalf("second GetOrFill() = %v, %v", got, err)
	}
	if calls != 1 {
		t.Errorf("fill calls = %d, want 1", calls)
	}
}

func TestGetOrFill_expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	calls := 0
	fill := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	if _, err := GetOrFill(ctx, store, "k", time.Minute, fill); err != nil {
		t.Fatalf("GetOrFill() error = %v", err)
	}
	mr.FastForward(2 * time.Minute)
	got, err := GetOrFill(ctx, store, "k", time.Minute, fill)
	if err != nil {
		t.Fatalf("GetOrFill() error = %v", err)
	}
	if got != 2 || calls != 2 {
		t.Errorf("GetOrFill() after expiry = %d (calls %d), want 2 (2)", got, calls)
	}
}

func TestGetOrFill_fillErrorBypasses(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	wantErr := errors.New("upstream down")
	_, err := GetOrFill(ctx, store, "k", time.Minute, func(ctx context.Context) (string, error) {
		return "", wantErr
	})
	if err != wantErr {
		t.Fatalf("GetOrFill() error = %v, want %v", err, wantErr)
	}

	// Nothing must have been cached for the failed fill.
	got, err := GetOrFill(ctx, store, "k", time.Minute, func(ctx context.Context) (string, error) {
		return "recovered", nil
	})
	if err != nil || got != "recovered" {
		t.Errorf("GetOrFill() after failure = %v, %v, want recovered", got, err)
	}
}

func TestGetOrFill_malformedPayloadIsMiss(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if err := store.Set(ctx, "k", "{not json", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	type value struct {
		N int `json:"n"`
	}
	got, err := GetOrFill(ctx, store, "k", time.Minute, func(ctx context.Context) (value, error) {
		return value{N: 7}, nil
	})
	if err != nil || got.N != 7 {
		t.Errorf("GetOrFill() = %+v, %v, want {7}", got, err)
	}
}
