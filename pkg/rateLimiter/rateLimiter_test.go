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

package rateLimiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/kvStore"
)

func newTestLimiter(t *testing.T) (Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return New(kvStore.New(client)), mr
}

func TestManager_IsLimited_boundary(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestLimiter(t)

	// With limit=3, exactly the 4th and 5th call in one window trip.
	want := []bool{false, false, false, true, true}
	for i, expected := range want {
		limited, err := m.IsLimited(ctx, "vote:u1", 3, time.Second)
		if err != nil {
			t.Fatalf("call %d: IsLimited() error = %v", i+1, err)
		}
		if limited != expected {
			t.Errorf("call %d: IsLimited() = %v, want %v", i+1, limited, expected)
		}
	}
}

func TestManager_IsLimited_windowReset(t *testing.T) {
	ctx := context.Background()
	m, mr := newTestLimiter(t)

	for i := 0; i < 4; i++ {
		if _, err := m.IsLimited(ctx, "guess:u1", 3, time.Second); err != nil {
			t.Fatalf("IsLimited() error = %v", err)
		}
	}
	limited, err := m.IsLimited(ctx, "guess:u1", 3, time.Second)
	if err != nil || !limited {
		t.Fatalf("IsLimited() = %v, %v, want true", limited, err)
	}

	mr.FastForward(2 * time.Second)

	limited, err = m.IsLimited(ctx, "guess:u1", 3, time.Second)
	if err != nil || limited {
		t.Errorf("IsLimited() after window = %v, %v, want false", limited, err)
	}
}

func TestManager_IsLimited_independentKeys(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestLimiter(t)

	for i := 0; i < 5; i++ {
		if _, err := m.IsLimited(ctx, "vote:u1", 3, time.Second); err != nil {
			t.Fatalf("IsLimited() error = %v", err)
		}
	}
	limited, err := m.IsLimited(ctx, "vote:u2", 3, time.Second)
	if err != nil || limited {
		t.Errorf("IsLimited(other user) = %v, %v, want false", limited, err)
	}
}

func TestManager_Check(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestLimiter(t)

	for i := 0; i < 2; i++ {
		if err := m.Check(ctx, "submit:u1", 2, time.Second); err != nil {
			t.Fatalf("Check() error = %v", err)
		}
	}
	err := m.Check(ctx, "submit:u1", 2, time.Second)
	if !errors.IsRateLimitedError(err) {
		t.Errorf("Check() error = %v, want RateLimitedError", err)
	}
}
