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
	"log"
	"time"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/kvStore"
)

type Manager interface {
	// IsLimited counts this call against the window and reports whether
	// the caller exceeded the limit. The counter expires with the
	// window; resolution is one bucket per window.
	IsLimited(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)

	// Check is IsLimited with the spec error taxonomy applied: a
	// RateLimitedError when limited, nil otherwise. Transient counter
	// failures fail open, limits are advisory.
	Check(ctx context.Context, key string, limit int64, window time.Duration) error
}

func New(store kvStore.Manager) Manager {
	return &manager{store: store}
}

type manager struct {
	store kvStore.Manager
}

func getRateKey(key string) string {
	return "rate:" + key
}

func (m *manager) IsLimited(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	fullKey := getRateKey(key)
	count, err := m.store.IncrBy(ctx, fullKey, 1)
	if err != nil {
		return false, errors.Tag(err, "cannot count against window")
	}
	if count == 1 {
		if err = m.store.Expire(ctx, fullKey, window); err != nil {
			return false, errors.Tag(err, "cannot expire window")
		}
	}
	return count > limit, nil
}

func (m *manager) Check(ctx context.Context, key string, limit int64, window time.Duration) error {
	limited, err := m.IsLimited(ctx, key, limit, window)
	if err != nil {
		log.Printf("rate limiter failing open: %s", err)
		return nil
	}
	if limited {
		return &errors.RateLimitedError{}
	}
	return nil
}
