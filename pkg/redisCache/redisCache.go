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
	"encoding/json"
	"time"

	"github.com/doodleduel/doodleduel-go/pkg/kvStore"
)

// GetOrFill returns the cached value under key, or calls fill, stores
// its result for ttl and returns it. Fill errors bypass the cache; a
// malformed cached payload counts as a miss and is overwritten. There
// is no stampede protection, concurrent fillers race and the last write
// wins.
func GetOrFill[T any](ctx context.Context, store kvStore.Manager, key string, ttl time.Duration, fill func(ctx context.Context) (T, error)) (T, error) {
	var value T
	raw, err := store.Get(ctx, key)
	if err == nil {
		if err = json.Unmarshal([]byte(raw), &value); err == nil {
			return value, nil
		}
	}

	value, err = fill(ctx)
	if err != nil {
		return value, err
	}
	blob, err := json.Marshal(value)
	if err != nil {
		// Value computed fine, only caching is impossible.
		return value, nil
	}
	_ = store.Set(ctx, key, string(blob), ttl)
	return value, nil
}
