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

package redisOptions

import (
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/doodleduel/doodleduel-go/pkg/options/env"
)

func Parse() *redis.UniversalOptions {
	return &redis.UniversalOptions{
		Addrs: strings.Split(
			env.GetString("REDIS_HOST", "localhost:6379"),
			",",
		),
		Password: env.GetString("REDIS_PASSWORD", ""),
		DB:       env.GetInt("REDIS_DB", 0),
		MaxRetries: env.GetInt(
			"REDIS_MAX_RETRIES_PER_REQUEST", 20,
		),
		PoolSize: env.GetInt("REDIS_POOL_SIZE", 0),
	}
}
