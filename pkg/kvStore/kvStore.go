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

package kvStore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
)

// Member is a sorted-set entry.
type Member struct {
	Member string
	Score  float64
}

type Manager interface {
	// Global returns a view on a separate namespace with identical
	// semantics. Community-scoped keys embed the community name; keys
	// shared across communities live in the global namespace.
	Global() Manager

	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, n int64) (int64, error)

	HGet(ctx context.Context, key, field string) (string, error)
	HSet(ctx context.Context, key string, fieldValues ...string) error
	HSetMap(ctx context.Context, key string, values map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, n int64) (int64, error)
	HDel(ctx context.Context, key string, fields ...string) error

	ZAdd(ctx context.Context, key string, members ...Member) error
	ZAddNX(ctx context.Context, key string, members ...Member) (int64, error)
	ZRem(ctx context.Context, key string, members ...string) error
	ZScore(ctx context.Context, key, member string) (float64, error)
	ZIncrBy(ctx context.Context, key string, increment float64, member string) (float64, error)
	ZCard(ctx context.Context, key string) (int64, error)
	ZCount(ctx context.Context, key, min, max string) (int64, error)
	ZRemRangeByRank(ctx context.Context, key string, start, stop int64) error
	ZRange(ctx context.Context, key string, start, stop int64, reverse bool) ([]Member, error)
	ZRangeByScore(ctx context.Context, key, min, max string, offset, count int64) ([]Member, error)
	ZPopMin(ctx context.Context, key string, count int64) ([]Member, error)
}

func New(client redis.UniversalClient) Manager {
	return &manager{client: client}
}

type manager struct {
	client redis.UniversalClient
	prefix string
}

const globalPrefix = "global:"

func (m *manager) Global() Manager {
	if m.prefix == globalPrefix {
		return m
	}
	return &manager{client: m.client, prefix: globalPrefix}
}

func (m *manager) key(key string) string {
	if m.prefix == "" {
		return key
	}
	return m.prefix + key
}

func (m *manager) Get(ctx context.Context, key string) (string, error) {
	raw, err := m.client.Get(ctx, m.key(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", &errors.NotFoundError{}
		}
		return "", errors.Tag(err, "get "+key)
	}
	return raw, nil
}

func (m *manager) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := m.client.Set(ctx, m.key(key), value, ttl).Err(); err != nil {
		return errors.Tag(err, "set "+key)
	}
	return nil
}

func (m *manager) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := m.client.SetNX(ctx, m.key(key), value, ttl).Result()
	if err != nil {
		return false, errors.Tag(err, "setnx "+key)
	}
	return ok, nil
}

func (m *manager) Del(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = m.key(k)
	}
	if err := m.client.Del(ctx, prefixed...).Err(); err != nil {
		return errors.Tag(err, "del")
	}
	return nil
}

func (m *manager) Exists(ctx context.Context, key string) (bool, error) {
	n, err := m.client.Exists(ctx, m.key(key)).Result()
	if err != nil {
		return false, errors.Tag(err, "exists "+key)
	}
	return n > 0, nil
}

func (m *manager) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := m.client.Expire(ctx, m.key(key), ttl).Err(); err != nil {
		return errors.Tag(err, "expire "+key)
	}
	return nil
}

func (m *manager) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	v, err := m.client.IncrBy(ctx, m.key(key), n).Result()
	if err != nil {
		return 0, errors.Tag(err, "incrby "+key)
	}
	return v, nil
}

func (m *manager) HGet(ctx context.Context, key, field string) (string, error) {
	raw, err := m.client.HGet(ctx, m.key(key), field).Result()
	if err != nil {
		if err == redis.Nil {
			return "", &errors.NotFoundError{}
		}
		return "", errors.Tag(err, "hget "+key)
	}
	return raw, nil
}

func (m *manager) HSet(ctx context.Context, key string, fieldValues ...string) error {
	args := make([]interface{}, len(fieldValues))
	for i, v := range fieldValues {
		args[i] = v
	}
	if err := m.client.HSet(ctx, m.key(key), args...).Err(); err != nil {
		return errors.Tag(err, "hset "+key)
	}
	return nil
}

func (m *manager) HSetMap(ctx context.Context, key string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	if err := m.client.HSet(ctx, m.key(key), values).Err(); err != nil {
		return errors.Tag(err, "hset "+key)
	}
	return nil
}

func (m *manager) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	values, err := m.client.HGetAll(ctx, m.key(key)).Result()
	if err != nil {
		return nil, errors.Tag(err, "hgetall "+key)
	}
	return values, nil
}

func (m *manager) HIncrBy(ctx context.Context, key, field string, n int64) (int64, error) {
	v, err := m.client.HIncrBy(ctx, m.key(key), field, n).Result()
	if err != nil {
		return 0, errors.Tag(err, "hincrby "+key)
	}
	return v, nil
}

func (m *manager) HDel(ctx context.Context, key string, fields ...string) error {
	if err := m.client.HDel(ctx, m.key(key), fields...).Err(); err != nil {
		return errors.Tag(err, "hdel "+key)
	}
	return nil
}

func toZ(members []Member) []redis.Z {
	zs := make([]redis.Z, len(members))
	for i, member := range members {
		zs[i] = redis.Z{Score: member.Score, Member: member.Member}
	}
	return zs
}

func fromZ(zs []redis.Z) ([]Member, error) {
	members := make([]Member, len(zs))
	for i, z := range zs {
		s, ok := z.Member.(string)
		if !ok {
			return nil, errors.New("unexpected sorted set member")
		}
		members[i] = Member{Member: s, Score: z.Score}
	}
	return members, nil
}

func (m *manager) ZAdd(ctx context.Context, key string, members ...Member) error {
	if err := m.client.ZAdd(ctx, m.key(key), toZ(members)...).Err(); err != nil {
		return errors.Tag(err, "zadd "+key)
	}
	return nil
}

func (m *manager) ZAddNX(ctx context.Context, key string, members ...Member) (int64, error) {
	added, err := m.client.ZAddNX(ctx, m.key(key), toZ(members)...).Result()
	if err != nil {
		return 0, errors.Tag(err, "zaddnx "+key)
	}
	return added, nil
}

func (m *manager) ZRem(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, member := range members {
		args[i] = member
	}
	if err := m.client.ZRem(ctx, m.key(key), args...).Err(); err != nil {
		return errors.Tag(err, "zrem "+key)
	}
	return nil
}

func (m *manager) ZScore(ctx context.Context, key, member string) (float64, error) {
	score, err := m.client.ZScore(ctx, m.key(key), member).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, &errors.NotFoundError{}
		}
		return 0, errors.Tag(err, "zscore "+key)
	}
	return score, nil
}

func (m *manager) ZIncrBy(ctx context.Context, key string, increment float64, member string) (float64, error) {
	score, err := m.client.ZIncrBy(ctx, m.key(key), increment, member).Result()
	if err != nil {
		return 0, errors.Tag(err, "zincrby "+key)
	}
	return score, nil
}

func (m *manager) ZCard(ctx context.Context, key string) (int64, error) {
	n, err := m.client.ZCard(ctx, m.key(key)).Result()
	if err != nil {
		return 0, errors.Tag(err, "zcard "+key)
	}
	return n, nil
}

func (m *manager) ZCount(ctx context.Context, key, min, max string) (int64, error) {
	n, err := m.client.ZCount(ctx, m.key(key), min, max).Result()
	if err != nil {
		return 0, errors.Tag(err, "zcount "+key)
	}
	return n, nil
}

func (m *manager) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) error {
	err := m.client.ZRemRangeByRank(ctx, m.key(key), start, stop).Err()
	if err != nil {
		return errors.Tag(err, "zremrangebyrank "+key)
	}
	return nil
}

func (m *manager) ZRange(ctx context.Context, key string, start, stop int64, reverse bool) ([]Member, error) {
	var res *redis.ZSliceCmd
	if reverse {
		res = m.client.ZRevRangeWithScores(ctx, m.key(key), start, stop)
	} else {
		res = m.client.ZRangeWithScores(ctx, m.key(key), start, stop)
	}
	zs, err := res.Result()
	if err != nil {
		return nil, errors.Tag(err, "zrange "+key)
	}
	return fromZ(zs)
}

func (m *manager) ZRangeByScore(ctx context.Context, key, min, max string, offset, count int64) ([]Member, error) {
	zs, err := m.client.ZRangeByScoreWithScores(ctx, m.key(key), &redis.ZRangeBy{
		Min:    min,
		Max:    max,
		Offset: offset,
		Count:  count,
	}).Result()
	if err != nil {
		return nil, errors.Tag(err, "zrangebyscore "+key)
	}
	return fromZ(zs)
}

func (m *manager) ZPopMin(ctx context.Context, key string, count int64) ([]Member, error) {
	zs, err := m.client.ZPopMin(ctx, m.key(key), count).Result()
	if err != nil {
		return nil, errors.Tag(err, "zpopmin "+key)
	}
	return fromZ(zs)
}
