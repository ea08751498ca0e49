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

package redisLocker

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
)

type Runner func(ctx context.Context)

// Locker hands out lease locks. Leases can expire before the protected
// work completes; every protected write set must stay safe under a lost
// lease (monotone counter adds, absolute-value zadds, ledger flags).
type Locker interface {
	// TryAcquire returns an AlreadyRunningError when the key is held
	// elsewhere.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error)
	// TryRunWithLock bounds runner by the lease via context deadline.
	TryRunWithLock(ctx context.Context, key string, ttl time.Duration, runner Runner) error
}

func New(client redis.UniversalClient) (Locker, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.Tag(err, "cannot get hostname")
	}
	rawRand := make([]byte, 4)
	if _, err = rand.Read(rawRand); err != nil {
		return nil, errors.Tag(err, "cannot get random salt")
	}
	rnd := hex.EncodeToString(rawRand)

	return &locker{
		client: client,

		counter:  0,
		hostname: hostname,
		pid:      os.Getpid(),
		rnd:      rnd,
	}, nil
}

type locker struct {
	client redis.UniversalClient

	counter  int64
	hostname string
	pid      int
	rnd      string
}

const maxRedisRequestLength = 5 * time.Second

var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

func (l *locker) getUniqueValue() string {
	now := time.Now().UnixNano()
	n := atomic.AddInt64(&l.counter, 1)
	return fmt.Sprintf(
		"locked:host=%s:pid=%d:random=%s:time=%d:count=%d",
		l.hostname, l.pid, l.rnd, now, n,
	)
}

// Lock is a single acquired lease.
type Lock struct {
	client       redis.UniversalClient
	key          string
	value        string
	expiredAfter time.Time
}

// ExpiredAfter reports the instant the lease is certainly gone.
func (k *Lock) ExpiredAfter() time.Time {
	return k.expiredAfter
}

// Release deletes the key iff this lock still owns it. A lease that has
// already expired needs no redis call.
func (k *Lock) Release() error {
	if time.Now().After(k.expiredAfter) {
		return nil
	}

	keys := []string{k.key}
	argv := []interface{}{k.value}

	ctx, done := context.WithDeadline(context.Background(), k.expiredAfter)
	defer done()
	res, err := unlockScript.Run(ctx, k.client, keys, argv).Result()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			// Release request timed out, but the redis value expired too.
			return nil
		}
		return err
	}
	switch returnValue := res.(type) {
	case int64:
		if returnValue == 1 {
			return nil
		}
		return errors.New("tried to release expired lock")
	default:
		return errors.New("release script returned unexpected value")
	}
}

func (l *locker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	lockValue := l.getUniqueValue()

	getLockCtx, cancel := context.WithTimeout(ctx, maxRedisRequestLength)
	defer cancel()
	ok, err := l.client.SetNX(getLockCtx, key, lockValue, ttl).Result()
	lockExpiredAfter := time.Now().Add(ttl)
	if err != nil {
		return nil, errors.Tag(err, "cannot check/acquire lock")
	}
	if !ok {
		return nil, &errors.AlreadyRunningError{Msg: "lock is held: " + key}
	}
	return &Lock{
		client:       l.client,
		key:          key,
		value:        lockValue,
		expiredAfter: lockExpiredAfter,
	}, nil
}

func (l *locker) TryRunWithLock(ctx context.Context, key string, ttl time.Duration, runner Runner) error {
	lock, err := l.TryAcquire(ctx, key, ttl)
	if err != nil {
		return err
	}

	workCtx, workDone := context.WithDeadline(ctx, lock.expiredAfter)
	defer workDone()
	runner(workCtx)

	return lock.Release()
}
