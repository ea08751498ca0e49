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

package main

import (
	"context"
	"encoding/json"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/doodleduel/doodleduel-go/pkg/identity"
	"github.com/doodleduel/doodleduel-go/pkg/kvStore"
	"github.com/doodleduel/doodleduel-go/pkg/models/consumable"
	"github.com/doodleduel/doodleduel-go/pkg/models/dictionary"
	"github.com/doodleduel/doodleduel-go/pkg/models/progression"
	"github.com/doodleduel/doodleduel-go/pkg/models/slate"
	"github.com/doodleduel/doodleduel-go/pkg/models/tournament"
	"github.com/doodleduel/doodleduel-go/pkg/options/env"
	"github.com/doodleduel/doodleduel-go/pkg/options/redisOptions"
	"github.com/doodleduel/doodleduel-go/pkg/platform"
	"github.com/doodleduel/doodleduel-go/pkg/rateLimiter"
	"github.com/doodleduel/doodleduel-go/pkg/redisLocker"
	"github.com/doodleduel/doodleduel-go/pkg/scheduler"
	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

func tournamentOptions() tournament.Options {
	options := tournament.Options{
		InitialElo:    env.GetFloat("INITIAL_ELO", 1200),
		KFactor:       env.GetFloat("ELO_K_FACTOR", 32),
		SnapshotCount: env.GetInt("PAYOUT_SNAPSHOT_COUNT", 3),
		PayoutWindow:  env.GetDuration("PAYOUT_WINDOW_S", 24*time.Hour),
		TopPercent:    int64(env.GetInt("PAYOUT_TOP_PERCENT", 20)),
		TopReward:     int64(env.GetInt("PAYOUT_TOP_REWARD", 50)),
		VoteReward:    int64(env.GetInt("VOTE_REWARD", 1)),
	}
	env.ParseJSON(&options.Ladder, "PAYOUT_LADDER", "[100,50,25]")
	return options
}

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	client := redis.NewUniversalClient(redisOptions.Parse())
	if err := client.Ping(ctx).Err(); err != nil {
		panic(err)
	}

	store := kvStore.New(client)
	locker, err := redisLocker.New(client)
	if err != nil {
		panic(err)
	}
	limiter := rateLimiter.New(store)
	jobs := scheduler.New(store, log.Printf)
	realtime := platform.NewRedisRealtime(client)
	bridge := platform.NewHTTPBridge(
		env.GetString("PLATFORM_BRIDGE_URL", "http://localhost:8911"),
	)

	users := identity.New(store, bridge)
	words := dictionary.New(store)
	slates := slate.New(store, words, locker, jobs)
	boosts := consumable.New(store, realtime)
	scores := progression.New(store, users, boosts, realtime)
	tournaments := tournament.New(
		store, locker, limiter, jobs, bridge, bridge, users, scores,
		tournamentOptions(),
	)

	jobs.Register(scheduler.JobSlateAggregator, slates.HandleAggregatorJob)
	jobs.Register(scheduler.JobTournamentScheduler, tournaments.HandleSchedulerJob)
	jobs.Register(scheduler.JobTournamentPayout, tournaments.HandlePayoutJob)
	jobs.Register(
		scheduler.JobCreatePinnedPostComment,
		tournaments.HandleCreatePinnedCommentJob,
	)
	jobs.Register(
		scheduler.JobCreateTournamentPostComment,
		tournaments.HandleCreatePinnedCommentJob,
	)
	jobs.Register(
		scheduler.JobUpdatePinnedComment,
		tournaments.HandleUpdatePinnedCommentJob,
	)
	jobs.Register(scheduler.JobUserLevelUp, scores.HandleLevelUpJob)
	// Flair rendering belongs to the host platform UI; acknowledging
	// the job keeps the queue clean on engine-only deployments.
	jobs.Register(
		scheduler.JobSetUserFlair,
		func(ctx context.Context, data json.RawMessage) error {
			return nil
		},
	)

	if community := env.GetString("COMMUNITY", ""); community != "" {
		err = words.Initialize(ctx, sharedTypes.Community(community))
		if err != nil {
			panic(err)
		}
	}

	log.Println("engine up, polling for jobs")
	jobs.Run(ctx, env.GetDuration("SCHEDULER_POLL_INTERVAL_MS", time.Second))
	log.Println("shutting down")
}
