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

package slate

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/kvStore"
	"github.com/doodleduel/doodleduel-go/pkg/scheduler"
	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

const (
	// uncertaintyHalving controls how fast impressions shrink a word's
	// uncertainty in one aggregation pass.
	uncertaintyHalving = 10

	aggregationInterval   = time.Hour
	defaultBatchSize      = 25
	aggregatorConcurrency = 4
)

type funnelStats struct {
	served int64
	picked int64
	posted int64
}

func parseFunnel(fields map[string]string) map[string]*funnelStats {
	stats := map[string]*funnelStats{}
	for field, raw := range fields {
		i := strings.LastIndex(field, ":")
		if i <= 0 {
			continue
		}
		word, stage := field[:i], field[i+1:]
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		s, exists := stats[word]
		if !exists {
			s = &funnelStats{}
			stats[word] = s
		}
		switch stage {
		case "served":
			s.served = n
		case "picked":
			s.picked = n
		case "posted":
			s.posted = n
		}
	}
	return stats
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}

func zScore(v, mean, std, clamp float64) float64 {
	if std == 0 {
		return 0
	}
	z := (v - mean) / std
	if z > clamp {
		return clamp
	}
	if z < -clamp {
		return -clamp
	}
	return z
}

func (m *manager) UpdateScores(ctx context.Context, c sharedTypes.Community) error {
	var workErr error
	err := m.locker.TryRunWithLock(
		ctx, getAggregatorLockKey(c), aggregatorLockTTL,
		func(ctx context.Context) {
			workErr = m.updateScoresLocked(ctx, c)
		},
	)
	if err != nil {
		return err
	}
	return workErr
}

func (m *manager) updateScoresLocked(ctx context.Context, c sharedTypes.Community) error {
	active, err := m.words.GetWords(ctx, c)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		return nil
	}
	cfg, err := m.GetConfig(ctx)
	if err != nil {
		return err
	}
	hourly, err := m.store.HGetAll(ctx, getHourlyKey(c))
	if err != nil {
		return errors.Tag(err, "cannot read hourly funnel")
	}
	stats := parseFunnel(hourly)
	uncertainty, err := m.readScoreMap(ctx, getUncertaintyKey(c))
	if err != nil {
		return err
	}
	lastServed, err := m.readScoreMap(ctx, getLastServedKey(c))
	if err != nil {
		return err
	}

	type observed struct {
		word     sharedTypes.Word
		served   int64
		pickRate float64
		postRate float64
	}
	var pickRates, postRates []float64
	var served []observed
	for _, w := range active {
		s, tracked := stats[w.Word.String()]
		if !tracked || s.served == 0 {
			continue
		}
		o := observed{
			word:     w.Word,
			served:   s.served,
			pickRate: float64(s.picked) / float64(s.served),
			postRate: float64(s.posted) / float64(s.served),
		}
		pickRates = append(pickRates, o.pickRate)
		postRates = append(postRates, o.postRate)
		served = append(served, o)
	}

	now := m.now()
	pickMean, pickStd := meanStd(pickRates)
	postMean, postStd := meanStd(postRates)
	for _, o := range served {
		score := cfg.WeightPickRate*zScore(o.pickRate, pickMean, pickStd, cfg.ZScoreClamp) +
			cfg.WeightPostRate*zScore(o.postRate, postMean, postStd, cfg.ZScoreClamp)
		var servedAt time.Time
		if ts, exists := lastServed[o.word.String()]; exists {
			servedAt = time.Unix(int64(ts), 0)
		}
		score = decayedScore(score, cfg.ScoreDecayRate, servedAt, now)
		if err = m.words.SetWordScore(ctx, c, o.word, score); err != nil {
			return err
		}

		// Impressions shrink uncertainty...
		u, tracked := uncertainty[o.word.String()]
		if !tracked {
			u = defaultUncertainty
		}
		uncertainty[o.word.String()] = u / (1 + float64(o.served)/uncertaintyHalving)
	}

	// ...while each global decay step inflates it again.
	next := make([]kvStore.Member, 0, len(active))
	for _, w := range active {
		u, tracked := uncertainty[w.Word.String()]
		if !tracked {
			u = defaultUncertainty
		}
		next = append(next, kvStore.Member{
			Member: w.Word.String(),
			Score:  u * (1 + cfg.ScoreDecayRate),
		})
	}
	if err = m.store.ZAdd(ctx, getUncertaintyKey(c), next...); err != nil {
		return errors.Tag(err, "cannot write uncertainty")
	}

	if err = m.store.Del(ctx, getHourlyKey(c)); err != nil {
		return errors.Tag(err, "cannot reset hourly funnel")
	}
	return nil
}

// AggregatorPayload is the SLATE_AGGREGATOR job contract. Unknown
// fields are ignored.
type AggregatorPayload struct {
	BatchSize    int  `json:"batchSize"`
	Cursor       int  `json:"cursor"`
	IsInitialJob bool `json:"isInitialJob"`
}

// HandleAggregatorJob walks the community index in batches, refreshing
// word scores per community, and schedules itself recursively until the
// queue drains. The follow-up is enqueued before this handler runs into
// its deadline.
func (m *manager) HandleAggregatorJob(ctx context.Context, data json.RawMessage) error {
	payload := AggregatorPayload{BatchSize: defaultBatchSize}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return &errors.ValidationError{Msg: "malformed aggregator payload"}
		}
	}
	if payload.BatchSize < 1 {
		payload.BatchSize = defaultBatchSize
	}

	communities, err := m.words.GetCommunities(ctx)
	if err != nil {
		return err
	}
	if payload.Cursor >= len(communities) {
		return m.scheduleNextRound(ctx)
	}
	end := payload.Cursor + payload.BatchSize
	if end > len(communities) {
		end = len(communities)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(aggregatorConcurrency)
	for _, c := range communities[payload.Cursor:end] {
		eg.Go(func() error {
			err2 := m.UpdateScores(egCtx, c)
			if err2 != nil && !errors.IsAlreadyRunning(err2) {
				log.Printf(
					"slate aggregator %s: %s", c,
					errors.Tag(err2, "cannot update scores"),
				)
			}
			return nil
		})
	}
	_ = eg.Wait()

	if end < len(communities) {
		_, err = m.jobs.RunJob(ctx, scheduler.JobSlateAggregator, AggregatorPayload{
			BatchSize: payload.BatchSize,
			Cursor:    end,
		}, time.Time{})
		if err != nil {
			return errors.Tag(err, "cannot enqueue continuation")
		}
		return nil
	}
	return m.scheduleNextRound(ctx)
}

func (m *manager) scheduleNextRound(ctx context.Context) error {
	_, err := m.jobs.RunJob(
		ctx, scheduler.JobSlateAggregator,
		AggregatorPayload{IsInitialJob: true},
		m.now().Add(aggregationInterval),
	)
	if err != nil {
		return errors.Tag(err, "cannot schedule next aggregation round")
	}
	return nil
}
