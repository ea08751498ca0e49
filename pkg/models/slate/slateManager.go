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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/kvStore"
	"github.com/doodleduel/doodleduel-go/pkg/models/dictionary"
	"github.com/doodleduel/doodleduel-go/pkg/redisLocker"
	"github.com/doodleduel/doodleduel-go/pkg/scheduler"
	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

const (
	// DefaultSlateSize is how many candidate words a drawer sees.
	DefaultSlateSize = 3

	defaultUncertainty = 1

	slateTTL   = 7 * 24 * time.Hour
	counterTTL = 30 * 24 * time.Hour

	aggregatorLockTTL = time.Minute
)

var errInsufficientWords = &errors.CodedError{
	Description: "not enough active words",
	Code:        "InsufficientWords",
}

// Slate is an immutable tuple of candidate words shown to one drawer.
type Slate struct {
	Id        string             `json:"id"`
	Words     []sharedTypes.Word `json:"words"`
	CreatedAt time.Time          `json:"createdAt"`
}

type Manager interface {
	// GenerateSlate balances exploitation (drawer score) against
	// exploration (uncertainty) and returns count candidate words.
	GenerateSlate(ctx context.Context, c sharedTypes.Community, count int) (*Slate, error)

	GetSlate(ctx context.Context, slateId string) (*Slate, error)

	// RecordImpression counts a served slate against every word on it.
	// A missing (expired) slate is skipped silently.
	RecordImpression(ctx context.Context, c sharedTypes.Community, slateId string) error
	RecordPick(ctx context.Context, c sharedTypes.Community, raw string) error
	RecordPublish(ctx context.Context, c sharedTypes.Community, raw string) error

	// UpdateScores recomputes drawer scores from the hourly funnel
	// under the per-community aggregator lock.
	UpdateScores(ctx context.Context, c sharedTypes.Community) error

	GetConfig(ctx context.Context) (Config, error)
	SetConfig(ctx context.Context, c Config) error

	HandleAggregatorJob(ctx context.Context, data json.RawMessage) error
}

func New(store kvStore.Manager, words dictionary.Manager, locker redisLocker.Locker, jobs scheduler.Client) Manager {
	return &manager{
		store:  store,
		words:  words,
		locker: locker,
		jobs:   jobs,
		now:    time.Now,
	}
}

type manager struct {
	store  kvStore.Manager
	words  dictionary.Manager
	locker redisLocker.Locker
	jobs   scheduler.Client
	now    func() time.Time
}

func getSlateKey(slateId string) string {
	return "slate:" + slateId
}

func getHourlyKey(c sharedTypes.Community) string {
	return "words:hourly:" + c.String()
}

func getTotalKey(c sharedTypes.Community) string {
	return "words:total:" + c.String()
}

func getUncertaintyKey(c sharedTypes.Community) string {
	return "words:uncertainty:" + c.String()
}

func getLastServedKey(c sharedTypes.Community) string {
	return "words:lastServed:" + c.String()
}

func getAggregatorLockKey(c sharedTypes.Community) string {
	return "slate:aggregator:lock:" + c.String()
}

// SlateId derives the deterministic identifier from the chosen words.
// Two slates with the same member set share an id regardless of order.
func SlateId(words []sharedTypes.Word) string {
	sorted := make([]string, len(words))
	for i, w := range words {
		sorted[i] = w.String()
	}
	sort.Strings(sorted)
	h := sha256.New()
	for i, w := range sorted {
		if i != 0 {
			h.Write([]byte{','})
		}
		h.Write([]byte(w))
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}

func decayedScore(score, decayRate float64, lastServed, now time.Time) float64 {
	if lastServed.IsZero() {
		return score
	}
	hours := now.Sub(lastServed).Hours()
	if hours <= 0 {
		return score
	}
	return score * math.Exp(-decayRate*hours)
}

func (m *manager) GenerateSlate(ctx context.Context, c sharedTypes.Community, count int) (*Slate, error) {
	if count < 1 {
		count = DefaultSlateSize
	}
	active, err := m.words.GetWords(ctx, c)
	if err != nil {
		return nil, err
	}
	if len(active) < count {
		return nil, errInsufficientWords
	}
	cfg, err := m.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	uncertainty, err := m.readScoreMap(ctx, getUncertaintyKey(c))
	if err != nil {
		return nil, err
	}
	lastServed, err := m.readScoreMap(ctx, getLastServedKey(c))
	if err != nil {
		return nil, err
	}

	now := m.now()
	type candidate struct {
		word sharedTypes.Word
		ucb  float64
	}
	candidates := make([]candidate, len(active))
	for i, w := range active {
		u, tracked := uncertainty[w.Word.String()]
		if !tracked {
			u = defaultUncertainty
		}
		var servedAt time.Time
		if ts, served := lastServed[w.Word.String()]; served {
			servedAt = time.Unix(int64(ts), 0)
		}
		score := decayedScore(w.Score, cfg.ScoreDecayRate, servedAt, now)
		candidates[i] = candidate{
			word: w.Word,
			ucb:  score + cfg.UCBConstant*math.Sqrt(u),
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].ucb != candidates[j].ucb {
			return candidates[i].ucb > candidates[j].ucb
		}
		return candidates[i].word < candidates[j].word
	})

	chosen := make([]sharedTypes.Word, count)
	for i := 0; i < count; i++ {
		chosen[i] = candidates[i].word
	}
	// Single-draw epsilon-greedy: one slot may go to the remaining pool.
	if len(candidates) > count && rand.Float64() < cfg.ExplorationRate {
		pool := candidates[count:]
		chosen[rand.Intn(count)] = pool[rand.Intn(len(pool))].word
	}

	s := &Slate{
		Id:        SlateId(chosen),
		Words:     chosen,
		CreatedAt: now,
	}
	if err = m.persistSlate(ctx, c, s); err != nil {
		return nil, err
	}
	served := make([]kvStore.Member, count)
	for i, w := range chosen {
		served[i] = kvStore.Member{
			Member: w.String(),
			Score:  float64(now.Unix()),
		}
	}
	if err = m.store.ZAdd(ctx, getLastServedKey(c), served...); err != nil {
		return nil, errors.Tag(err, "cannot update last served")
	}
	return s, nil
}

func (m *manager) readScoreMap(ctx context.Context, key string) (map[string]float64, error) {
	members, err := m.store.ZRange(ctx, key, 0, -1, false)
	if err != nil {
		return nil, errors.Tag(err, "cannot read "+key)
	}
	scores := make(map[string]float64, len(members))
	for _, member := range members {
		scores[member.Member] = member.Score
	}
	return scores, nil
}

func (m *manager) persistSlate(ctx context.Context, c sharedTypes.Community, s *Slate) error {
	blob, err := json.Marshal(s.Words)
	if err != nil {
		return errors.Tag(err, "cannot serialize slate words")
	}
	key := getSlateKey(s.Id)
	err = m.store.HSetMap(ctx, key, map[string]string{
		"words":     string(blob),
		"timestamp": strconv.FormatInt(s.CreatedAt.Unix(), 10),
		"community": c.String(),
	})
	if err != nil {
		return errors.Tag(err, "cannot persist slate")
	}
	if err = m.store.Expire(ctx, key, slateTTL); err != nil {
		return errors.Tag(err, "cannot expire slate")
	}
	return nil
}

func (m *manager) GetSlate(ctx context.Context, slateId string) (*Slate, error) {
	fields, err := m.store.HGetAll(ctx, getSlateKey(slateId))
	if err != nil {
		return nil, errors.Tag(err, "cannot read slate")
	}
	if len(fields) == 0 {
		return nil, &errors.NotFoundError{}
	}
	var words []sharedTypes.Word
	if err = json.Unmarshal([]byte(fields["words"]), &words); err != nil {
		return nil, errors.Tag(err, "cannot parse slate words")
	}
	ts, _ := strconv.ParseInt(fields["timestamp"], 10, 64)
	return &Slate{
		Id:        slateId,
		Words:     words,
		CreatedAt: time.Unix(ts, 0),
	}, nil
}

func (m *manager) bumpFunnel(ctx context.Context, c sharedTypes.Community, w sharedTypes.Word, stage string) error {
	merged := errors.MergedError{}
	for _, key := range []string{getHourlyKey(c), getTotalKey(c)} {
		if _, err := m.store.HIncrBy(ctx, key, w.String()+":"+stage, 1); err != nil {
			merged.Add(errors.Tag(err, "cannot count "+stage))
			continue
		}
		merged.Add(m.store.Expire(ctx, key, counterTTL))
	}
	return merged.Finalize()
}

func (m *manager) RecordImpression(ctx context.Context, c sharedTypes.Community, slateId string) error {
	s, err := m.GetSlate(ctx, slateId)
	if err != nil {
		if errors.IsNotFoundError(err) {
			log.Printf("impression for unknown slate %s, skipping", slateId)
			return nil
		}
		return err
	}
	merged := errors.MergedError{}
	for _, w := range s.Words {
		merged.Add(m.bumpFunnel(ctx, c, w, "served"))
	}
	return merged.Finalize()
}

func (m *manager) RecordPick(ctx context.Context, c sharedTypes.Community, raw string) error {
	w, err := sharedTypes.NormalizeWord(raw)
	if err != nil {
		return err
	}
	return m.bumpFunnel(ctx, c, w, "picked")
}

func (m *manager) RecordPublish(ctx context.Context, c sharedTypes.Community, raw string) error {
	w, err := sharedTypes.NormalizeWord(raw)
	if err != nil {
		return err
	}
	return m.bumpFunnel(ctx, c, w, "posted")
}
