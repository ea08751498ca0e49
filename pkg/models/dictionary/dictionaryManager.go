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

package dictionary

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/kvStore"
	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

// DefaultWordScore is the drawer score a word starts out with until the
// bandit has funnel data for it.
const DefaultWordScore = 1

// ScoredWord is an active word with its current drawer score.
type ScoredWord struct {
	Word  sharedTypes.Word
	Score float64
}

type Manager interface {
	// Initialize seeds an empty community with the built-in word list
	// and registers the community in the global index. Idempotent.
	Initialize(ctx context.Context, c sharedTypes.Community) error

	// AddWord returns true iff the word was absent from both the active
	// and the banned set and has been inserted now.
	AddWord(ctx context.Context, c sharedTypes.Community, raw string) (bool, error)
	RemoveWord(ctx context.Context, c sharedTypes.Community, raw string) error
	BanWord(ctx context.Context, c sharedTypes.Community, raw string) error
	UnbanWord(ctx context.Context, c sharedTypes.Community, raw string) error
	IsWordBanned(ctx context.Context, c sharedTypes.Community, raw string) (bool, error)

	// ReplaceAll swaps the active set for the given words, keeping
	// banned words out. Returns how many words were inserted.
	ReplaceAll(ctx context.Context, c sharedTypes.Community, raws []string) (int, error)

	// UpdatePreservingScores diffs against the current membership: new
	// words get the default score, absent ones are removed, overlap
	// keeps its score.
	UpdatePreservingScores(ctx context.Context, c sharedTypes.Community, raws []string) (added int, removed int, err error)

	// GetWords returns the active set sorted by word.
	GetWords(ctx context.Context, c sharedTypes.Community) ([]ScoredWord, error)
	GetWordsPage(ctx context.Context, c sharedTypes.Community, page, pageSize int) ([]ScoredWord, error)
	GetRandomWords(ctx context.Context, c sharedTypes.Community, n int) ([]sharedTypes.Word, error)
	Count(ctx context.Context, c sharedTypes.Community) (int64, error)
	SetWordScore(ctx context.Context, c sharedTypes.Community, w sharedTypes.Word, score float64) error

	GetCommunities(ctx context.Context) ([]sharedTypes.Community, error)
}

func New(store kvStore.Manager) Manager {
	return &manager{store: store}
}

type manager struct {
	store kvStore.Manager
}

func getActiveKey(c sharedTypes.Community) string {
	return "words:all:" + c.String()
}

func getBannedKey(c sharedTypes.Community) string {
	return "words:banned:" + c.String()
}

func getUncertaintyKey(c sharedTypes.Community) string {
	return "words:uncertainty:" + c.String()
}

func getLastServedKey(c sharedTypes.Community) string {
	return "words:lastServed:" + c.String()
}

func getCommunitiesKey() string {
	return "communities"
}

func (m *manager) Initialize(ctx context.Context, c sharedTypes.Community) error {
	if err := c.Validate(); err != nil {
		return err
	}
	n, err := m.store.ZCard(ctx, getActiveKey(c))
	if err != nil {
		return errors.Tag(err, "cannot check active set")
	}
	if n == 0 {
		if _, err = m.ReplaceAll(ctx, c, DefaultWords()); err != nil {
			return errors.Tag(err, "cannot seed default words")
		}
	}
	_, err = m.store.Global().ZAddNX(ctx, getCommunitiesKey(), kvStore.Member{
		Member: c.String(),
		Score:  float64(time.Now().Unix()),
	})
	if err != nil {
		return errors.Tag(err, "cannot register community")
	}
	return nil
}

func (m *manager) AddWord(ctx context.Context, c sharedTypes.Community, raw string) (bool, error) {
	w, err := sharedTypes.NormalizeWord(raw)
	if err != nil {
		return false, err
	}
	banned, err := m.isBanned(ctx, c, w)
	if err != nil {
		return false, err
	}
	if banned {
		return false, &errors.ValidationError{
			Msg: "word is banned: " + w.String(),
		}
	}
	added, err := m.store.ZAddNX(ctx, getActiveKey(c), kvStore.Member{
		Member: w.String(),
		Score:  DefaultWordScore,
	})
	if err != nil {
		return false, errors.Tag(err, "cannot add word")
	}
	return added == 1, nil
}

func (m *manager) RemoveWord(ctx context.Context, c sharedTypes.Community, raw string) error {
	w, err := sharedTypes.NormalizeWord(raw)
	if err != nil {
		return err
	}
	return m.removeEverywhere(ctx, c, w)
}

func (m *manager) removeEverywhere(ctx context.Context, c sharedTypes.Community, w sharedTypes.Word) error {
	merged := errors.MergedError{}
	merged.Add(m.store.ZRem(ctx, getActiveKey(c), w.String()))
	merged.Add(m.store.ZRem(ctx, getUncertaintyKey(c), w.String()))
	merged.Add(m.store.ZRem(ctx, getLastServedKey(c), w.String()))
	return merged.Finalize()
}

func (m *manager) BanWord(ctx context.Context, c sharedTypes.Community, raw string) error {
	w, err := sharedTypes.NormalizeWord(raw)
	if err != nil {
		return err
	}
	err = m.store.ZAdd(ctx, getBannedKey(c), kvStore.Member{
		Member: w.String(),
		Score:  DefaultWordScore,
	})
	if err != nil {
		return errors.Tag(err, "cannot ban word")
	}
	return m.removeEverywhere(ctx, c, w)
}

func (m *manager) UnbanWord(ctx context.Context, c sharedTypes.Community, raw string) error {
	w, err := sharedTypes.NormalizeWord(raw)
	if err != nil {
		return err
	}
	return m.store.ZRem(ctx, getBannedKey(c), w.String())
}

func (m *manager) isBanned(ctx context.Context, c sharedTypes.Community, w sharedTypes.Word) (bool, error) {
	_, err := m.store.ZScore(ctx, getBannedKey(c), w.String())
	if err != nil {
		if errors.IsNotFoundError(err) {
			return false, nil
		}
		return false, errors.Tag(err, "cannot check banned set")
	}
	return true, nil
}

func (m *manager) IsWordBanned(ctx context.Context, c sharedTypes.Community, raw string) (bool, error) {
	w, err := sharedTypes.NormalizeWord(raw)
	if err != nil {
		return false, err
	}
	return m.isBanned(ctx, c, w)
}

func (m *manager) normalizeAndFilterBanned(ctx context.Context, c sharedTypes.Community, raws []string) ([]sharedTypes.Word, error) {
	seen := make(map[sharedTypes.Word]bool, len(raws))
	words := make([]sharedTypes.Word, 0, len(raws))
	for _, raw := range raws {
		w, err := sharedTypes.NormalizeWord(raw)
		if err != nil {
			// One malformed entry must not block a bulk replace.
			continue
		}
		if seen[w] {
			continue
		}
		banned, err := m.isBanned(ctx, c, w)
		if err != nil {
			return nil, err
		}
		if banned {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words, nil
}

func (m *manager) ReplaceAll(ctx context.Context, c sharedTypes.Community, raws []string) (int, error) {
	words, err := m.normalizeAndFilterBanned(ctx, c, raws)
	if err != nil {
		return 0, err
	}
	if err = m.store.Del(ctx, getActiveKey(c)); err != nil {
		return 0, errors.Tag(err, "cannot clear active set")
	}
	if len(words) == 0 {
		return 0, nil
	}
	members := make([]kvStore.Member, len(words))
	for i, w := range words {
		members[i] = kvStore.Member{Member: w.String(), Score: DefaultWordScore}
	}
	if err = m.store.ZAdd(ctx, getActiveKey(c), members...); err != nil {
		return 0, errors.Tag(err, "cannot write active set")
	}
	return len(words), nil
}

func (m *manager) UpdatePreservingScores(ctx context.Context, c sharedTypes.Community, raws []string) (int, int, error) {
	words, err := m.normalizeAndFilterBanned(ctx, c, raws)
	if err != nil {
		return 0, 0, err
	}
	current, err := m.store.ZRange(ctx, getActiveKey(c), 0, -1, false)
	if err != nil {
		return 0, 0, errors.Tag(err, "cannot read active set")
	}
	currentSet := make(map[string]bool, len(current))
	for _, member := range current {
		currentSet[member.Member] = true
	}
	nextSet := make(map[string]bool, len(words))
	toAdd := make([]kvStore.Member, 0)
	for _, w := range words {
		nextSet[w.String()] = true
		if !currentSet[w.String()] {
			toAdd = append(toAdd, kvStore.Member{
				Member: w.String(),
				Score:  DefaultWordScore,
			})
		}
	}
	toRemove := make([]string, 0)
	for _, member := range current {
		if !nextSet[member.Member] {
			toRemove = append(toRemove, member.Member)
		}
	}
	if len(toAdd) > 0 {
		// NX keeps a racing score update from being clobbered.
		if _, err = m.store.ZAddNX(ctx, getActiveKey(c), toAdd...); err != nil {
			return 0, 0, errors.Tag(err, "cannot add new words")
		}
	}
	for _, member := range toRemove {
		w := sharedTypes.Word(member)
		if err = m.removeEverywhere(ctx, c, w); err != nil {
			return 0, 0, errors.Tag(err, "cannot remove stale word")
		}
	}
	return len(toAdd), len(toRemove), nil
}

func (m *manager) GetWords(ctx context.Context, c sharedTypes.Community) ([]ScoredWord, error) {
	members, err := m.store.ZRange(ctx, getActiveKey(c), 0, -1, false)
	if err != nil {
		return nil, errors.Tag(err, "cannot read active set")
	}
	words := make([]ScoredWord, len(members))
	for i, member := range members {
		words[i] = ScoredWord{
			Word:  sharedTypes.Word(member.Member),
			Score: member.Score,
		}
	}
	sort.Slice(words, func(i, j int) bool {
		return words[i].Word < words[j].Word
	})
	return words, nil
}

func (m *manager) GetWordsPage(ctx context.Context, c sharedTypes.Community, page, pageSize int) ([]ScoredWord, error) {
	if page < 1 {
		return nil, &errors.ValidationError{Msg: "bad page number"}
	}
	if pageSize < 1 {
		return nil, &errors.ValidationError{Msg: "bad page size"}
	}
	words, err := m.GetWords(ctx, c)
	if err != nil {
		return nil, err
	}
	start := (page - 1) * pageSize
	if start >= len(words) {
		return []ScoredWord{}, nil
	}
	end := start + pageSize
	if end > len(words) {
		end = len(words)
	}
	return words[start:end], nil
}

func (m *manager) GetRandomWords(ctx context.Context, c sharedTypes.Community, n int) ([]sharedTypes.Word, error) {
	if n < 1 {
		return nil, &errors.ValidationError{Msg: "bad sample size"}
	}
	members, err := m.store.ZRange(ctx, getActiveKey(c), 0, -1, false)
	if err != nil {
		return nil, errors.Tag(err, "cannot read active set")
	}
	rand.Shuffle(len(members), func(i, j int) {
		members[i], members[j] = members[j], members[i]
	})
	if n > len(members) {
		n = len(members)
	}
	words := make([]sharedTypes.Word, n)
	for i := 0; i < n; i++ {
		words[i] = sharedTypes.Word(members[i].Member)
	}
	return words, nil
}

func (m *manager) Count(ctx context.Context, c sharedTypes.Community) (int64, error) {
	return m.store.ZCard(ctx, getActiveKey(c))
}

func (m *manager) SetWordScore(ctx context.Context, c sharedTypes.Community, w sharedTypes.Word, score float64) error {
	return m.store.ZAdd(ctx, getActiveKey(c), kvStore.Member{
		Member: w.String(),
		Score:  score,
	})
}

func (m *manager) GetCommunities(ctx context.Context) ([]sharedTypes.Community, error) {
	members, err := m.store.Global().ZRange(ctx, getCommunitiesKey(), 0, -1, false)
	if err != nil {
		return nil, errors.Tag(err, "cannot read community index")
	}
	communities := make([]sharedTypes.Community, len(members))
	for i, member := range members {
		communities[i] = sharedTypes.Community(member.Member)
	}
	return communities, nil
}
