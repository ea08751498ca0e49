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
	"reflect"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/kvStore"
	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

const testCommunity = sharedTypes.Community("pics")

func newTestManager(t *testing.T) (Manager, kvStore.Manager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	store := kvStore.New(client)
	return New(store), store
}

func activeWords(t *testing.T, m Manager) []string {
	t.Helper()
	words, err := m.GetWords(context.Background(), testCommunity)
	if err != nil {
		t.Fatalf("GetWords() error = %v", err)
	}
	names := make([]string, len(words))
	for i, w := range words {
		names[i] = w.Word.String()
	}
	return names
}

func TestManager_AddWord(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	added, err := m.AddWord(ctx, testCommunity, "  meat loaf ")
	if err != nil || !added {
		t.Fatalf("AddWord() = %v, %v, want true", added, err)
	}
	// Same word, different capitalization: already present.
	added, err = m.AddWord(ctx, testCommunity, "MEAT LOAF")
	if err != nil || added {
		t.Fatalf("AddWord(duplicate) = %v, %v, want false", added, err)
	}
	if got := activeWords(t, m); !reflect.DeepEqual(got, []string{"Meat Loaf"}) {
		t.Errorf("active = %v, want [Meat Loaf]", got)
	}

	if _, err = m.AddWord(ctx, testCommunity, "   "); !errors.IsValidationError(err) {
		t.Errorf("AddWord(blank) error = %v, want ValidationError", err)
	}
}

func TestManager_AddRemoveAdd_roundTrip(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	if _, err := m.AddWord(ctx, testCommunity, "Cat"); err != nil {
		t.Fatalf("AddWord() error = %v", err)
	}
	if err := m.RemoveWord(ctx, testCommunity, "Cat"); err != nil {
		t.Fatalf("RemoveWord() error = %v", err)
	}
	// Idempotent delete.
	if err := m.RemoveWord(ctx, testCommunity, "Cat"); err != nil {
		t.Fatalf("second RemoveWord() error = %v", err)
	}
	added, err := m.AddWord(ctx, testCommunity, "Cat")
	if err != nil || !added {
		t.Fatalf("AddWord() after remove = %v, %v, want true", added, err)
	}
	if got := activeWords(t, m); !reflect.DeepEqual(got, []string{"Cat"}) {
		t.Errorf("active = %v, want [Cat]", got)
	}
}

func TestManager_BanWord_propagation(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)

	if _, err := m.AddWord(ctx, testCommunity, "Meat Loaf"); err != nil {
		t.Fatalf("AddWord() error = %v", err)
	}
	err := store.ZAdd(ctx, "words:uncertainty:pics", kvStore.Member{
		Member: "Meat Loaf",
		Score:  1,
	})
	if err != nil {
		t.Fatalf("seed uncertainty error = %v", err)
	}

	if err = m.BanWord(ctx, testCommunity, "Meat Loaf"); err != nil {
		t.Fatalf("BanWord() error = %v", err)
	}

	if _, err = m.AddWord(
		ctx, testCommunity, "meat loaf",
	); !errors.IsValidationError(err) {
		t.Errorf("AddWord(banned) error = %v, want ValidationError", err)
	}
	banned, err := m.IsWordBanned(ctx, testCommunity, "MEAT LOAF")
	if err != nil || !banned {
		t.Errorf("IsWordBanned() = %v, %v, want true", banned, err)
	}
	if got := activeWords(t, m); len(got) != 0 {
		t.Errorf("active = %v, want empty", got)
	}
	if _, err = store.ZScore(
		ctx, "words:uncertainty:pics", "Meat Loaf",
	); !errors.IsNotFoundError(err) {
		t.Errorf("uncertainty entry survived the ban: %v", err)
	}

	if err = m.UnbanWord(ctx, testCommunity, "Meat Loaf"); err != nil {
		t.Fatalf("UnbanWord() error = %v", err)
	}
	added, err := m.AddWord(ctx, testCommunity, "Meat Loaf")
	if err != nil || !added {
		t.Errorf("AddWord() after unban = %v, %v, want true", added, err)
	}
}

func TestManager_ReplaceAll(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	if err := m.BanWord(ctx, testCommunity, "Rude"); err != nil {
		t.Fatalf("BanWord() error = %v", err)
	}
	n, err := m.ReplaceAll(ctx, testCommunity, []string{
		"cat", "dog", "  dog  ", "rude", "",
	})
	if err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ReplaceAll() = %d, want 2", n)
	}
	if got := activeWords(t, m); !reflect.DeepEqual(got, []string{"Cat", "Dog"}) {
		t.Errorf("active = %v, want [Cat Dog]", got)
	}
}

func TestManager_UpdatePreservingScores(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	if _, err := m.ReplaceAll(ctx, testCommunity, []string{"Cat", "Dog"}); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}
	// The bandit has learned something about Cat.
	if err := m.SetWordScore(ctx, testCommunity, "Cat", 4.5); err != nil {
		t.Fatalf("SetWordScore() error = %v", err)
	}

	added, removed, err := m.UpdatePreservingScores(ctx, testCommunity, []string{
		"Cat", "Fox",
	})
	if err != nil {
		t.Fatalf("UpdatePreservingScores() error = %v", err)
	}
	if added != 1 || removed != 1 {
		t.Errorf("UpdatePreservingScores() = %d, %d, want 1, 1", added, removed)
	}

	words, err := m.GetWords(ctx, testCommunity)
	if err != nil {
		t.Fatalf("GetWords() error = %v", err)
	}
	want := []ScoredWord{
		{Word: "Cat", Score: 4.5},
		{Word: "Fox", Score: DefaultWordScore},
	}
	if !reflect.DeepEqual(words, want) {
		t.Errorf("GetWords() = %v, want %v", words, want)
	}
}

func TestManager_GetRandomWords(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	if _, err := m.ReplaceAll(ctx, testCommunity, []string{
		"Cat", "Dog", "Fox",
	}); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	words, err := m.GetRandomWords(ctx, testCommunity, 2)
	if err != nil {
		t.Fatalf("GetRandomWords() error = %v", err)
	}
	if len(words) != 2 || words[0] == words[1] {
		t.Errorf("GetRandomWords() = %v, want 2 distinct words", words)
	}

	// Asking for more than exist returns what is there.
	words, err = m.GetRandomWords(ctx, testCommunity, 10)
	if err != nil || len(words) != 3 {
		t.Errorf("GetRandomWords(10) = %v, %v, want 3 words", words, err)
	}
}

func TestManager_Initialize(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	if err := m.Initialize(ctx, testCommunity); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	n, err := m.Count(ctx, testCommunity)
	if err != nil || n == 0 {
		t.Fatalf("Count() = %d, %v, want seeded words", n, err)
	}

	// A second install keeps the existing dictionary.
	if err = m.RemoveWord(ctx, testCommunity, "Cat"); err != nil {
		t.Fatalf("RemoveWord() error = %v", err)
	}
	if err = m.Initialize(ctx, testCommunity); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}
	n2, err := m.Count(ctx, testCommunity)
	if err != nil || n2 != n-1 {
		t.Errorf("Count() after re-init = %d, %v, want %d", n2, err, n-1)
	}

	communities, err := m.GetCommunities(ctx)
	if err != nil {
		t.Fatalf("GetCommunities() error = %v", err)
	}
	if !reflect.DeepEqual(communities, []sharedTypes.Community{testCommunity}) {
		t.Errorf("GetCommunities() = %v, want [%s]", communities, testCommunity)
	}
}

func TestManager_GetWordsPage(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	if _, err := m.ReplaceAll(ctx, testCommunity, []string{
		"Ant", "Bee", "Cat", "Dog", "Fox",
	}); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	page, err := m.GetWordsPage(ctx, testCommunity, 2, 2)
	if err != nil {
		t.Fatalf("GetWordsPage() error = %v", err)
	}
	if len(page) != 2 || page[0].Word != "Cat" || page[1].Word != "Dog" {
		t.Errorf("GetWordsPage(2, 2) = %v, want [Cat Dog]", page)
	}

	empty, err := m.GetWordsPage(ctx, testCommunity, 4, 2)
	if err != nil || len(empty) != 0 {
		t.Errorf("GetWordsPage(4, 2) = %v, %v, want empty", empty, err)
	}

	if _, err = m.GetWordsPage(
		ctx, testCommunity, 0, 2,
	); !errors.IsValidationError(err) {
		t.Errorf("GetWordsPage(0) error = %v, want ValidationError", err)
	}
}
