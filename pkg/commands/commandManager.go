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

// Package commands dispatches chat commands ("!add", "!remove", ...)
// onto the dictionary and progression engines. Each command owns its
// argument validation and wall-time budget.
package commands

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/identity"
	"github.com/doodleduel/doodleduel-go/pkg/models/dictionary"
	"github.com/doodleduel/doodleduel-go/pkg/models/progression"
	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

// AddWordMinRank gates word suggestions for non-moderators.
const AddWordMinRank = 5

type Request struct {
	Community sharedTypes.Community
	UserId    sharedTypes.UserId
	Args      string
}

type Manager interface {
	// Dispatch resolves name ("!add", ...) in the command table and
	// runs it against its own deadline. Unknown commands report an
	// InvalidInput result.
	Dispatch(ctx context.Context, name string, request Request) errors.Result
}

func New(words dictionary.Manager, scores progression.Manager, users identity.Manager) Manager {
	m := &manager{
		words:  words,
		scores: scores,
		users:  users,
	}
	m.table = map[string]command{
		"!add":    {timeout: 10 * time.Second, run: m.addWord},
		"!remove": {timeout: 10 * time.Second, modOnly: true, run: m.removeWord},
		"!ban":    {timeout: 10 * time.Second, modOnly: true, run: m.banWord},
		"!unban":  {timeout: 10 * time.Second, modOnly: true, run: m.unbanWord},
		"!words":  {timeout: 10 * time.Second, run: m.listWords},
		"!score":  {timeout: 3 * time.Second, run: m.showScore},
	}
	return m
}

type command struct {
	timeout time.Duration
	modOnly bool
	run     func(ctx context.Context, request Request) (string, error)
}

type manager struct {
	words  dictionary.Manager
	scores progression.Manager
	users  identity.Manager
	table  map[string]command
}

func (m *manager) Dispatch(ctx context.Context, name string, request Request) errors.Result {
	cmd, known := m.table[name]
	if !known {
		return errors.Classify(&errors.ValidationError{
			Msg: "unknown command: " + name,
		})
	}
	if cmd.modOnly {
		isMod, err := m.users.IsModerator(ctx, request.Community, request.UserId)
		if err != nil {
			log.Printf("command %s: %s", name, err)
			return errors.Classify(err)
		}
		if !isMod {
			return errors.Classify(&errors.ValidationError{
				Msg: "moderators only",
			})
		}
	}

	// Race the handler against its wall-time budget.
	cmdCtx, cancel := context.WithTimeout(ctx, cmd.timeout)
	defer cancel()
	type outcome struct {
		reply string
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		reply, err := cmd.run(cmdCtx, request)
		done <- outcome{reply: reply, err: err}
	}()
	var out outcome
	select {
	case out = <-done:
	case <-cmdCtx.Done():
		out.err = cmdCtx.Err()
	}
	if err := out.err; err != nil {
		if !errors.IsValidationError(err) && !errors.IsNotFoundError(err) &&
			!errors.IsRateLimitedError(err) {
			log.Printf("command %s: %s", name, err)
		}
		return errors.Classify(err)
	}
	result := errors.OK()
	result.Message = out.reply
	return result
}

func (m *manager) addWord(ctx context.Context, request Request) (string, error) {
	isMod, err := m.users.IsModerator(ctx, request.Community, request.UserId)
	if err != nil {
		return "", err
	}
	if !isMod {
		score, err2 := m.scores.GetScore(ctx, request.UserId)
		if err2 != nil {
			return "", err2
		}
		if progression.GetUserLevel(score).Rank < AddWordMinRank {
			return "", &errors.ValidationError{
				Msg: "keep playing to unlock word suggestions",
			}
		}
	}
	added, err := m.words.AddWord(ctx, request.Community, request.Args)
	if err != nil {
		return "", err
	}
	if !added {
		return "", &errors.ValidationError{Msg: "word already exists"}
	}
	return "added!", nil
}

func (m *manager) removeWord(ctx context.Context, request Request) (string, error) {
	if err := m.words.RemoveWord(ctx, request.Community, request.Args); err != nil {
		return "", err
	}
	return "removed", nil
}

func (m *manager) banWord(ctx context.Context, request Request) (string, error) {
	if err := m.words.BanWord(ctx, request.Community, request.Args); err != nil {
		return "", err
	}
	return "banned", nil
}

func (m *manager) unbanWord(ctx context.Context, request Request) (string, error) {
	if err := m.words.UnbanWord(ctx, request.Community, request.Args); err != nil {
		return "", err
	}
	return "unbanned", nil
}

func (m *manager) listWords(ctx context.Context, request Request) (string, error) {
	page := 1
	if args := strings.TrimSpace(request.Args); args != "" {
		parsed, err := strconv.Atoi(args)
		if err != nil {
			return "", &errors.ValidationError{Msg: "bad page number"}
		}
		page = parsed
	}
	words, err := m.words.GetWordsPage(ctx, request.Community, page, 25)
	if err != nil {
		return "", err
	}
	names := make([]string, len(words))
	for i, w := range words {
		names[i] = w.Word.String()
	}
	return strings.Join(names, ", "), nil
}

func (m *manager) showScore(ctx context.Context, request Request) (string, error) {
	score, err := m.scores.GetScore(ctx, request.UserId)
	if err != nil {
		return "", err
	}
	level := progression.GetUserLevel(score)
	return level.Name + " (" + strconv.FormatInt(score, 10) + ")", nil
}
