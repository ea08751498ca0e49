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

package tournament

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/identity"
	"github.com/doodleduel/doodleduel-go/pkg/kvStore"
	"github.com/doodleduel/doodleduel-go/pkg/models/progression"
	"github.com/doodleduel/doodleduel-go/pkg/platform"
	"github.com/doodleduel/doodleduel-go/pkg/rateLimiter"
	"github.com/doodleduel/doodleduel-go/pkg/redisLocker"
	"github.com/doodleduel/doodleduel-go/pkg/scheduler"
	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

// Options carries the engine constants. Zero values are replaced by
// DefaultOptions at construction.
type Options struct {
	InitialElo    float64
	KFactor       float64
	SnapshotCount int
	PayoutWindow  time.Duration
	TopPercent    int64
	TopReward     int64
	Ladder        []int64
	VoteReward    int64

	SchedulerLockTTL time.Duration
	EloLockTTL       time.Duration

	SubmitLimit  int64
	SubmitWindow time.Duration
	VoteLimit    int64
	VoteWindow   time.Duration
}

func DefaultOptions() Options {
	return Options{
		InitialElo:    1200,
		KFactor:       32,
		SnapshotCount: 3,
		PayoutWindow:  24 * time.Hour,
		TopPercent:    20,
		TopReward:     50,
		Ladder:        []int64{100, 50, 25},
		VoteReward:    1,

		SchedulerLockTTL: 30 * time.Second,
		EloLockTTL:       2 * time.Second,

		SubmitLimit:  2,
		SubmitWindow: 10 * time.Second,
		VoteLimit:    3,
		VoteWindow:   time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.InitialElo == 0 {
		o.InitialElo = d.InitialElo
	}
	if o.KFactor == 0 {
		o.KFactor = d.KFactor
	}
	if o.SnapshotCount == 0 {
		o.SnapshotCount = d.SnapshotCount
	}
	if o.PayoutWindow == 0 {
		o.PayoutWindow = d.PayoutWindow
	}
	if o.TopPercent == 0 {
		o.TopPercent = d.TopPercent
	}
	if o.TopReward == 0 {
		o.TopReward = d.TopReward
	}
	if o.Ladder == nil {
		o.Ladder = d.Ladder
	}
	if o.VoteReward == 0 {
		o.VoteReward = d.VoteReward
	}
	if o.SchedulerLockTTL == 0 {
		o.SchedulerLockTTL = d.SchedulerLockTTL
	}
	if o.EloLockTTL == 0 {
		o.EloLockTTL = d.EloLockTTL
	}
	if o.SubmitLimit == 0 {
		o.SubmitLimit = d.SubmitLimit
	}
	if o.SubmitWindow == 0 {
		o.SubmitWindow = d.SubmitWindow
	}
	if o.VoteLimit == 0 {
		o.VoteLimit = d.VoteLimit
	}
	if o.VoteWindow == 0 {
		o.VoteWindow = d.VoteWindow
	}
	return o
}

type Tournament struct {
	PostId    sharedTypes.PostId `json:"postId"`
	Word      sharedTypes.Word   `json:"word"`
	CreatedAt time.Time          `json:"createdAt"`
	Votes     int64              `json:"votes"`
}

type Entry struct {
	CommentId sharedTypes.CommentId `json:"commentId"`
	PostId    sharedTypes.PostId    `json:"postId"`
	UserId    sharedTypes.UserId    `json:"userId"`
	Drawing   string                `json:"drawing"`
	MediaUrl  string                `json:"mediaUrl"`
	MediaId   string                `json:"mediaId"`
	Votes     int64                 `json:"votes"`
	Views     int64                 `json:"views"`
	Rating    float64               `json:"rating"`
}

type Pair struct {
	A sharedTypes.CommentId `json:"a"`
	B sharedTypes.CommentId `json:"b"`
}

type SubmitRequest struct {
	Community sharedTypes.Community
	PostId    sharedTypes.PostId
	UserId    sharedTypes.UserId
	Drawing   string
	ImageUrl  string
	// CommentId is set when re-submitting over an existing drawing
	// comment; empty for a fresh submission.
	CommentId sharedTypes.CommentId
}

type VoteRequest struct {
	PostId  sharedTypes.PostId
	Winner  sharedTypes.CommentId
	Loser   sharedTypes.CommentId
	VoterId sharedTypes.UserId
}

var errInsufficientEntries = &errors.CodedError{
	Description: "not enough entries",
	Code:        "InsufficientEntries",
}

type Manager interface {
	GetTournament(ctx context.Context, postId sharedTypes.PostId) (*Tournament, error)
	SubmitEntry(ctx context.Context, request SubmitRequest) (*Entry, error)
	RecordEntryView(ctx context.Context, commentId sharedTypes.CommentId) error
	RemoveEntry(ctx context.Context, commentId sharedTypes.CommentId) error
	GetEntry(ctx context.Context, commentId sharedTypes.CommentId) (*Entry, error)
	SelectPairs(ctx context.Context, postId sharedTypes.PostId, count int) ([]Pair, error)
	CastVote(ctx context.Context, request VoteRequest) error
	GetStandings(ctx context.Context, postId sharedTypes.PostId, limit int64) ([]Entry, error)

	AddPrompt(ctx context.Context, c sharedTypes.Community, raw string) error
	GetHopper(ctx context.Context, c sharedTypes.Community) ([]sharedTypes.Word, error)
	SetSchedulerEnabled(ctx context.Context, c sharedTypes.Community, enabled bool) error
	SchedulerTick(ctx context.Context, c sharedTypes.Community) (*Tournament, error)

	AwardPayout(ctx context.Context, postId sharedTypes.PostId, dayIndex int) (errors.Result, error)

	HandleSchedulerJob(ctx context.Context, data json.RawMessage) error
	HandlePayoutJob(ctx context.Context, data json.RawMessage) error
	HandleCreatePinnedCommentJob(ctx context.Context, data json.RawMessage) error
	HandleUpdatePinnedCommentJob(ctx context.Context, data json.RawMessage) error
}

func New(
	store kvStore.Manager,
	locker redisLocker.Locker,
	limiter rateLimiter.Manager,
	jobs scheduler.Client,
	content platform.Content,
	media platform.Media,
	users identity.Manager,
	scores progression.Manager,
	options Options,
) Manager {
	return &manager{
		store:   store,
		locker:  locker,
		limiter: limiter,
		jobs:    jobs,
		content: content,
		media:   media,
		users:   users,
		scores:  scores,
		options: options.withDefaults(),
		now:     time.Now,
	}
}

type manager struct {
	store   kvStore.Manager
	locker  redisLocker.Locker
	limiter rateLimiter.Manager
	jobs    scheduler.Client
	content platform.Content
	media   platform.Media
	users   identity.Manager
	scores  progression.Manager
	options Options
	now     func() time.Time
}

func getTournamentKey(postId sharedTypes.PostId) string {
	return "tournament:" + postId.String()
}

func getEntriesKey(postId sharedTypes.PostId) string {
	return "tournament:entries:" + postId.String()
}

func getEntryKey(commentId sharedTypes.CommentId) string {
	return "tournament:entry:" + commentId.String()
}

func getPlayersKey(postId sharedTypes.PostId) string {
	return "tournament:players:" + postId.String()
}

func getTournamentsIndexKey() string {
	return "tournaments:all"
}

func (m *manager) GetTournament(ctx context.Context, postId sharedTypes.PostId) (*Tournament, error) {
	fields, err := m.store.HGetAll(ctx, getTournamentKey(postId))
	if err != nil {
		return nil, errors.Tag(err, "cannot read tournament")
	}
	if len(fields) == 0 || fields["type"] != "tournament" {
		return nil, &errors.NotFoundError{}
	}
	createdAt, _ := strconv.ParseInt(fields["createdAt"], 10, 64)
	votes, _ := strconv.ParseInt(fields["votes"], 10, 64)
	return &Tournament{
		PostId:    postId,
		Word:      sharedTypes.Word(fields["word"]),
		CreatedAt: time.Unix(createdAt, 0),
		Votes:     votes,
	}, nil
}

func (m *manager) SubmitEntry(ctx context.Context, request SubmitRequest) (*Entry, error) {
	if err := request.PostId.Validate(); err != nil {
		return nil, err
	}
	if err := request.UserId.Validate(); err != nil {
		return nil, err
	}
	err := m.limiter.Check(
		ctx, "submit:"+request.UserId.String(),
		m.options.SubmitLimit, m.options.SubmitWindow,
	)
	if err != nil {
		return nil, err
	}
	if _, err = m.GetTournament(ctx, request.PostId); err != nil {
		return nil, err
	}

	commentId := request.CommentId
	var asset *platform.MediaAsset
	if commentId == "" {
		if asset, err = m.media.Upload(ctx, request.ImageUrl, "image"); err != nil {
			return nil, errors.Tag(err, "cannot upload drawing")
		}
		commentId, err = m.content.SubmitComment(
			ctx, request.PostId, "New tournament entry!",
		)
		if err != nil {
			return nil, errors.Tag(err, "cannot post drawing comment")
		}
	}

	// The entries zset is the source of truth; NX makes re-submission
	// with a known comment id a no-op.
	added, err := m.store.ZAddNX(ctx, getEntriesKey(request.PostId), kvStore.Member{
		Member: commentId.String(),
		Score:  m.options.InitialElo,
	})
	if err != nil {
		return nil, errors.Tag(err, "cannot add entry")
	}
	if added == 0 {
		return m.GetEntry(ctx, commentId)
	}

	entry := &Entry{
		CommentId: commentId,
		PostId:    request.PostId,
		UserId:    request.UserId,
		Drawing:   request.Drawing,
		Rating:    m.options.InitialElo,
	}
	if asset != nil {
		entry.MediaUrl = asset.Url
		entry.MediaId = asset.Id
	}
	err = m.store.HSetMap(ctx, getEntryKey(commentId), map[string]string{
		"postId":   request.PostId.String(),
		"userId":   request.UserId.String(),
		"drawing":  request.Drawing,
		"mediaUrl": entry.MediaUrl,
		"mediaId":  entry.MediaId,
		"votes":    "0",
		"views":    "0",
	})
	if err != nil {
		return nil, errors.Tag(err, "cannot persist entry")
	}
	_, err = m.store.ZIncrBy(
		ctx, getPlayersKey(request.PostId), 1, request.UserId.String(),
	)
	if err != nil {
		return nil, errors.Tag(err, "cannot count player")
	}
	return entry, nil
}

func (m *manager) GetEntry(ctx context.Context, commentId sharedTypes.CommentId) (*Entry, error) {
	fields, err := m.store.HGetAll(ctx, getEntryKey(commentId))
	if err != nil {
		return nil, errors.Tag(err, "cannot read entry")
	}
	if len(fields) == 0 {
		return nil, &errors.NotFoundError{}
	}
	postId := sharedTypes.PostId(fields["postId"])
	rating, err := m.store.ZScore(ctx, getEntriesKey(postId), commentId.String())
	if err != nil {
		if errors.IsNotFoundError(err) {
			// The zset decides existence; a dangling metadata hash is
			// an already removed entry.
			return nil, &errors.NotFoundError{}
		}
		return nil, errors.Tag(err, "cannot read rating")
	}
	votes, _ := strconv.ParseInt(fields["votes"], 10, 64)
	views, _ := strconv.ParseInt(fields["views"], 10, 64)
	return &Entry{
		CommentId: commentId,
		PostId:    postId,
		UserId:    sharedTypes.UserId(fields["userId"]),
		Drawing:   fields["drawing"],
		MediaUrl:  fields["mediaUrl"],
		MediaId:   fields["mediaId"],
		Votes:     votes,
		Views:     views,
		Rating:    rating,
	}, nil
}

func (m *manager) RecordEntryView(ctx context.Context, commentId sharedTypes.CommentId) error {
	_, err := m.store.HIncrBy(ctx, getEntryKey(commentId), "views", 1)
	if err != nil {
		return errors.Tag(err, "cannot count view")
	}
	return nil
}

func (m *manager) RemoveEntry(ctx context.Context, commentId sharedTypes.CommentId) error {
	postId, err := m.store.HGet(ctx, getEntryKey(commentId), "postId")
	if err != nil {
		if errors.IsNotFoundError(err) {
			return nil
		}
		return errors.Tag(err, "cannot resolve entry")
	}
	merged := errors.MergedError{}
	merged.Add(m.store.ZRem(
		ctx, getEntriesKey(sharedTypes.PostId(postId)), commentId.String(),
	))
	merged.Add(m.store.Del(ctx, getEntryKey(commentId)))
	return merged.Finalize()
}

func (m *manager) SelectPairs(ctx context.Context, postId sharedTypes.PostId, count int) ([]Pair, error) {
	if count < 1 {
		return nil, &errors.ValidationError{Msg: "bad pair count"}
	}
	members, err := m.store.ZRange(ctx, getEntriesKey(postId), 0, -1, false)
	if err != nil {
		return nil, errors.Tag(err, "cannot read entries")
	}
	if len(members) < 2 {
		return nil, errInsufficientEntries
	}
	entries := make([]sharedTypes.CommentId, len(members))
	for i, member := range members {
		entries[i] = sharedTypes.CommentId(member.Member)
	}

	shuffle := func() {
		rand.Shuffle(len(entries), func(i, j int) {
			entries[i], entries[j] = entries[j], entries[i]
		})
	}
	shuffle()

	pairs := make([]Pair, 0, count)
	var prev *Pair
	idx := 0
	attempts := 0
	maxAttempts := 4 * count
	for len(pairs) < count && attempts < maxAttempts {
		attempts++
		if idx+1 >= len(entries) {
			shuffle()
			idx = 0
		}
		candidate := Pair{A: entries[idx], B: entries[idx+1]}
		idx += 2
		if prev != nil {
			if candidate == *prev {
				// Same matchup again, at least flip the order.
				candidate = Pair{A: candidate.B, B: candidate.A}
			} else if sharesEndpoint(candidate, *prev) && len(entries) > 3 {
				continue
			}
		}
		pairs = append(pairs, candidate)
		prev = &pairs[len(pairs)-1]
	}
	return pairs, nil
}

func sharesEndpoint(a, b Pair) bool {
	return a.A == b.A || a.A == b.B || a.B == b.A || a.B == b.B
}

// eloDelta is the winner's gain for a win at ratings (rW, rL); the
// loser loses the same amount.
func eloDelta(k, rW, rL float64) float64 {
	expected := 1 / (1 + math.Pow(10, (rL-rW)/400))
	return k * (1 - expected)
}

func getEloLockKey(postId sharedTypes.PostId) string {
	return "tournament:payout:elo_lock:" + postId.String()
}

// awardScore increments the user score and kicks off the level-up
// pipeline when the award crossed a rank boundary.
func (m *manager) awardScore(ctx context.Context, userId sharedTypes.UserId, amount int64, applyMultiplier bool) error {
	before, after, err := m.scores.IncrementScore(
		ctx, userId, amount, applyMultiplier,
	)
	if err != nil {
		return err
	}
	if progression.GetUserLevel(before) == progression.GetUserLevel(after) {
		return nil
	}
	payload := map[string]string{"userId": userId.String()}
	if _, err = m.jobs.RunJob(
		ctx, scheduler.JobUserLevelUp, payload, time.Time{},
	); err != nil {
		return errors.Tag(err, "cannot enqueue level up")
	}
	if _, err = m.jobs.RunJob(
		ctx, scheduler.JobSetUserFlair, payload, time.Time{},
	); err != nil {
		return errors.Tag(err, "cannot enqueue flair update")
	}
	return nil
}

func (m *manager) CastVote(ctx context.Context, request VoteRequest) error {
	if err := request.PostId.Validate(); err != nil {
		return err
	}
	if err := request.VoterId.Validate(); err != nil {
		return err
	}
	if request.Winner == request.Loser {
		return &errors.ValidationError{Msg: "cannot vote against one entry"}
	}
	err := m.limiter.Check(
		ctx, "vote:"+request.VoterId.String(),
		m.options.VoteLimit, m.options.VoteWindow,
	)
	if err != nil {
		return err
	}

	entriesKey := getEntriesKey(request.PostId)
	rW, err := m.store.ZScore(ctx, entriesKey, request.Winner.String())
	if err != nil {
		return errors.Tag(err, "cannot read winner rating")
	}
	rL, err := m.store.ZScore(ctx, entriesKey, request.Loser.String())
	if err != nil {
		return errors.Tag(err, "cannot read loser rating")
	}

	// Everything below the Elo write is fire-and-forget: monotone
	// counter adds that are safe to lose individually.
	if err = m.awardScore(ctx, request.VoterId, m.options.VoteReward, true); err != nil {
		log.Printf("vote reward for %s: %s", request.VoterId, err)
	}
	if _, err = m.store.ZIncrBy(
		ctx, getPlayersKey(request.PostId), 1, request.VoterId.String(),
	); err != nil {
		log.Printf("vote participation for %s: %s", request.VoterId, err)
	}
	if _, err = m.store.HIncrBy(
		ctx, getTournamentKey(request.PostId), "votes", 1,
	); err != nil {
		log.Printf("tournament vote count for %s: %s", request.PostId, err)
	}
	if _, err = m.store.HIncrBy(
		ctx, getEntryKey(request.Winner), "votes", 1,
	); err != nil {
		log.Printf("entry vote count for %s: %s", request.Winner, err)
	}

	// The lock bounds rating divergence under vote storms. On a miss
	// the pre-read ratings stand in; the zset carries absolute values
	// and the deltas sum to zero, so divergence reconciles over time.
	lock, err := m.locker.TryAcquire(
		ctx, getEloLockKey(request.PostId), m.options.EloLockTTL,
	)
	if err == nil {
		if latest, err2 := m.store.ZScore(
			ctx, entriesKey, request.Winner.String(),
		); err2 == nil {
			rW = latest
		}
		if latest, err2 := m.store.ZScore(
			ctx, entriesKey, request.Loser.String(),
		); err2 == nil {
			rL = latest
		}
	} else if !errors.IsAlreadyRunning(err) {
		return errors.Tag(err, "cannot acquire elo lock")
	}

	delta := eloDelta(m.options.KFactor, rW, rL)
	err = m.store.ZAdd(ctx, entriesKey,
		kvStore.Member{Member: request.Winner.String(), Score: rW + delta},
		kvStore.Member{Member: request.Loser.String(), Score: rL - delta},
	)
	if lock != nil {
		if releaseErr := lock.Release(); releaseErr != nil {
			log.Printf("release elo lock for %s: %s", request.PostId, releaseErr)
		}
	}
	if err != nil {
		return errors.Tag(err, "cannot write ratings")
	}
	return nil
}

func (m *manager) GetStandings(ctx context.Context, postId sharedTypes.PostId, limit int64) ([]Entry, error) {
	if limit < 1 {
		return nil, &errors.ValidationError{Msg: "bad limit"}
	}
	members, err := m.store.ZRange(ctx, getEntriesKey(postId), 0, limit-1, true)
	if err != nil {
		return nil, errors.Tag(err, "cannot read standings")
	}
	entries := make([]Entry, 0, len(members))
	for _, member := range members {
		entry, err2 := m.GetEntry(ctx, sharedTypes.CommentId(member.Member))
		if err2 != nil {
			if errors.IsNotFoundError(err2) {
				continue
			}
			return nil, err2
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}
