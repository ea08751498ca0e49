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
	"strconv"
	"strings"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

func getPayoutLedgerKey(postId sharedTypes.PostId) string {
	return "tournament:payout:ledger:" + postId.String()
}

func getPayoutLockKey(postId sharedTypes.PostId, dayIndex int) string {
	return "tournament:payout:lock:" + postId.String() +
		":" + strconv.Itoa(dayIndex)
}

func ledgerField(dayIndex int) string {
	return "day_" + strconv.Itoa(dayIndex)
}

// AwardPayout runs the snapshot payout for one day window. The ledger
// flag is checked inside the lock; together they give effectively-once
// semantics under a single-scheduler deployment. Score awards are
// monotone and never rolled back.
func (m *manager) AwardPayout(ctx context.Context, postId sharedTypes.PostId, dayIndex int) (errors.Result, error) {
	if err := postId.Validate(); err != nil {
		return errors.Classify(err), err
	}
	if dayIndex < 1 || dayIndex > m.options.SnapshotCount {
		err := &errors.ValidationError{Msg: "bad day index"}
		return errors.Classify(err), err
	}
	lock, err := m.locker.TryAcquire(
		ctx, getPayoutLockKey(postId, dayIndex), m.options.PayoutWindow,
	)
	if err != nil {
		return errors.Classify(err), err
	}
	defer func() {
		_ = lock.Release()
	}()

	ledgerKey := getPayoutLedgerKey(postId)
	if _, err = m.store.HGet(ctx, ledgerKey, ledgerField(dayIndex)); err == nil {
		return errors.Skipped("already paid out"), nil
	} else if !errors.IsNotFoundError(err) {
		return errors.Classify(err), errors.Tag(err, "cannot read ledger")
	}

	entryCount, err := m.store.ZCard(ctx, getEntriesKey(postId))
	if err != nil {
		return errors.Classify(err), errors.Tag(err, "cannot count entries")
	}
	if entryCount == 0 {
		if err = m.store.HSet(ctx, ledgerKey, ledgerField(dayIndex), "1"); err != nil {
			return errors.Classify(err), errors.Tag(err, "cannot mark ledger")
		}
		return errors.OK(), nil
	}

	cutoff := entryCount * m.options.TopPercent / 100
	if cutoff < 1 {
		cutoff = 1
	}
	top, err := m.GetStandings(ctx, postId, cutoff)
	if err != nil {
		return errors.Classify(err), err
	}

	for rank, entry := range top {
		reward := m.options.TopReward
		if rank < len(m.options.Ladder) {
			reward += m.options.Ladder[rank]
		}
		if err = m.awardScore(ctx, entry.UserId, reward, false); err != nil {
			return errors.Classify(err), errors.Tag(err, "cannot award payout")
		}
	}

	if err = m.store.HSet(ctx, ledgerKey, ledgerField(dayIndex), "1"); err != nil {
		return errors.Classify(err), errors.Tag(err, "cannot mark ledger")
	}

	// The summary comment is best-effort; a failure must not revert
	// the awards above.
	if err = m.postPayoutSummary(ctx, postId, dayIndex, top); err != nil {
		log.Printf("payout summary for %s day %d: %s", postId, dayIndex, err)
	}
	return errors.OK(), nil
}

func (m *manager) postPayoutSummary(ctx context.Context, postId sharedTypes.PostId, dayIndex int, top []Entry) error {
	var b strings.Builder
	b.WriteString("Day ")
	b.WriteString(strconv.Itoa(dayIndex))
	b.WriteString(" standings:\n")
	for rank, entry := range top {
		username, err := m.users.GetUsername(ctx, entry.UserId)
		if err != nil {
			username = entry.UserId.String()
		}
		b.WriteString(strconv.Itoa(rank + 1))
		b.WriteString(". ")
		b.WriteString(username)
		b.WriteString(" (")
		b.WriteString(strconv.FormatFloat(entry.Rating, 'f', 0, 64))
		b.WriteString(")\n")
	}
	commentId, err := m.content.SubmitComment(ctx, postId, b.String())
	if err != nil {
		return errors.Tag(err, "cannot post summary")
	}
	if err = m.content.DistinguishComment(ctx, commentId); err != nil {
		return errors.Tag(err, "cannot distinguish summary")
	}
	return nil
}

// PayoutPayload is the TOURNAMENT_PAYOUT job contract. Unknown fields
// are ignored.
type PayoutPayload struct {
	PostId   sharedTypes.PostId `json:"postId"`
	DayIndex int                `json:"dayIndex"`
}

func (m *manager) HandlePayoutJob(ctx context.Context, data json.RawMessage) error {
	payload := PayoutPayload{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return &errors.ValidationError{Msg: "malformed payout payload"}
	}
	_, err := m.AwardPayout(ctx, payload.PostId, payload.DayIndex)
	if errors.IsAlreadyRunning(err) {
		// Another scheduler already owns this window.
		return nil
	}
	return err
}
