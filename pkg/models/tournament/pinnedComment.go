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
	"strconv"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

// PinnedCommentPayload drives both the create and the update job.
// Unknown fields are ignored.
type PinnedCommentPayload struct {
	PostId sharedTypes.PostId `json:"postId"`
}

func pinnedCommentText(t *Tournament) string {
	return "Draw \"" + t.Word.String() + "\" and battle it out! " +
		"Vote on head-to-head matchups to crown a winner. " +
		"Votes so far: " + strconv.FormatInt(t.Votes, 10)
}

// HandleCreatePinnedCommentJob posts the sticky explainer comment under
// a fresh tournament post. Re-delivery is a no-op via the stored
// comment id.
func (m *manager) HandleCreatePinnedCommentJob(ctx context.Context, data json.RawMessage) error {
	payload := PinnedCommentPayload{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return &errors.ValidationError{Msg: "malformed pinned comment payload"}
	}
	t, err := m.GetTournament(ctx, payload.PostId)
	if err != nil {
		return err
	}
	if _, err = m.store.HGet(
		ctx, getTournamentKey(payload.PostId), "pinnedCommentId",
	); err == nil {
		return nil
	} else if !errors.IsNotFoundError(err) {
		return errors.Tag(err, "cannot check pinned comment")
	}
	commentId, err := m.content.SubmitComment(
		ctx, payload.PostId, pinnedCommentText(t),
	)
	if err != nil {
		return errors.Tag(err, "cannot post pinned comment")
	}
	if err = m.content.DistinguishComment(ctx, commentId); err != nil {
		return errors.Tag(err, "cannot distinguish pinned comment")
	}
	err = m.store.HSet(
		ctx, getTournamentKey(payload.PostId),
		"pinnedCommentId", commentId.String(),
	)
	if err != nil {
		return errors.Tag(err, "cannot record pinned comment")
	}
	return nil
}

// HandleUpdatePinnedCommentJob refreshes the sticky comment with the
// current vote count.
func (m *manager) HandleUpdatePinnedCommentJob(ctx context.Context, data json.RawMessage) error {
	payload := PinnedCommentPayload{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return &errors.ValidationError{Msg: "malformed pinned comment payload"}
	}
	t, err := m.GetTournament(ctx, payload.PostId)
	if err != nil {
		return err
	}
	commentId, err := m.store.HGet(
		ctx, getTournamentKey(payload.PostId), "pinnedCommentId",
	)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return m.HandleCreatePinnedCommentJob(ctx, data)
		}
		return errors.Tag(err, "cannot resolve pinned comment")
	}
	err = m.content.EditComment(
		ctx, sharedTypes.CommentId(commentId), pinnedCommentText(t),
	)
	if err != nil {
		return errors.Tag(err, "cannot edit pinned comment")
	}
	return nil
}
