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

// Package platform declares the capability surface of the host
// platform. The engine composes these collaborators; it never talks to
// the host API directly.
package platform

import (
	"context"
	"time"

	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

type User struct {
	Id       sharedTypes.UserId `json:"id"`
	Username string             `json:"username"`
	IsAdmin  bool               `json:"isAdmin"`
}

type Post struct {
	Id        sharedTypes.PostId
	Title     string
	CreatedAt time.Time
}

type MediaAsset struct {
	Id  string
	Url string
}

type Identity interface {
	GetUserById(ctx context.Context, id sharedTypes.UserId) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetModerators(ctx context.Context, community sharedTypes.Community) ([]sharedTypes.UserId, error)
}

type Content interface {
	SubmitPost(ctx context.Context, community sharedTypes.Community, title string) (*Post, error)
	GetPostById(ctx context.Context, id sharedTypes.PostId) (*Post, error)
	SetPostData(ctx context.Context, id sharedTypes.PostId, data map[string]string) error
	SubmitComment(ctx context.Context, postId sharedTypes.PostId, text string) (sharedTypes.CommentId, error)
	EditComment(ctx context.Context, commentId sharedTypes.CommentId, text string) error
	DistinguishComment(ctx context.Context, commentId sharedTypes.CommentId) error
}

type Media interface {
	Upload(ctx context.Context, url, mediaType string) (*MediaAsset, error)
}

// Realtime delivers fire-and-forget events to a user channel. Failures
// are non-fatal and must not surface to callers.
type Realtime interface {
	Send(ctx context.Context, userId sharedTypes.UserId, event string, payload interface{})
}
