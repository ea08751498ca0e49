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

package sharedTypes

import (
	"github.com/doodleduel/doodleduel-go/pkg/errors"
)

// Community is the unique name of an installed community.
type Community string

func (c Community) String() string {
	return string(c)
}

func (c Community) Validate() error {
	if c == "" {
		return &errors.ValidationError{Msg: "missing community name"}
	}
	return nil
}

// UserId is the stable identifier of a user on the host platform.
type UserId string

func (u UserId) String() string {
	return string(u)
}

func (u UserId) Validate() error {
	if u == "" {
		return &errors.ValidationError{Msg: "missing user id"}
	}
	return nil
}

// PostId identifies a post; tournaments are keyed by the post that
// hosts them.
type PostId string

func (p PostId) String() string {
	return string(p)
}

func (p PostId) Validate() error {
	if p == "" {
		return &errors.ValidationError{Msg: "missing post id"}
	}
	return nil
}

// CommentId identifies a comment; tournament entries are keyed by the
// drawing comment.
type CommentId string

func (c CommentId) String() string {
	return string(c)
}

func (c CommentId) Validate() error {
	if c == "" {
		return &errors.ValidationError{Msg: "missing comment id"}
	}
	return nil
}
