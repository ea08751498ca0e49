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

package identity

import (
	"context"
	"time"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/kvStore"
	"github.com/doodleduel/doodleduel-go/pkg/platform"
	"github.com/doodleduel/doodleduel-go/pkg/redisCache"
	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

const (
	usernameTTL  = 90 * 24 * time.Hour
	adminTTL     = 24 * time.Hour
	moderatorTTL = 10 * 24 * time.Hour
)

// Manager memoizes identity lookups in the shared cache layer. There is
// deliberately no in-process cache, multiple server instances share the
// same view.
type Manager interface {
	GetUsername(ctx context.Context, id sharedTypes.UserId) (string, error)
	GetUserByUsername(ctx context.Context, username string) (*platform.User, error)
	IsAdmin(ctx context.Context, id sharedTypes.UserId) (bool, error)
	IsModerator(ctx context.Context, community sharedTypes.Community, id sharedTypes.UserId) (bool, error)
}

func New(store kvStore.Manager, users platform.Identity) Manager {
	return &manager{store: store, users: users}
}

type manager struct {
	store kvStore.Manager
	users platform.Identity
}

func getNameKey(id sharedTypes.UserId) string {
	return "user:name:" + id.String()
}

func getIdKey(username string) string {
	return "user:id:" + username
}

func getAdminKey(id sharedTypes.UserId) string {
	return "user:admin:" + id.String()
}

func getModKey(id sharedTypes.UserId) string {
	return "user:mod:" + id.String()
}

func (m *manager) GetUsername(ctx context.Context, id sharedTypes.UserId) (string, error) {
	return redisCache.GetOrFill(
		ctx, m.store, getNameKey(id), usernameTTL,
		func(ctx context.Context) (string, error) {
			u, err := m.users.GetUserById(ctx, id)
			if err != nil {
				return "", errors.Tag(err, "cannot resolve user "+id.String())
			}
			return u.Username, nil
		},
	)
}

func (m *manager) GetUserByUsername(ctx context.Context, username string) (*platform.User, error) {
	return redisCache.GetOrFill(
		ctx, m.store, getIdKey(username), usernameTTL,
		func(ctx context.Context) (*platform.User, error) {
			u, err := m.users.GetUserByUsername(ctx, username)
			if err != nil {
				return nil, errors.Tag(err, "cannot resolve username "+username)
			}
			return u, nil
		},
	)
}

func (m *manager) IsAdmin(ctx context.Context, id sharedTypes.UserId) (bool, error) {
	return redisCache.GetOrFill(
		ctx, m.store, getAdminKey(id), adminTTL,
		func(ctx context.Context) (bool, error) {
			u, err := m.users.GetUserById(ctx, id)
			if err != nil {
				return false, errors.Tag(err, "cannot resolve user "+id.String())
			}
			return u.IsAdmin, nil
		},
	)
}

func (m *manager) IsModerator(ctx context.Context, community sharedTypes.Community, id sharedTypes.UserId) (bool, error) {
	return redisCache.GetOrFill(
		ctx, m.store, getModKey(id), moderatorTTL,
		func(ctx context.Context) (bool, error) {
			mods, err := m.users.GetModerators(ctx, community)
			if err != nil {
				return false, errors.Tag(
					err, "cannot list moderators of "+community.String(),
				)
			}
			for _, modId := range mods {
				if modId == id {
					return true, nil
				}
			}
			return false, nil
		},
	)
}
