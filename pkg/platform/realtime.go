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

package platform

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/doodleduel/doodleduel-go/pkg/pubSub/channel"
	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

// NewRedisRealtime publishes user events on the "user:<id>" pub/sub
// channels.
func NewRedisRealtime(client redis.UniversalClient) Realtime {
	return &redisRealtime{
		writer: channel.NewWriter(client, "user"),
	}
}

type redisRealtime struct {
	writer channel.Writer
}

type userEvent struct {
	userId  sharedTypes.UserId
	Name    string      `json:"name"`
	Payload interface{} `json:"payload,omitempty"`
}

func (e userEvent) ChannelId() string {
	return e.userId.String()
}

func (r *redisRealtime) Send(ctx context.Context, userId sharedTypes.UserId, event string, payload interface{}) {
	err := r.writer.Publish(ctx, userEvent{
		userId:  userId,
		Name:    event,
		Payload: payload,
	})
	if err != nil {
		log.Printf("realtime send %s to %s: %s", event, userId, err)
	}
}
