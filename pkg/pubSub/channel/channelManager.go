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

package channel

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
)

type Message interface {
	ChannelId() string
}

// Writer publishes on per-entity channels below a shared base channel.
type Writer interface {
	Publish(ctx context.Context, msg Message) error
	PublishVia(ctx context.Context, runner redis.Cmdable, msg Message) (*redis.IntCmd, error)
}

type BaseChannel string
type channel string

func (c BaseChannel) join(id string) channel {
	return channel(string(c) + ":" + id)
}

func NewWriter(client redis.UniversalClient, baseChannel BaseChannel) Writer {
	return &manager{
		client: client,
		base:   baseChannel,
	}
}

type manager struct {
	client redis.UniversalClient
	base   BaseChannel
}

func (m *manager) Publish(ctx context.Context, msg Message) error {
	cmd, err := m.PublishVia(ctx, m.client, msg)
	if err != nil {
		return err
	}
	if err = cmd.Err(); err != nil {
		return errors.Tag(err, "cannot send message")
	}
	return nil
}

func (m *manager) PublishVia(ctx context.Context, runner redis.Cmdable, msg Message) (*redis.IntCmd, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Tag(err, "cannot encode message for publishing")
	}
	id := msg.ChannelId()
	return runner.Publish(ctx, string(m.base.join(id)), body), nil
}
