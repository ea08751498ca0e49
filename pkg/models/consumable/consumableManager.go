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

package consumable

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/kvStore"
	"github.com/doodleduel/doodleduel-go/pkg/platform"
	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

const (
	// activationBuffer keeps the activation hash readable a little
	// longer than the effect lasts, the zset prune needs the metadata.
	activationBuffer = 5 * time.Minute

	effectsUpdatedEvent = "effects_updated"
)

// Effect is one currently active boost.
type Effect struct {
	ActivationId string             `json:"activationId"`
	ItemId       string             `json:"itemId"`
	Kind         string             `json:"kind"`
	Multiplier   float64            `json:"multiplier,omitempty"`
	ExtraSeconds int64              `json:"extraSeconds,omitempty"`
	UserId       sharedTypes.UserId `json:"userId"`
	ExpiresAt    time.Time          `json:"expiresAt"`
}

type Manager interface {
	GrantItem(ctx context.Context, userId sharedTypes.UserId, itemId string, count int64) error
	GetInventory(ctx context.Context, userId sharedTypes.UserId) (map[string]int64, error)

	// Activate consumes one inventory unit and starts the effect.
	Activate(ctx context.Context, userId sharedTypes.UserId, itemId string) (*Effect, error)

	// GetActiveEffects returns unexpired effects, pruning expired
	// entries as it goes.
	GetActiveEffects(ctx context.Context, userId sharedTypes.UserId) ([]Effect, error)

	// GetScoreMultiplier is the maximum multiplier across active
	// effects; multipliers do not stack. Defaults to 1.
	GetScoreMultiplier(ctx context.Context, userId sharedTypes.UserId) (float64, error)

	// GetExtraDrawingTime adds up across active effects.
	GetExtraDrawingTime(ctx context.Context, userId sharedTypes.UserId) (time.Duration, error)
}

func New(store kvStore.Manager, realtime platform.Realtime) Manager {
	return &manager{
		store:    store,
		realtime: realtime,
		now:      time.Now,
	}
}

type manager struct {
	store    kvStore.Manager
	realtime platform.Realtime
	now      func() time.Time
}

func getInventoryKey(userId sharedTypes.UserId) string {
	return "user:inventory:" + userId.String()
}

func getActiveBoostsKey(userId sharedTypes.UserId) string {
	return "user:active_boosts:" + userId.String()
}

func getBoostKey(activationId string) string {
	return "boost:" + activationId
}

func (m *manager) GrantItem(ctx context.Context, userId sharedTypes.UserId, itemId string, count int64) error {
	if _, exists := GetItem(itemId); !exists {
		return &errors.ValidationError{Msg: "unknown item: " + itemId}
	}
	if count < 1 {
		return &errors.ValidationError{Msg: "bad item count"}
	}
	_, err := m.store.HIncrBy(ctx, getInventoryKey(userId), itemId, count)
	if err != nil {
		return errors.Tag(err, "cannot grant item")
	}
	return nil
}

func (m *manager) GetInventory(ctx context.Context, userId sharedTypes.UserId) (map[string]int64, error) {
	fields, err := m.store.HGetAll(ctx, getInventoryKey(userId))
	if err != nil {
		return nil, errors.Tag(err, "cannot read inventory")
	}
	inventory := make(map[string]int64, len(fields))
	for itemId, raw := range fields {
		n, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil || n < 1 {
			continue
		}
		inventory[itemId] = n
	}
	return inventory, nil
}

func (m *manager) Activate(ctx context.Context, userId sharedTypes.UserId, itemId string) (*Effect, error) {
	item, exists := GetItem(itemId)
	if !exists {
		return nil, &errors.ValidationError{Msg: "unknown item: " + itemId}
	}
	remaining, err := m.store.HIncrBy(ctx, getInventoryKey(userId), itemId, -1)
	if err != nil {
		return nil, errors.Tag(err, "cannot consume item")
	}
	if remaining < 0 {
		// Hand it back, the user had none left.
		_, _ = m.store.HIncrBy(ctx, getInventoryKey(userId), itemId, 1)
		return nil, &errors.ValidationError{Msg: "no " + itemId + " left"}
	}

	now := m.now()
	expiresAt := now.Add(item.Duration)
	effect := &Effect{
		ActivationId: uuid.NewString(),
		ItemId:       itemId,
		Kind:         item.Kind,
		Multiplier:   item.Multiplier,
		ExtraSeconds: item.ExtraSeconds,
		UserId:       userId,
		ExpiresAt:    expiresAt,
	}
	boostKey := getBoostKey(effect.ActivationId)
	err = m.store.HSetMap(ctx, boostKey, map[string]string{
		"user":      userId.String(),
		"item":      itemId,
		"expiresAt": strconv.FormatInt(expiresAt.Unix(), 10),
	})
	if err != nil {
		return nil, errors.Tag(err, "cannot persist activation")
	}
	if err = m.store.Expire(ctx, boostKey, item.Duration+activationBuffer); err != nil {
		return nil, errors.Tag(err, "cannot expire activation")
	}
	err = m.store.ZAdd(ctx, getActiveBoostsKey(userId), kvStore.Member{
		Member: effect.ActivationId,
		Score:  float64(expiresAt.Unix()),
	})
	if err != nil {
		return nil, errors.Tag(err, "cannot track activation")
	}

	m.realtime.Send(ctx, userId, effectsUpdatedEvent, nil)
	return effect, nil
}

func (m *manager) GetActiveEffects(ctx context.Context, userId sharedTypes.UserId) ([]Effect, error) {
	members, err := m.store.ZRange(ctx, getActiveBoostsKey(userId), 0, -1, false)
	if err != nil {
		return nil, errors.Tag(err, "cannot read active boosts")
	}
	now := m.now()
	var stale []string
	effects := make([]Effect, 0, len(members))
	for _, member := range members {
		if int64(member.Score) <= now.Unix() {
			stale = append(stale, member.Member)
			continue
		}
		fields, err2 := m.store.HGetAll(ctx, getBoostKey(member.Member))
		if err2 != nil || len(fields) == 0 {
			stale = append(stale, member.Member)
			continue
		}
		item, exists := GetItem(fields["item"])
		if !exists {
			stale = append(stale, member.Member)
			continue
		}
		effects = append(effects, Effect{
			ActivationId: member.Member,
			ItemId:       fields["item"],
			Kind:         item.Kind,
			Multiplier:   item.Multiplier,
			ExtraSeconds: item.ExtraSeconds,
			UserId:       userId,
			ExpiresAt:    time.Unix(int64(member.Score), 0),
		})
	}
	if len(stale) > 0 {
		// Best-effort prune, the TTL on the boost hash is the backstop.
		merged := errors.MergedError{}
		merged.Add(m.store.ZRem(ctx, getActiveBoostsKey(userId), stale...))
		for _, activationId := range stale {
			merged.Add(m.store.Del(ctx, getBoostKey(activationId)))
		}
		_ = merged.Finalize()
	}
	return effects, nil
}

func (m *manager) GetScoreMultiplier(ctx context.Context, userId sharedTypes.UserId) (float64, error) {
	effects, err := m.GetActiveEffects(ctx, userId)
	if err != nil {
		return 1, err
	}
	multiplier := 1.0
	for _, effect := range effects {
		if effect.Kind == KindScoreMultiplier && effect.Multiplier > multiplier {
			multiplier = effect.Multiplier
		}
	}
	return multiplier, nil
}

func (m *manager) GetExtraDrawingTime(ctx context.Context, userId sharedTypes.UserId) (time.Duration, error) {
	effects, err := m.GetActiveEffects(ctx, userId)
	if err != nil {
		return 0, err
	}
	var extra int64
	for _, effect := range effects {
		if effect.Kind == KindExtraDrawingTime {
			extra += effect.ExtraSeconds
		}
	}
	return time.Duration(extra) * time.Second, nil
}
