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

package progression

import (
	"context"
	"encoding/json"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
	"github.com/doodleduel/doodleduel-go/pkg/sharedTypes"
)

// LevelUpPayload is the USER_LEVEL_UP job contract. Unknown fields are
// ignored.
type LevelUpPayload struct {
	UserId sharedTypes.UserId `json:"userId"`
}

// HandleLevelUpJob notifies the user about their new rank. Re-delivery
// just repeats the notification, the rank is derived from the score.
func (m *manager) HandleLevelUpJob(ctx context.Context, data json.RawMessage) error {
	payload := LevelUpPayload{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return &errors.ValidationError{Msg: "malformed level up payload"}
	}
	if err := payload.UserId.Validate(); err != nil {
		return err
	}
	score, err := m.GetScore(ctx, payload.UserId)
	if err != nil {
		return err
	}
	m.realtime.Send(ctx, payload.UserId, "level_up", GetUserLevel(score))
	return nil
}
