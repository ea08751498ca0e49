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

import "time"

const (
	KindScoreMultiplier  = "score_multiplier"
	KindExtraDrawingTime = "extra_drawing_time"
)

// Item is a consumable in the fixed catalog.
type Item struct {
	Id           string
	Kind         string
	Multiplier   float64
	ExtraSeconds int64
	Duration     time.Duration
}

var items = map[string]Item{
	"double_score_30m": {
		Id:         "double_score_30m",
		Kind:       KindScoreMultiplier,
		Multiplier: 2,
		Duration:   30 * time.Minute,
	},
	"triple_score_10m": {
		Id:         "triple_score_10m",
		Kind:       KindScoreMultiplier,
		Multiplier: 3,
		Duration:   10 * time.Minute,
	},
	"extra_time_30s": {
		Id:           "extra_time_30s",
		Kind:         KindExtraDrawingTime,
		ExtraSeconds: 30,
		Duration:     time.Hour,
	},
	"extra_time_60s": {
		Id:           "extra_time_60s",
		Kind:         KindExtraDrawingTime,
		ExtraSeconds: 60,
		Duration:     time.Hour,
	},
}

func GetItem(id string) (Item, bool) {
	item, exists := items[id]
	return item, exists
}
