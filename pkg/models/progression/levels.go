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

// Level is one rank in the fixed progression table.
type Level struct {
	Rank int    `json:"rank"`
	Name string `json:"name"`
	Min  int64  `json:"min"`
}

var levels = []Level{
	{Rank: 1, Name: "Doodler", Min: 0},
	{Rank: 2, Name: "Sketcher", Min: 100},
	{Rank: 3, Name: "Scribbler", Min: 300},
	{Rank: 4, Name: "Illustrator", Min: 700},
	{Rank: 5, Name: "Artist", Min: 1500},
	{Rank: 6, Name: "Painter", Min: 3000},
	{Rank: 7, Name: "Virtuoso", Min: 6000},
	{Rank: 8, Name: "Master", Min: 12000},
	{Rank: 9, Name: "Grandmaster", Min: 25000},
	{Rank: 10, Name: "Legend", Min: 50000},
	{Rank: 11, Name: "Mythic", Min: 100000},
	{Rank: 12, Name: "Immortal", Min: 200000},
	{Rank: 13, Name: "Celestial", Min: 400000},
	{Rank: 14, Name: "Cosmic", Min: 800000},
	{Rank: 15, Name: "Transcendent", Min: 1600000},
}

// GetUserLevel maps a score onto its rank. Pure, the table is fixed.
func GetUserLevel(score int64) Level {
	current := levels[0]
	for _, l := range levels {
		if score < l.Min {
			break
		}
		current = l
	}
	return current
}
