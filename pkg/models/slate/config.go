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

package slate

import (
	"context"
	"strconv"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
)

// Config tunes the word-selection bandit. It lives in a redis hash so
// admins can adjust it at runtime without a deploy.
type Config struct {
	ExplorationRate float64 `json:"explorationRate"`
	ZScoreClamp     float64 `json:"zScoreClamp"`
	WeightPickRate  float64 `json:"weightPickRate"`
	WeightPostRate  float64 `json:"weightPostRate"`
	UCBConstant     float64 `json:"ucbConstant"`
	ScoreDecayRate  float64 `json:"scoreDecayRate"`
}

func DefaultConfig() Config {
	return Config{
		ExplorationRate: 0.1,
		ZScoreClamp:     2,
		WeightPickRate:  0.5,
		WeightPostRate:  0.5,
		UCBConstant:     1,
		ScoreDecayRate:  0.01,
	}
}

// Clamp forces every field back into its valid range. Reads always go
// through Clamp, a partially written hash must not produce NaNs or
// runaway exploration.
func (c Config) Clamp() Config {
	clampFloat := func(v, min, max float64) float64 {
		if v < min {
			return min
		}
		if v > max {
			return max
		}
		return v
	}
	c.ExplorationRate = clampFloat(c.ExplorationRate, 0, 1)
	c.ZScoreClamp = clampFloat(c.ZScoreClamp, 0.1, 100)
	c.WeightPickRate = clampFloat(c.WeightPickRate, 0, 100)
	c.WeightPostRate = clampFloat(c.WeightPostRate, 0, 100)
	c.UCBConstant = clampFloat(c.UCBConstant, 0.1, 100)
	c.ScoreDecayRate = clampFloat(c.ScoreDecayRate, 0, 1)
	return c
}

func getConfigKey() string {
	return "slate:config"
}

func (m *manager) GetConfig(ctx context.Context) (Config, error) {
	fields, err := m.store.HGetAll(ctx, getConfigKey())
	if err != nil {
		return Config{}, errors.Tag(err, "cannot read slate config")
	}
	c := DefaultConfig()
	read := func(field string, target *float64) {
		raw, exists := fields[field]
		if !exists {
			return
		}
		v, parseErr := strconv.ParseFloat(raw, 64)
		if parseErr != nil {
			return
		}
		*target = v
	}
	read("explorationRate", &c.ExplorationRate)
	read("zScoreClamp", &c.ZScoreClamp)
	read("weightPickRate", &c.WeightPickRate)
	read("weightPostRate", &c.WeightPostRate)
	read("ucbConstant", &c.UCBConstant)
	read("scoreDecayRate", &c.ScoreDecayRate)
	return c.Clamp(), nil
}

func (m *manager) SetConfig(ctx context.Context, c Config) error {
	c = c.Clamp()
	format := func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	err := m.store.HSetMap(ctx, getConfigKey(), map[string]string{
		"explorationRate": format(c.ExplorationRate),
		"zScoreClamp":     format(c.ZScoreClamp),
		"weightPickRate":  format(c.WeightPickRate),
		"weightPostRate":  format(c.WeightPostRate),
		"ucbConstant":     format(c.UCBConstant),
		"scoreDecayRate":  format(c.ScoreDecayRate),
	})
	if err != nil {
		return errors.Tag(err, "cannot write slate config")
	}
	return nil
}
