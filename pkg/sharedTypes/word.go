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
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/doodleduel/doodleduel-go/pkg/errors"
)

const MaxWordLength = 50

// Word is a normalized drawing prompt: trimmed and title-cased.
// Normalization must stay byte-for-byte deterministic, deterministic
// slate ids depend on it.
type Word string

func (w Word) String() string {
	return string(w)
}

// NormalizeWord produces the unique canonical form of a raw prompt.
func NormalizeWord(raw string) (Word, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &errors.ValidationError{Msg: "word is empty"}
	}
	if len(trimmed) > MaxWordLength {
		return "", &errors.ValidationError{Msg: "word is too long"}
	}
	return Word(cases.Title(language.English).String(trimmed)), nil
}
