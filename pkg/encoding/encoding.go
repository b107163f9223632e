// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package encoding

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/lassandro/gosynacor/pkg/machine"
)

// Decodes a hexidecimal string in the formats: 0xFFFF, xFFFF, 0xFF, xFF
func DecodeHex(s string) (uint16, error) {
	if i := strings.IndexAny(s, "xX"); i == 0 {
		s = "0" + s
	} else if i == -1 || i != 1 {
		return 0, errors.New("Invalid hex string")
	}

	result, err := strconv.ParseUint(s, 0, 16)

	if err != nil {
		return 0, err
	}

	return uint16(result), nil
}

// Decodes a base-10 string in the formats: #123, 123
func DecodeInt(s string) (int16, error) {
	if i := strings.Index(s, "#"); i == 0 {
		s = s[1:]
	}

	result, err := strconv.ParseInt(s, 10, 16)

	if err != nil {
		return 0, err
	}

	return int16(result), nil
}

// Decodes a raw word from hex, unsigned decimal or a register name (r0-r7).
// Register names yield the operand word that refers to them.
func DecodeWord(s string) (uint16, error) {
	if len(s) == 2 && (s[0] == 'r' || s[0] == 'R') {
		if reg := s[1] - '0'; reg < machine.REGCOUNT {
			return machine.REG_BASE + uint16(reg), nil
		}

		return 0, errors.Errorf("Invalid register '%s'", s)
	}

	if strings.ContainsAny(s, "xX") {
		return DecodeHex(s)
	}

	result, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 10, 16)

	if err != nil {
		return 0, errors.Wrapf(err, "Invalid word '%s'", s)
	}

	return uint16(result), nil
}

// Formats a raw operand word the way the disassembler prints it
func FormatOperand(raw uint16) string {
	switch {
	case raw < machine.REG_BASE:
		return fmt.Sprintf("%#04x", raw)
	case raw < machine.REG_LIMIT:
		return fmt.Sprintf("r%d", raw-machine.REG_BASE)
	default:
		return fmt.Sprintf("<bad:%#04x>", raw)
	}
}
