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

package machine

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidOperand  = errors.New("invalid operand")
	ErrUnknownOpcode   = errors.New("unknown opcode")
	ErrEmptyStack      = errors.New("pop from empty stack")
	ErrDivisionByZero  = errors.New("division by zero")
	ErrNotSuspended    = errors.New("machine is not awaiting input")
	ErrNoKeyboard      = errors.New("no keyboard attached")
	ErrImageTooLarge   = errors.New("image exceeds memory")
	ErrImageMisaligned = errors.New("image has an odd trailing byte")
)

// Fault stops the machine. Addr and Code locate the instruction that raised
// it; Err is one of the sentinel errors above, possibly with a message.
type Fault struct {
	Addr uint16
	Code uint16
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s at [%#04x] (opcode %#04x)", f.Err, f.Addr, f.Code)
}

func (f *Fault) Cause() error {
	return f.Err
}

func (f *Fault) Unwrap() error {
	return f.Err
}
