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

const (
	MEMSIZE    = 1 << 15
	REGCOUNT   = 8
	VALUE_MASK = uint16(MEMSIZE - 1)
)

// Stored by IN for characters outside the 15-bit range
const INPUT_REPLACEMENT = '?'

// Operand words in [REG_BASE, REG_LIMIT) name registers 0..7
const (
	REG_BASE  uint16 = 32768
	REG_LIMIT uint16 = REG_BASE + REGCOUNT
)

const (
	OP_HALT uint16 = iota
	OP_SET
	OP_PUSH
	OP_POP
	OP_EQ
	OP_GT
	OP_JMP
	OP_JT
	OP_JF
	OP_ADD
	OP_MULT
	OP_MOD
	OP_AND
	OP_OR
	OP_NOT
	OP_RMEM
	OP_WMEM
	OP_CALL
	OP_RET
	OP_OUT
	OP_IN
	OP_NOP

	OP_COUNT
)

type OpInfo struct {
	Name  string
	Arity uint16

	// First operand names a destination register rather than a value
	Dest bool
}

var Ops = [OP_COUNT]OpInfo{
	OP_HALT: {"halt", 0, false},
	OP_SET:  {"set", 2, true},
	OP_PUSH: {"push", 1, false},
	OP_POP:  {"pop", 1, true},
	OP_EQ:   {"eq", 3, true},
	OP_GT:   {"gt", 3, true},
	OP_JMP:  {"jmp", 1, false},
	OP_JT:   {"jt", 2, false},
	OP_JF:   {"jf", 2, false},
	OP_ADD:  {"add", 3, true},
	OP_MULT: {"mult", 3, true},
	OP_MOD:  {"mod", 3, true},
	OP_AND:  {"and", 3, true},
	OP_OR:   {"or", 3, true},
	OP_NOT:  {"not", 2, true},
	OP_RMEM: {"rmem", 2, true},
	OP_WMEM: {"wmem", 2, false},
	OP_CALL: {"call", 1, false},
	OP_RET:  {"ret", 0, false},
	OP_OUT:  {"out", 1, false},
	OP_IN:   {"in", 1, true},
	OP_NOP:  {"noop", 0, false},
}

// Returns the opcode table entry, ok is false for unknown codes
func Op(code uint16) (info OpInfo, ok bool) {
	if code >= OP_COUNT {
		return OpInfo{}, false
	}

	return Ops[code], true
}
