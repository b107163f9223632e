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
	"encoding/binary"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type flusher interface {
	Flush() error
}

var sleep = time.Sleep

func (mc *MachineState) Reset() {
	for i, _ := range mc.Registers {
		mc.Registers[i] = 0x0000
	}

	for i, _ := range mc.Memory {
		mc.Memory[i] = 0x0000
	}

	mc.Program = 0x0000
	mc.Stack = mc.Stack[:0]
	mc.Status = STATUS_RUNNING
	mc.SkipDelay = false
}

// Loads a raw little-endian image at address 0, the rest of memory is zeroed
func (mc *Machine) LoadBin(reader io.Reader) error {
	mc.State.Reset()
	mc.Fault = nil
	mc.loads++

	scratch := make([]byte, 2)
	index := 0

	for {
		_, err := io.ReadFull(reader, scratch)

		if err == io.EOF {
			return nil
		} else if err == io.ErrUnexpectedEOF {
			return errors.Wrapf(ErrImageMisaligned, "word %d", index)
		} else if err != nil {
			return errors.Wrap(err, "LoadBin")
		} else if index >= MEMSIZE {
			return errors.Wrapf(ErrImageTooLarge, "%d words", MEMSIZE)
		}

		mc.State.Memory[index] = binary.LittleEndian.Uint16(scratch)
		index++
	}
}

// Resolves a raw operand word to a literal or the contents of a register
func (mc *Machine) Value(raw uint16) (uint16, error) {
	switch {
	case raw < REG_BASE:
		return raw, nil
	case raw < REG_LIMIT:
		return mc.State.Registers[raw-REG_BASE], nil
	default:
		return 0, errors.WithMessagef(ErrInvalidOperand, "%#04x", raw)
	}
}

// Resolves a raw operand word to a destination register index
func (mc *Machine) Register(raw uint16) (uint16, error) {
	if raw >= REG_LIMIT || raw&VALUE_MASK >= REGCOUNT {
		return 0, errors.WithMessagef(ErrInvalidOperand, "%#04x", raw)
	}

	return raw & VALUE_MASK, nil
}

// Sets SkipDelay, ignored unless the machine is running
func (mc *Machine) FastForward() {
	if mc.State.Status == STATUS_RUNNING {
		mc.State.SkipDelay = true
	}
}

func (mc *Machine) fetch(offset uint16) uint16 {
	return mc.State.Memory[(mc.State.Program+offset)&VALUE_MASK]
}

func (mc *Machine) read(addr uint16) uint16 {
	if mc.Debugger != nil {
		mc.Debugger.Read(addr, mc)
	}

	return mc.State.Memory[addr&VALUE_MASK]
}

func (mc *Machine) write(addr uint16, value uint16) {
	mc.State.Memory[addr&VALUE_MASK] = value

	if mc.Debugger != nil {
		mc.Debugger.Write(addr, mc)
	}
}

func (mc *Machine) setRegister(reg uint16, value uint16) {
	mc.State.Registers[reg] = value & VALUE_MASK
}

func (mc *Machine) push(value uint16) {
	mc.State.Stack = append(mc.State.Stack, value)
}

func (mc *Machine) pop() (uint16, bool) {
	n := len(mc.State.Stack)

	if n == 0 {
		return 0, false
	}

	value := mc.State.Stack[n-1]
	mc.State.Stack = mc.State.Stack[:n-1]
	return value, true
}

func (mc *Machine) output(value uint16) error {
	dev := mc.Devices

	if dev == nil {
		return nil
	}

	if dev.Poll != nil && dev.Poll() {
		mc.FastForward()
	}

	if dev.Delay > 0 && !mc.State.SkipDelay {
		sleep(dev.Delay)
	}

	if dev.Display == nil {
		return nil
	}

	if _, err := dev.Display.WriteRune(rune(value)); err != nil {
		return errors.Wrap(err, "display")
	}

	if f, ok := dev.Display.(flusher); ok {
		if err := f.Flush(); err != nil {
			return errors.Wrap(err, "display")
		}
	}

	return nil
}

// Reads one character, ok is false when the keyboard has nothing buffered
func (mc *Machine) input() (value uint16, ok bool, err error) {
	if mc.Devices == nil || mc.Devices.Keyboard == nil {
		return 0, false, nil
	}

	if mc.Devices.Keyboard.Len() == 0 {
		return 0, false, nil
	}

	r, _, err := mc.Devices.Keyboard.ReadRune()

	if err == io.EOF {
		return 0, false, nil
	} else if err != nil {
		return 0, false, errors.Wrap(err, "keyboard")
	}

	// Registers hold 15 bits, wider characters cannot be represented
	if r > rune(VALUE_MASK) {
		r = INPUT_REPLACEMENT
	}

	return uint16(r), true, nil
}

// Executes a single instruction. Does nothing unless the machine is running.
func (mc *Machine) Step() error {
	if mc.State.Status != STATUS_RUNNING {
		return nil
	}

	addr := mc.State.Program
	opcode := mc.fetch(0)

	if err := mc.execute(opcode); err != nil {
		mc.State.Status = STATUS_FAULTED
		mc.Fault = &Fault{Addr: addr, Code: opcode, Err: err}
		return mc.Fault
	}

	if mc.Debugger != nil && mc.State.Status == STATUS_RUNNING {
		mc.Debugger.Step(mc)
	}

	return nil
}

func (mc *Machine) execute(opcode uint16) error {
	info, ok := Op(opcode)

	if !ok {
		return ErrUnknownOpcode
	}

	var args [3]uint16

	for i := uint16(0); i < info.Arity; i++ {
		var err error

		raw := mc.fetch(i + 1)

		if i == 0 && info.Dest {
			args[i], err = mc.Register(raw)
		} else {
			args[i], err = mc.Value(raw)
		}

		if err != nil {
			return err
		}
	}

	a, b, c := args[0], args[1], args[2]
	addr, loads := mc.State.Program, mc.loads
	next := addr + info.Arity + 1

	switch opcode {
	// HALT |                     | stop execution
	case OP_HALT:
		mc.State.Status = STATUS_HALTED
		return nil

	// SET  |a b                  | register[a] = b
	case OP_SET:
		mc.setRegister(a, b)

	// PUSH |a                    | stack.push(a)
	case OP_PUSH:
		mc.push(a)

	// POP  |a                    | register[a] = stack.pop()
	case OP_POP:
		value, ok := mc.pop()

		if !ok {
			return ErrEmptyStack
		}

		mc.setRegister(a, value)

	// EQ   |a b c                | register[a] = b == c
	case OP_EQ:
		if b == c {
			mc.setRegister(a, 1)
		} else {
			mc.setRegister(a, 0)
		}

	// GT   |a b c                | register[a] = b > c
	case OP_GT:
		if b > c {
			mc.setRegister(a, 1)
		} else {
			mc.setRegister(a, 0)
		}

	// JMP  |a                    | jump to a
	case OP_JMP:
		next = a

	// JT   |a b                  | jump to b if a is nonzero
	case OP_JT:
		if a != 0 {
			next = b
		}

	// JF   |a b                  | jump to b if a is zero
	case OP_JF:
		if a == 0 {
			next = b
		}

	// ADD  |a b c                | register[a] = (b + c) % 32768
	case OP_ADD:
		mc.setRegister(a, b+c)

	// MULT |a b c                | register[a] = (b * c) % 32768
	case OP_MULT:
		// 1<<16 is a multiple of 1<<15, so uint16 overflow is harmless
		mc.setRegister(a, b*c)

	// MOD  |a b c                | register[a] = b % c
	case OP_MOD:
		if c == 0 {
			return ErrDivisionByZero
		}

		mc.setRegister(a, b%c)

	// AND  |a b c                | register[a] = b & c
	case OP_AND:
		mc.setRegister(a, b&c)

	// OR   |a b c                | register[a] = b | c
	case OP_OR:
		mc.setRegister(a, b|c)

	// NOT  |a b                  | register[a] = 15-bit complement of b
	case OP_NOT:
		mc.setRegister(a, ^b)

	// RMEM |a b                  | register[a] = memory[b]
	case OP_RMEM:
		value := mc.read(b)

		if mc.preempted(addr, loads) {
			return nil
		}

		mc.setRegister(a, value)

	// WMEM |a b                  | memory[a] = b
	case OP_WMEM:
		mc.write(a, b)

	// CALL |a                    | push next instruction, jump to a
	case OP_CALL:
		mc.push(next)
		next = a

	// RET  |                     | pop and jump, stop on empty stack
	case OP_RET:
		value, ok := mc.pop()

		if !ok {
			mc.State.Status = STATUS_RETURNED
			return nil
		}

		next = value

	// OUT  |a                    | write character a to the display
	case OP_OUT:
		if err := mc.output(a); err != nil {
			return err
		}

	// IN   |a                    | read a character into register[a]
	case OP_IN:
		value, ok, err := mc.input()

		if err != nil {
			return err
		}

		if !ok {
			// IP stays on this instruction so it is retried on resume
			mc.State.Status = STATUS_AWAITING_INPUT
			mc.State.SkipDelay = false
			return nil
		}

		mc.setRegister(a, value)

	// NOOP |                     | no operation
	case OP_NOP:
	}

	if mc.preempted(addr, loads) {
		return nil
	}

	mc.State.Program = next & VALUE_MASK
	return nil
}

// Reports whether a debugger hook reloaded, moved or stopped the machine
// while the instruction at addr was executing
func (mc *Machine) preempted(addr uint16, loads uint) bool {
	return mc.loads != loads ||
		mc.State.Program != addr ||
		mc.State.Status != STATUS_RUNNING
}

// Steps until the machine halts, faults or waits for input
func (mc *Machine) Run() (Status, error) {
	for mc.State.Status == STATUS_RUNNING {
		if err := mc.Step(); err != nil {
			return mc.State.Status, err
		}
	}

	if mc.State.Status == STATUS_FAULTED {
		return mc.State.Status, mc.Fault
	}

	return mc.State.Status, nil
}

// Re-enters a machine waiting on IN. The pending instruction is retried.
func (mc *Machine) Resume() (Status, error) {
	if mc.State.Status != STATUS_AWAITING_INPUT {
		return mc.State.Status, ErrNotSuspended
	}

	mc.State.Status = STATUS_RUNNING
	return mc.Run()
}

// Appends a line of input, adding the newline if missing, and resumes
func (mc *Machine) Feed(text string) (Status, error) {
	if mc.Devices == nil || mc.Devices.Keyboard == nil {
		return mc.State.Status, ErrNoKeyboard
	}

	if mc.State.Status != STATUS_AWAITING_INPUT {
		return mc.State.Status, ErrNotSuspended
	}

	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	if _, err := mc.Devices.Keyboard.WriteString(text); err != nil {
		return mc.State.Status, errors.Wrap(err, "keyboard")
	}

	return mc.Resume()
}
