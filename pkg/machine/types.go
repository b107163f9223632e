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
	"time"
)

type Status uint8

const (
	STATUS_RUNNING Status = iota
	STATUS_AWAITING_INPUT
	STATUS_HALTED
	STATUS_RETURNED
	STATUS_FAULTED
)

func (s Status) String() string {
	switch s {
	case STATUS_RUNNING:
		return "running"
	case STATUS_AWAITING_INPUT:
		return "awaiting input"
	case STATUS_HALTED:
		return "halted"
	case STATUS_RETURNED:
		return "returned"
	case STATUS_FAULTED:
		return "faulted"
	default:
		return "unknown"
	}
}

// Reports whether execution can never continue from this status
func (s Status) Terminal() bool {
	return s == STATUS_HALTED || s == STATUS_RETURNED || s == STATUS_FAULTED
}

// InputSource is satisfied by *bytes.Buffer
type InputSource interface {
	Len() int
	ReadRune() (r rune, size int, err error)
	WriteString(s string) (n int, err error)
}

// OutputSink is satisfied by *bufio.Writer and *bytes.Buffer. Sinks that also
// implement Flush() error are flushed after every character.
type OutputSink interface {
	WriteRune(r rune) (n int, err error)
}

type DeviceHandler struct {
	Keyboard InputSource
	Display  OutputSink

	// Pause before each OUT unless the state's SkipDelay flag is set
	Delay time.Duration

	// Polled before each OUT, returning true sets SkipDelay
	Poll func() bool
}

type MachineState struct {
	Registers [REGCOUNT]uint16
	Program   uint16
	Stack     []uint16
	Memory    [MEMSIZE]uint16
	Status    Status
	SkipDelay bool
}

type MachineDebugger interface {
	Step(mc *Machine)
	Read(addr uint16, mc *Machine)
	Write(addr uint16, mc *Machine)
}

type Machine struct {
	Devices  *DeviceHandler
	State    MachineState
	Debugger MachineDebugger

	// Set once Status is STATUS_FAULTED
	Fault error

	// Counts LoadBin calls
	loads uint
}
