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

package debugger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lassandro/gosynacor/pkg/debugger"
	"github.com/lassandro/gosynacor/pkg/machine"
)

const r0 = machine.REG_BASE

func load(words ...uint16) *machine.Machine {
	var mc machine.Machine

	for i, word := range words {
		mc.State.Memory[i] = word
	}

	return &mc
}

func TestResetAtWatchpoint(t *testing.T) {
	image := []byte{
		byte(machine.OP_NOP), 0x00,
		byte(machine.OP_RMEM), 0x00, 0x00, 0x80, 0x00, 0x00,
		byte(machine.OP_HALT), 0x00,
	}

	var mc machine.Machine

	if err := mc.LoadBin(bytes.NewReader(image)); err != nil {
		t.Fatal(err)
	}

	dbg := debugger.Debugger{
		Watchpoints: []debugger.Watchpoint{
			{Addr: 0x0000, Type: debugger.ReadWatch},
		},
		HandleRead: func(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
			if err := mc.LoadBin(bytes.NewReader(image)); err != nil {
				t.Fatal(err)
			}
		},
	}

	mc.Debugger = &dbg

	for i := 0; i < 2; i++ {
		if err := mc.Step(); err != nil {
			t.Fatal(err)
		}
	}

	if mc.State.Program != 0x0000 || mc.State.Registers[0] != 0x0000 {
		t.Errorf(
			"State after reset\nwant:IP=0x0000 R0=0x0000\nhave:IP=%#04x R0=%#04x",
			mc.State.Program,
			mc.State.Registers[0],
		)
	}

	if mc.State.Status != machine.STATUS_RUNNING {
		t.Errorf("Status mismatch\nwant:%s\nhave:%s", machine.STATUS_RUNNING, mc.State.Status)
	}
}

func TestJumpAtWatchpoint(t *testing.T) {
	mc := load(
		machine.OP_WMEM, 0x0100, 0x0007,
		machine.OP_HALT,
	)

	dbg := debugger.Debugger{
		Watchpoints: []debugger.Watchpoint{
			{Addr: 0x0100, Type: debugger.WriteWatch},
		},
		HandleWrite: func(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
			mc.State.Program = 0x0040
		},
	}

	mc.Debugger = &dbg

	if err := mc.Step(); err != nil {
		t.Fatal(err)
	}

	if mc.State.Program != 0x0040 {
		t.Errorf("Program register mismatch\nwant:0x0040\nhave:%#04x", mc.State.Program)
	}

	if mc.State.Memory[0x0100] != 0x0007 {
		t.Errorf("Memory mismatch\nwant:0x0007\nhave:%#04x", mc.State.Memory[0x0100])
	}
}

func TestAddPoints(t *testing.T) {
	var dbg debugger.Debugger

	if !dbg.AddWatchpoint(0x8001, debugger.ReadWatch) {
		t.Fatal("Watchpoint not added")
	}

	if dbg.AddWatchpoint(0x0001, debugger.ReadWatch) {
		t.Error("Duplicate watchpoint added")
	}

	if !dbg.AddWatchpoint(0x0001, debugger.WriteWatch) {
		t.Error("Watchpoint of another type not added")
	}

	if !dbg.AddBreakpoint(0xFFFF) || dbg.AddBreakpoint(0x7FFF) {
		t.Error("Breakpoint addresses not masked")
	}

	if have := dbg.Watchpoints[0].Addr; have != 0x0001 {
		t.Errorf("Watchpoint address mismatch\nwant:0x0001\nhave:%#04x", have)
	}

	if have := dbg.Breakpoints[0].Addr; have != 0x7FFF {
		t.Errorf("Breakpoint address mismatch\nwant:0x7fff\nhave:%#04x", have)
	}

	// A masked watchpoint fires on the address RMEM actually reads
	mc := load(machine.OP_RMEM, r0, 0x0001, machine.OP_HALT)
	reads := 0

	dbg.HandleRead = func(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
		reads++
	}
	dbg.HandleBreak = func(dbg *debugger.Debugger, mc *machine.Machine) {}
	mc.Debugger = &dbg

	if _, err := mc.Run(); err != nil {
		t.Fatal(err)
	}

	if reads != 1 {
		t.Errorf("Read count mismatch\nwant:1\nhave:%d", reads)
	}
}

func TestBreakpoint(t *testing.T) {
	mc := load(
		machine.OP_NOP,
		machine.OP_NOP,
		machine.OP_NOP,
		machine.OP_HALT,
	)

	var hits []uint16

	dbg := debugger.Debugger{
		Breakpoints: []debugger.Breakpoint{{Addr: 0x0002}},
		HandleBreak: func(dbg *debugger.Debugger, mc *machine.Machine) {
			hits = append(hits, mc.State.Program)
		},
	}

	mc.Debugger = &dbg

	if _, err := mc.Run(); err != nil {
		t.Fatal(err)
	}

	if len(hits) != 1 || hits[0] != 0x0002 {
		t.Errorf("Breakpoint hits mismatch\nwant:[0x0002]\nhave:%#04x", hits)
	}
}

func TestSingleStep(t *testing.T) {
	mc := load(
		machine.OP_NOP,
		machine.OP_NOP,
		machine.OP_HALT,
	)

	steps := 0

	dbg := debugger.Debugger{
		Break: true,
		HandleBreak: func(dbg *debugger.Debugger, mc *machine.Machine) {
			steps++
		},
	}

	mc.Debugger = &dbg
	mc.Run()

	// No break is reported once the machine halts
	if steps != 2 {
		t.Errorf("Step count mismatch\nwant:2\nhave:%d", steps)
	}
}

func TestWatchpoint(t *testing.T) {
	mc := load(
		machine.OP_RMEM, r0, 0x0100,
		machine.OP_WMEM, 0x0100, 0x0007,
		machine.OP_WMEM, 0x0101, 0x0007,
		machine.OP_HALT,
	)

	var reads, writes []uint16

	dbg := debugger.Debugger{
		Watchpoints: []debugger.Watchpoint{
			{Addr: 0x0100, Type: debugger.ReadWriteWatch},
			{Addr: 0x0101, Type: debugger.ReadWatch},
		},
		HandleRead: func(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
			reads = append(reads, addr)
		},
		HandleWrite: func(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
			writes = append(writes, addr)

			if have := mc.State.Memory[addr]; have != 0x0007 {
				t.Errorf("Write reported before store: %#04x", have)
			}
		},
	}

	mc.Debugger = &dbg

	if _, err := mc.Run(); err != nil {
		t.Fatal(err)
	}

	if len(reads) != 1 || reads[0] != 0x0100 {
		t.Errorf("Read watch mismatch\nwant:[0x0100]\nhave:%#04x", reads)
	}

	if len(writes) != 1 || writes[0] != 0x0100 {
		t.Errorf("Write watch mismatch\nwant:[0x0100]\nhave:%#04x", writes)
	}
}

func TestPrintInstructions(t *testing.T) {
	mc := load(
		machine.OP_SET, r0, 0x0041,
		machine.OP_OUT, r0,
		machine.OP_OUT, 'z',
		0x1234,
		machine.OP_HALT,
	)

	var out bytes.Buffer
	dbg := debugger.Debugger{Out: &out}

	next := dbg.PrintInstructions(&mc.State, 0x0000, 5)

	if next != 0x0009 {
		t.Errorf("Next address mismatch\nwant:0x0009\nhave:%#04x", next)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")

	if len(lines) != 5 {
		t.Fatalf("Line count mismatch\nwant:5\nhave:%d\n%s", len(lines), out.String())
	}

	wants := []string{
		"> set r0 0x0041",
		"out r0",
		"out 0x007a \033[1;30m; 'z'",
		".word 0x1234",
		"halt",
	}

	for i, want := range wants {
		if !strings.Contains(lines[i], want) {
			t.Errorf("Line %d mismatch\nwant:%q\nhave:%q", i, want, lines[i])
		}
	}
}

func TestPrintStack(t *testing.T) {
	var out bytes.Buffer
	var state machine.MachineState

	dbg := debugger.Debugger{Out: &out}
	dbg.PrintStack(&state)

	if !strings.Contains(out.String(), "Stack empty") {
		t.Errorf("Unexpected output %q", out.String())
	}

	out.Reset()
	state.Stack = []uint16{0x0010, 0x0020}
	dbg.PrintStack(&state)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")

	if len(lines) != 2 || !strings.Contains(lines[0], "0x0020") ||
		!strings.Contains(lines[1], "0x0010") {
		t.Errorf("Unexpected output %q", out.String())
	}
}

func TestPrintMem(t *testing.T) {
	var out bytes.Buffer
	var state machine.MachineState

	state.Memory[0x7FFE] = 0x00AB

	dbg := debugger.Debugger{Out: &out}
	dbg.PrintMem(&state, 0x7FFE, 8)

	if !strings.Contains(out.String(), "0x00ab") {
		t.Errorf("Unexpected output %q", out.String())
	}

	// Stops at the end of memory
	if strings.Count(out.String(), "0x") != 3 {
		t.Errorf("Unexpected output %q", out.String())
	}
}
