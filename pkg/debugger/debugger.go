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

package debugger

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lassandro/gosynacor/pkg/encoding"
	"github.com/lassandro/gosynacor/pkg/machine"
)

func (dbg *Debugger) out() io.Writer {
	if dbg.Out == nil {
		return os.Stdout
	}

	return dbg.Out
}

func (dbg *Debugger) Step(mc *machine.Machine) {
	if dbg.Break {
		dbg.HandleBreak(dbg, mc)
		return
	}

	for _, breakpoint := range dbg.Breakpoints {
		if mc.State.Program == breakpoint.Addr {
			dbg.HandleBreak(dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Read(addr uint16, mc *machine.Machine) {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == WriteWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleRead(addr, dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Write(addr uint16, mc *machine.Machine) {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == ReadWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleWrite(addr, dbg, mc)
			break
		}
	}
}

// Adds a breakpoint, reporting false if one already exists at addr
func (dbg *Debugger) AddBreakpoint(addr uint16) bool {
	addr &= machine.VALUE_MASK

	for _, breakpoint := range dbg.Breakpoints {
		if breakpoint.Addr == addr {
			return false
		}
	}

	dbg.Breakpoints = append(dbg.Breakpoints, Breakpoint{Addr: addr})
	return true
}

// Adds a watchpoint, reporting false if an identical one exists
func (dbg *Debugger) AddWatchpoint(addr uint16, wtype WatchpointType) bool {
	addr &= machine.VALUE_MASK

	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Addr == addr && watchpoint.Type == wtype {
			return false
		}
	}

	dbg.Watchpoints = append(dbg.Watchpoints, Watchpoint{Addr: addr, Type: wtype})
	return true
}

// Disassembles count instructions starting at addr and returns the address
// following the last one
func (dbg *Debugger) PrintInstructions(
	mc *machine.MachineState, addr, count uint16,
) uint16 {
	w := dbg.out()

	for i := uint16(0); i < count; i++ {
		addr &= machine.VALUE_MASK

		if addr == mc.Program {
			fmt.Fprintf(w, "\033[1m[%#04x]\033[0m > ", addr)
		} else {
			fmt.Fprintf(w, "\033[1m[%#04x]\033[0m   ", addr)
		}

		code := mc.Memory[addr]
		info, ok := machine.Op(code)

		if !ok {
			fmt.Fprintf(w, "\033[1;30m.word %#04x\033[0m\n", code)
			addr++
			continue
		}

		operands := make([]string, 0, info.Arity+1)
		operands = append(operands, info.Name)

		for j := uint16(1); j <= info.Arity; j++ {
			raw := mc.Memory[(addr+j)&machine.VALUE_MASK]
			operands = append(operands, encoding.FormatOperand(raw))
		}

		line := strings.Join(operands, " ")

		if code == machine.OP_OUT {
			if raw := mc.Memory[(addr+1)&machine.VALUE_MASK]; raw < 0x80 {
				line += " \033[1;30m; " + strconv.QuoteRune(rune(raw)) + "\033[0m"
			}
		}

		fmt.Fprintln(w, line)
		addr += info.Arity + 1
	}

	return addr & machine.VALUE_MASK
}

func (dbg *Debugger) PrintMem(mc *machine.MachineState, addr, count uint16) {
	w := dbg.out()

	for i := addr; i < addr+count && i < machine.MEMSIZE; i++ {
		if i == addr {
			fmt.Fprintf(w, "\033[1m[%#04x]\033[0m ", i)
		} else if (i-addr)%4 == 0 {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "\033[1m[%#04x]\033[0m ", i)
		}

		result := mc.Memory[i]

		if result == 0 {
			fmt.Fprintf(w, "\033[1;30m%#04x\033[0m ", result)
		} else {
			fmt.Fprintf(w, "%#04x ", result)
		}
	}

	fmt.Fprintln(w)
}

// Prints the call stack, top first
func (dbg *Debugger) PrintStack(mc *machine.MachineState) {
	w := dbg.out()

	if len(mc.Stack) == 0 {
		fmt.Fprintln(w, "Stack empty")
		return
	}

	for i := len(mc.Stack) - 1; i >= 0; i-- {
		fmt.Fprintf(w, "\033[1m#%d:\033[0m %#04x\n", len(mc.Stack)-1-i, mc.Stack[i])
	}
}
