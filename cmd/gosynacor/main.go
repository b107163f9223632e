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

package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/peterh/liner"
	"github.com/pkg/errors"

	"github.com/lassandro/gosynacor/pkg/debugger"
	"github.com/lassandro/gosynacor/pkg/machine"
)

var helpvar bool
var debugvar bool
var delayvar time.Duration
var replayvar string
var shouldexit bool

var lineState *liner.State

const usage = "gosynacor [-debug] [-delay duration] [-replay file] filename"

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&debugvar, "debug", false, "Runs the machine in a debug CLI")
	flag.DurationVar(
		&delayvar, "delay", 0,
		"Pause between output characters. Any keypress while the program "+
			"is printing skips the pause until it next asks for input",
	)
	flag.StringVar(
		&replayvar, "replay", "",
		"Feeds the lines of a file as input before reading the terminal",
	)
	flag.Parse()
}

// Reads one line of program input with the terminal in line mode
func promptInput() (string, error) {
	exitRawTerm()
	defer enterRawTerm()

	line, err := lineState.Prompt("")

	if err != nil {
		return "", err
	}

	if line != "" {
		lineState.AppendHistory(line)
	}

	return line, nil
}

func gosynacor() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	if len(args) != 1 {
		log.Println(usage)
		return 1
	}

	file, err := os.Open(args[0])

	if err != nil {
		log.Println(err)
		return 1
	}

	defer file.Close()

	var mc machine.Machine
	var keyboard bytes.Buffer

	display := bufio.NewWriter(os.Stdout)
	defer display.Flush()

	mc.Devices = &machine.DeviceHandler{
		Keyboard: &keyboard,
		Display:  display,
		Delay:    delayvar,
	}

	if replayvar != "" {
		data, err := os.ReadFile(replayvar)

		if err != nil {
			log.Println(errors.Wrap(err, "replay"))
			return 1
		}

		keyboard.Write(data)
	}

	lineState = liner.NewLiner()
	defer lineState.Close()
	lineState.SetCtrlCAborts(true)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	defer close(c)
	defer signal.Stop(c)

	if debugvar {
		var dbg debugger.Debugger
		dbg.HandleBreak = handleBreak
		dbg.HandleRead = handleRead
		dbg.HandleWrite = handleWrite
		dbg.Binary = file
		mc.Debugger = &dbg

		go func() {
			for _ = range c {
				fmt.Println()
				dbg.Break = true
			}
		}()
	} else {
		go func() {
			if _, ok := <-c; ok {
				exitRawTerm()
				os.Exit(130)
			}
		}()
	}

	if err := mc.LoadBin(file); err != nil {
		log.Println(err)
		return 1
	}

	if err := enterRawTerm(); err == nil {
		defer exitRawTerm()

		if delayvar > 0 {
			mc.Devices.Poll = pollKeyboard
		}
	}

	if debugvar {
		debugREPL(mc.Debugger.(*debugger.Debugger), &mc)
	}

	status, err := mc.Run()

	for !shouldexit && status == machine.STATUS_AWAITING_INPUT {
		display.Flush()

		line, perr := promptInput()

		if perr == io.EOF || perr == liner.ErrPromptAborted {
			return 0
		} else if perr != nil {
			log.Println(perr)
			return 1
		}

		status, err = mc.Feed(line)
	}

	display.Flush()

	if err != nil {
		fmt.Println()
		log.Println(err)
		return 1
	}

	if shouldexit {
		return 0
	}

	switch status {
	case machine.STATUS_HALTED:
		fmt.Println("\nProgram halted")
	case machine.STATUS_RETURNED:
		fmt.Println("\nProgram returned")
	}

	return 0
}

func main() {
	os.Exit(gosynacor())
}
