// Command keymap-demo drives a loaded keymap from stdin-described
// press/release lines and prints each tick's resolved report — a
// headless analogue of apps/nomad-interface-streamdeck/main.go's "open
// device, do a thing, print the result" demo shape, with no HID device
// required.
//
// Input lines look like:
//
//	p 3      press keymap index 3
//	r 3      release keymap index 3
//	tick     advance the engine by one tick with no new input
//	tick 10  advance the engine by 10 ticks
//
// Blank lines and lines starting with # are ignored.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/merith-tk/smart-keymap/internal/config"
	"github.com/merith-tk/smart-keymap/internal/engine"
	"github.com/merith-tk/smart-keymap/internal/keyref"
	"github.com/merith-tk/smart-keymap/pkg/callback"
)

func main() {
	configDir := flag.String("config", "./keymap-config", "directory holding keymap.yml and callbacks/<tag>.lua handlers")
	msPerTick := flag.Uint("ms-per-tick", 1, "milliseconds the engine advances per tick")
	flag.Parse()

	km, err := config.LoadKeymap(*configDir)
	if err != nil {
		log.Fatalf("keymap-demo: loading keymap: %v", err)
	}
	refs, sys, ctx := config.Compile(km)
	eng := engine.New(refs, sys, ctx)
	eng.SetMSPerTick(uint32(*msPerTick))

	host, err := callback.NewHost(*configDir + "/callbacks")
	if err != nil {
		log.Fatalf("keymap-demo: loading callback handlers: %v", err)
	}
	defer host.Close()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "p", "press":
			idx, err := parseIndex(fields)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			eng.HandleInput(keyref.Press(idx))
		case "r", "release":
			idx, err := parseIndex(fields)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			eng.HandleInput(keyref.ReleaseEv(idx))
		case "tick":
			n := 1
			if len(fields) > 1 {
				n, err = strconv.Atoi(fields[1])
				if err != nil {
					fmt.Fprintf(os.Stderr, "keymap-demo: bad tick count %q\n", fields[1])
					continue
				}
			}
			for i := 0; i < n; i++ {
				eng.Tick()
				host.Dispatch(eng.DrainCallbacks())
				report := eng.ReportOutput().AsHIDBootKeyboardReport()
				fmt.Printf("% 02x\n", report)
			}
			continue
		default:
			fmt.Fprintf(os.Stderr, "keymap-demo: unrecognized line %q\n", line)
			continue
		}

		eng.Tick()
		host.Dispatch(eng.DrainCallbacks())
		report := eng.ReportOutput().AsHIDBootKeyboardReport()
		fmt.Printf("% 02x\n", report)
	}

	if err := scanner.Err(); err != nil {
		log.Fatalf("keymap-demo: reading stdin: %v", err)
	}
}

func parseIndex(fields []string) (keyref.KeymapIndex, error) {
	if len(fields) < 2 {
		return 0, fmt.Errorf("keymap-demo: missing keymap index in %q", strings.Join(fields, " "))
	}
	n, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return 0, fmt.Errorf("keymap-demo: bad keymap index %q", fields[1])
	}
	return keyref.KeymapIndex(n), nil
}
