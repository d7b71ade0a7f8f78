// Command keymap-replay opens a real boot-keyboard-class HID device and
// replays its raw input reports into the keymap engine as Press/Release
// events, printing the resolved HID report each time it changes — for trying out a
// keymap config interactively away from real firmware.
//
// Grounded on pkg/streamdeck/enumerate.go's Enumerate/Open pair and
// pkg/streamdeck/keys.go's ReadKeys/ListenKeys polling loop, retargeted
// from Stream Deck button-grid input to a standard 8-byte boot keyboard
// report (modifier byte, reserved byte, six keycode slots). Uses
// github.com/sstallion/go-hid, kept from the teacher.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/sstallion/go-hid"

	"github.com/merith-tk/smart-keymap/internal/config"
	"github.com/merith-tk/smart-keymap/internal/engine"
	"github.com/merith-tk/smart-keymap/internal/keyref"
	"github.com/merith-tk/smart-keymap/pkg/callback"
)

func main() {
	var (
		vid       = flag.Uint("vid", 0, "USB vendor ID of the source HID keyboard (0 = first available)")
		pid       = flag.Uint("pid", 0, "USB product ID of the source HID keyboard")
		configDir = flag.String("config", "./keymap-config", "directory holding keymap.yml and callbacks/<tag>.lua handlers")
		msPerTick = flag.Uint("ms-per-tick", 1, "milliseconds the engine advances per poll")
	)
	flag.Parse()

	if err := hid.Init(); err != nil {
		log.Fatalf("keymap-replay: hid init: %v", err)
	}
	defer hid.Exit()

	dev, err := openSource(uint16(*vid), uint16(*pid))
	if err != nil {
		log.Fatalf("keymap-replay: %v", err)
	}
	defer dev.Close()

	km, err := config.LoadKeymap(*configDir)
	if err != nil {
		log.Fatalf("keymap-replay: loading keymap: %v", err)
	}
	refs, sys, ctx := config.Compile(km)
	eng := engine.New(refs, sys, ctx)
	eng.SetMSPerTick(uint32(*msPerTick))

	host, err := callback.NewHost(*configDir + "/callbacks")
	if err != nil {
		log.Fatalf("keymap-replay: loading callback handlers: %v", err)
	}
	defer host.Close()

	fmt.Println("keymap-replay: listening; press Ctrl+C to stop")

	var prev [8]byte
	buf := make([]byte, 8)
	var lastReport [8]byte
	for {
		n, err := dev.ReadWithTimeout(buf, 50*time.Millisecond)
		if err != nil {
			log.Printf("keymap-replay: read error: %v", err)
			continue
		}
		if n >= 8 {
			var report [8]byte
			copy(report[:], buf[:8])
			for _, ev := range diffBootReport(prev, report) {
				eng.HandleInput(ev)
			}
			prev = report
		}

		eng.Tick()
		host.Dispatch(eng.DrainCallbacks())

		out := eng.ReportOutput().AsHIDBootKeyboardReport()
		if out != lastReport {
			fmt.Printf("report: % 02x\n", out)
			lastReport = out
		}
	}
}

func openSource(vid, pid uint16) (*hid.Device, error) {
	if vid != 0 {
		return hid.OpenFirst(vid, pid)
	}
	var path string
	err := hid.Enumerate(0x0000, 0x0000, func(info *hid.DeviceInfo) error {
		if info.UsagePage == 0x01 && info.Usage == 0x06 && path == "" {
			path = info.Path
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerating HID devices: %w", err)
	}
	if path == "" {
		return nil, fmt.Errorf("no boot-keyboard-class HID device found")
	}
	return hid.OpenPath(path)
}

// diffBootReport compares two boot keyboard reports and returns the
// Press/Release events implied by their difference: a keycode present in
// next but not prev is a press, one present in prev but not next is a
// release. Keymap indices are the raw keycode values; a real firmware
// build would instead map matrix position to index, but a host-replayed
// boot report only carries keycodes.
func diffBootReport(prev, next [8]byte) []keyref.InputEvent {
	prevCodes := bootKeycodes(prev)
	nextCodes := bootKeycodes(next)

	var events []keyref.InputEvent
	for code := range prevCodes {
		if !nextCodes[code] {
			events = append(events, keyref.ReleaseEv(keyref.KeymapIndex(code)))
		}
	}
	for code := range nextCodes {
		if !prevCodes[code] {
			events = append(events, keyref.Press(keyref.KeymapIndex(code)))
		}
	}
	return events
}

func bootKeycodes(report [8]byte) map[uint8]bool {
	codes := make(map[uint8]bool, 6)
	for _, code := range report[2:8] {
		if code != 0 {
			codes[code] = true
		}
	}
	return codes
}
