// Package callback is the host-side recorder for Callback keys (spec.md
// §4.3): the keymap engine itself only emits a (tag, payload) pair and
// takes it no further ("the outer keymap records it... without affecting
// HID output"); Host is that outer recorder, running one Lua handler per
// declared tag.
//
// Grounded on pkg/scripting.ScriptManager's directory-scan-and-load Boot
// sequence and pkg/scripting.ScriptRunner's one-*lua.LState-per-script
// lifecycle, retargeted from "Stream Deck button scripts" (one script per
// physical key, driven by a display-refresh loop) to "keymap callback-tag
// scripts" (one script per declared tag, driven by CallbackEvents the
// engine already queued). Uses github.com/yuin/gopher-lua, kept from the
// teacher.
package callback

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/merith-tk/smart-keymap/internal/engine"
	"github.com/merith-tk/smart-keymap/internal/logging"
)

// Host dispatches drained engine.CallbackEvents to the Lua handler
// registered for each event's tag.
type Host struct {
	dir     string
	runners map[uint16]*Runner
	log     *logging.Logger
}

// NewHost scans dir for handler scripts. Each script is named
// "<tag>.lua", where <tag> is the decimal CallbackDef.Tag it handles; any
// other filename is skipped (so a config directory can carry a README or
// other unrelated files alongside the handlers).
func NewHost(dir string) (*Host, error) {
	h := &Host{
		dir:     dir,
		runners: make(map[uint16]*Runner),
		log:     logging.New("callback"),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return h, nil
		}
		return nil, fmt.Errorf("callback: failed to scan %s: %w", dir, err)
	}

	var names []string
	for _, ent := range entries {
		if !ent.IsDir() && filepath.Ext(ent.Name()) == ".lua" {
			names = append(names, ent.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		tagStr := strings.TrimSuffix(name, ".lua")
		tag, err := strconv.ParseUint(tagStr, 10, 16)
		if err != nil {
			h.log.Warnf("skipping %s: filename is not a numeric tag", name)
			continue
		}

		runner, err := NewRunner(uint16(tag), filepath.Join(dir, name))
		if err != nil {
			h.log.Errorf("failed to load %s: %v", name, err)
			continue
		}
		h.runners[uint16(tag)] = runner
	}

	return h, nil
}

// Dispatch runs every queued callback event's handler, in the order they
// were emitted. An event with no registered handler is silently dropped —
// a Callback key's tag is free-form user configuration, and an
// unhandled tag is not a protocol error (spec.md §4.3).
func (h *Host) Dispatch(events []engine.CallbackEvent) {
	for _, ev := range events {
		runner, ok := h.runners[ev.Tag]
		if !ok {
			continue
		}
		if err := runner.Handle(ev.Payload); err != nil {
			h.log.Errorf("tag %d: %v", ev.Tag, err)
		}
	}
}

// Close releases every handler's Lua state.
func (h *Host) Close() {
	for _, runner := range h.runners {
		runner.Close()
	}
}
