// Package config loads a keymap and its module configuration from YAML,
// compiling the declarative key tree into the keyref.Ref array and
// system.System registry the engine runs against (spec.md §1's "external
// configuration-language front-end").
//
// Grounded on and reusing the shape of
// apps/nomad-interface-streamdeck/config.go's DefaultConfig/LoadConfig/
// SaveConfig (default-then-override, os.Stat bootstrap of a default file).
// Uses gopkg.in/yaml.v3, kept from the teacher.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/merith-tk/smart-keymap/internal/context"
	"github.com/merith-tk/smart-keymap/internal/keyref"
	"github.com/merith-tk/smart-keymap/internal/keyref/system"
)

// KeyDef is one node of the declarative key tree: a tagged union over
// every RefKind, expressed as a flat YAML-friendly struct rather than
// Go's tagged-union-by-struct-embedding, since yaml.v3 has no native
// support for decoding into a Go interface by a discriminator field.
type KeyDef struct {
	Kind string `yaml:"kind"`

	// Literal kinds.
	Code      uint8    `yaml:"code,omitempty"`
	Mods      []string `yaml:"mods,omitempty"`
	Usage     uint16   `yaml:"usage,omitempty"`
	Button    uint8    `yaml:"button,omitempty"`
	Direction string   `yaml:"direction,omitempty"`
	Layer     uint8    `yaml:"layer,omitempty"`
	Tag       uint16   `yaml:"tag,omitempty"`
	Payload   uint16   `yaml:"payload,omitempty"`

	// KeyboardKeyCodeAndModifier.
	ComboCode uint8    `yaml:"combo_code,omitempty"`
	ComboMods []string `yaml:"combo_mods,omitempty"`

	// Layered.
	Base     *KeyDef  `yaml:"base,omitempty"`
	Overlays []KeyDef `yaml:"overlays,omitempty"`

	// TapHold.
	Tap  *KeyDef `yaml:"tap,omitempty"`
	Hold *KeyDef `yaml:"hold,omitempty"`

	// Chorded.
	Default *KeyDef    `yaml:"default,omitempty"`
	Chords  []ChordDef `yaml:"chords,omitempty"`

	// TapDance.
	Defs []KeyDef `yaml:"defs,omitempty"`

	// LayerSetActive.
	Layers []uint8 `yaml:"layers,omitempty"`
}

// ChordDef is one chord in a chorded family's YAML declaration: the
// member keymap indices and the Ref it resolves to.
type ChordDef struct {
	Members  []keyref.KeymapIndex `yaml:"members"`
	Resolved KeyDef               `yaml:"resolved"`
}

// Keymap is the full declarative keymap: the physical-key array plus the
// module configuration every composite kind reads (spec.md §6).
type Keymap struct {
	Keys     []KeyDef          `yaml:"keys"`
	TapHold  context.TapHoldConfig  `yaml:"tap_hold"`
	TapDance context.TapDanceConfig `yaml:"tap_dance"`
	Chorded  context.ChordedConfig  `yaml:"chorded"`
	Sticky   context.StickyConfig   `yaml:"sticky"`
	CapsWord CapsWordYAML           `yaml:"caps_word"`
	Layered  context.LayeredConfig  `yaml:"layered"`
}

// CapsWordYAML mirrors context.CapsWordConfig but spells its terminator
// set as plain keycodes in YAML, since keyref.Ref has no YAML encoding of
// its own (it is a dispatch-internal tagged value, not configuration
// surface).
type CapsWordYAML struct {
	TerminatorCodes []uint8 `yaml:"terminator_codes"`
	IdleTimeoutMS   uint32  `yaml:"idle_timeout_ms"`
}

// DefaultKeymap returns an empty single-layer keymap with spec.md §6's
// documented module defaults.
func DefaultKeymap() *Keymap {
	return &Keymap{
		Keys:     nil,
		TapHold:  context.DefaultTapHoldConfig(),
		TapDance: context.DefaultTapDanceConfig(),
		Chorded:  context.DefaultChordedConfig(),
		Sticky:   context.StickyConfig{IdleTimeoutMS: 0},
		CapsWord: CapsWordYAML{IdleTimeoutMS: 5000},
		Layered:  context.LayeredConfig{LayerCount: 1},
	}
}

// LoadKeymap loads a keymap from <configDir>/keymap.yml, writing out the
// (empty) default file on first run.
func LoadKeymap(configDir string) (*Keymap, error) {
	path := filepath.Join(configDir, "keymap.yml")
	km := DefaultKeymap()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := SaveKeymap(km, path); err != nil {
			return km, fmt.Errorf("failed to create default keymap: %w", err)
		}
		return km, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return km, fmt.Errorf("failed to read keymap file: %w", err)
	}
	if err := yaml.Unmarshal(data, km); err != nil {
		return km, fmt.Errorf("failed to parse keymap file: %w", err)
	}
	return km, nil
}

// SaveKeymap writes km as YAML to path.
func SaveKeymap(km *Keymap, path string) error {
	data, err := yaml.Marshal(km)
	if err != nil {
		return fmt.Errorf("failed to marshal keymap: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write keymap file: %w", err)
	}
	return nil
}

// Compile builds the keyref.Ref array, system.System registry and
// context.Context a Keymap describes (spec.md §1, §3, §6).
func Compile(km *Keymap) ([]keyref.Ref, *system.System, *context.Context) {
	c := &compiler{sys: system.New()}
	refs := make([]keyref.Ref, len(km.Keys))
	for i, def := range km.Keys {
		refs[i] = c.compile(def)
	}

	cfg := context.Config{
		TapHold:  km.TapHold,
		TapDance: km.TapDance,
		Chorded:  km.Chorded,
		Sticky:   km.Sticky,
		Layered:  km.Layered,
		CapsWord: context.CapsWordConfig{
			IdleTimeoutMS: km.CapsWord.IdleTimeoutMS,
			Terminators:   terminatorRefs(km.CapsWord.TerminatorCodes),
		},
	}
	return refs, c.sys, context.New(cfg)
}

func terminatorRefs(codes []uint8) []keyref.Ref {
	refs := make([]keyref.Ref, len(codes))
	for i, code := range codes {
		refs[i] = keyref.Keyboard(code)
	}
	return refs
}

// compiler accumulates system.System definitions while walking a KeyDef
// tree, so that nested branches (a tap-hold's hold arm, a layered key's
// overlay) get their own array slot the moment they are first seen.
type compiler struct {
	sys *system.System
}

func (c *compiler) compile(def KeyDef) keyref.Ref {
	switch def.Kind {
	case "keyboard":
		return keyref.Keyboard(def.Code)
	case "modifier":
		return keyref.Modifier(parseModifiers(def.Mods))
	case "keyboard_combo":
		idx := len(c.sys.Keyboard)
		c.sys.Keyboard = append(c.sys.Keyboard, system.KeyboardDef{
			KeyCode:   def.ComboCode,
			Modifiers: parseModifiers(def.ComboMods),
		})
		return keyref.KeyboardCombo(uint16(idx))
	case "consumer":
		return keyref.Consumer(def.Usage)
	case "custom":
		return keyref.Custom(def.Code)
	case "mouse_button":
		return keyref.MouseButton(def.Button)
	case "mouse_cursor":
		return keyref.MouseCursor(parseDirection(def.Direction))
	case "mouse_wheel":
		return keyref.MouseWheel(parseDirection(def.Direction))
	case "callback":
		idx := len(c.sys.Callback)
		c.sys.Callback = append(c.sys.Callback, system.CallbackDef{Tag: def.Tag, Payload: def.Payload})
		return keyref.Callback(uint16(idx))
	case "layer_hold":
		return keyref.LayerHold(def.Layer)
	case "layer_toggle":
		return keyref.LayerToggle(def.Layer)
	case "layer_sticky":
		return keyref.LayerSticky(def.Layer)
	case "layer_set_active":
		idx := len(c.sys.LayerSets)
		var bits uint32
		for _, layer := range def.Layers {
			bits |= 1 << layer
		}
		c.sys.LayerSets = append(c.sys.LayerSets, system.LayerSet{Layers: bits})
		return keyref.LayerSetActive(uint16(idx))
	case "layered":
		overlays := make([]keyref.Ref, len(def.Overlays))
		hasOverlay := make([]bool, len(def.Overlays))
		for i, o := range def.Overlays {
			overlays[i] = c.compile(o)
			hasOverlay[i] = true
		}
		idx := len(c.sys.Layered)
		c.sys.Layered = append(c.sys.Layered, system.LayeredDef{
			Base:       c.compile(*def.Base),
			Overlays:   overlays,
			HasOverlay: hasOverlay,
		})
		return keyref.Layered(uint16(idx))
	case "tap_hold":
		idx := len(c.sys.TapHold)
		c.sys.TapHold = append(c.sys.TapHold, system.TapHoldDef{
			Tap:  c.compile(*def.Tap),
			Hold: c.compile(*def.Hold),
		})
		return keyref.TapHold(uint16(idx))
	case "chorded":
		chords := make([]system.ChordDef, len(def.Chords))
		for i, chord := range def.Chords {
			chords[i] = system.ChordDef{Indices: chord.Members, Resolved: c.compile(chord.Resolved)}
		}
		idx := len(c.sys.Chorded)
		c.sys.Chorded = append(c.sys.Chorded, system.ChordedDef{
			Default:   c.compile(*def.Default),
			TimeoutMS: 0, // falls back to context.Config.Chorded.TimeoutMS
			Chords:    chords,
		})
		return keyref.Chorded(uint16(idx))
	case "chorded_auxiliary":
		return keyref.ChordedAuxiliary(uint16(idx0(def)))
	case "sticky":
		return keyref.Sticky(parseModifiers(def.Mods))
	case "tap_dance":
		defs := make([]keyref.Ref, len(def.Defs))
		for i, d := range def.Defs {
			defs[i] = c.compile(d)
		}
		idx := len(c.sys.TapDance)
		c.sys.TapDance = append(c.sys.TapDance, system.TapDanceDef{Defs: defs})
		return keyref.TapDance(uint16(idx))
	case "caps_word_toggle":
		return keyref.CapsWordToggle()
	default:
		panic(fmt.Sprintf("config: unknown key kind %q", def.Kind))
	}
}

// idx0 reads a chorded-auxiliary's family index, reusing Code as the
// plain integer field since chorded-auxiliary keys have no other payload.
func idx0(def KeyDef) uint8 { return def.Code }

func parseDirection(s string) keyref.Direction {
	switch s {
	case "left":
		return keyref.DirLeft
	case "right":
		return keyref.DirRight
	case "up":
		return keyref.DirUp
	case "down":
		return keyref.DirDown
	default:
		panic(fmt.Sprintf("config: unknown mouse direction %q", s))
	}
}

var modifierBits = map[string]keyref.KeyboardModifiers{
	"lctrl":  keyref.ModLCtrl,
	"lshift": keyref.ModLShift,
	"lalt":   keyref.ModLAlt,
	"lgui":   keyref.ModLGui,
	"rctrl":  keyref.ModRCtrl,
	"rshift": keyref.ModRShift,
	"ralt":   keyref.ModRAlt,
	"rgui":   keyref.ModRGui,
}

func parseModifiers(names []string) keyref.KeyboardModifiers {
	var mods keyref.KeyboardModifiers
	for _, name := range names {
		bit, ok := modifierBits[name]
		if !ok {
			panic(fmt.Sprintf("config: unknown modifier name %q", name))
		}
		mods = mods.Union(bit)
	}
	return mods
}
