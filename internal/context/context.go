// Package context holds the process-wide Context: configuration plus the
// mutable runtime state every key kind reads and, where applicable,
// mutates (spec.md §3).
//
// Context is passed explicitly to every subsystem call and mutated only
// from the keymap core's single-threaded resolution loop (spec.md §5); no
// locking is required.
package context

import "github.com/merith-tk/smart-keymap/internal/keyref"

// InterruptResponse selects how a pending tap-hold key reacts to another
// key's events while it is pending (spec.md §4.5).
type InterruptResponse uint8

const (
	// InterruptIgnore: interruptions never resolve the pending key.
	InterruptIgnore InterruptResponse = iota
	// InterruptHoldOnKeyPress: any other key press resolves as hold.
	InterruptHoldOnKeyPress
	// InterruptHoldOnKeyTap: only a complete press+release of another key resolves as hold.
	InterruptHoldOnKeyTap
)

// TapHoldConfig holds tap-hold module configuration (spec.md §6).
type TapHoldConfig struct {
	TimeoutMS         uint32            `yaml:"timeout_ms"`
	InterruptResponse InterruptResponse `yaml:"interrupt_response"`
	RequiredIdleTimeMS uint32           `yaml:"required_idle_time_ms"`
}

// DefaultTapHoldConfig matches spec.md §6's documented defaults.
func DefaultTapHoldConfig() TapHoldConfig {
	return TapHoldConfig{TimeoutMS: 200, InterruptResponse: InterruptIgnore, RequiredIdleTimeMS: 0}
}

// TapDanceConfig holds tap-dance module configuration.
type TapDanceConfig struct {
	TimeoutMS uint32 `yaml:"timeout_ms"`
}

// DefaultTapDanceConfig matches spec.md §6's documented default.
func DefaultTapDanceConfig() TapDanceConfig { return TapDanceConfig{TimeoutMS: 200} }

// ChordedConfig holds the chord recognition window; the chord table itself
// lives in system.System (spec.md §6).
type ChordedConfig struct {
	TimeoutMS uint32 `yaml:"timeout_ms"`
}

// DefaultChordedConfig matches the "default small, e.g. 200ms" guidance in spec.md §4.6.
func DefaultChordedConfig() ChordedConfig { return ChordedConfig{TimeoutMS: 200} }

// StickyConfig holds the sticky-modifier idle-release timeout (spec.md §6).
type StickyConfig struct {
	IdleTimeoutMS uint32 `yaml:"idle_timeout_ms"`
}

// CapsWordConfig holds caps-word's terminator set and idle timeout
// (spec.md §6).
type CapsWordConfig struct {
	Terminators   []keyref.Ref `yaml:"-"`
	IdleTimeoutMS uint32       `yaml:"idle_timeout_ms"`
}

// LayeredConfig holds the number of layers the keymap defines.
type LayeredConfig struct {
	LayerCount uint8 `yaml:"layer_count"`
}

// Config is the static, compile-time-constant configuration every Context
// is built from (spec.md §6).
type Config struct {
	TapHold  TapHoldConfig
	TapDance TapDanceConfig
	Chorded  ChordedConfig
	Sticky   StickyConfig
	CapsWord CapsWordConfig
	Layered  LayeredConfig
}

// DefaultConfig returns the spec.md §6 documented defaults.
func DefaultConfig() Config {
	return Config{
		TapHold:  DefaultTapHoldConfig(),
		TapDance: DefaultTapDanceConfig(),
		Chorded:  DefaultChordedConfig(),
		Sticky:   StickyConfig{IdleTimeoutMS: 0},
		CapsWord: CapsWordConfig{IdleTimeoutMS: 5000},
		Layered:  LayeredConfig{LayerCount: 1},
	}
}

// Context is the process-wide configuration plus mutable runtime state
// visible to every key kind (spec.md §3).
type Context struct {
	Config Config

	// activeLayers is the active-layer bitset; bit 0 (layer 0, the base
	// layer) is always set (spec.md §3 invariant).
	activeLayers uint32

	// stickyLayer, when non-negative, is the layer latched by a
	// LayerSticky modifier awaiting the next non-modifier key press.
	stickyLayer   int8
	stickyHeldIdx keyref.KeymapIndex
	stickyHeld    bool

	// CapsWordActive tracks whether caps-word mode is currently on.
	CapsWordActive bool

	// LastKeyboardKeyReleaseMS is the schedule-counter timestamp of the
	// most recent keyboard-kind key release, used by tap-hold's
	// required_idle_time_ms gate (spec.md §4.5).
	LastKeyboardKeyReleaseMS      uint32
	HasLastKeyboardKeyReleaseMS bool
}

// New constructs a Context with layer 0 active and the given config.
func New(cfg Config) *Context {
	return &Context{Config: cfg, activeLayers: 1, stickyLayer: -1}
}

// ActiveLayers returns the current active-layer bitset.
func (c *Context) ActiveLayers() uint32 { return c.activeLayers }

// IsLayerActive reports whether the given layer is currently active.
func (c *Context) IsLayerActive(layer uint8) bool {
	return c.activeLayers&(1<<layer) != 0
}

// HighestActiveLayer returns the highest-numbered active layer, used for
// layered key lookup (spec.md §4.4). Layer 0 is always returned if no
// higher layer is active.
func (c *Context) HighestActiveLayer() uint8 {
	for layer := int8(31); layer >= 0; layer-- {
		if c.activeLayers&(1<<uint(layer)) != 0 {
			return uint8(layer)
		}
	}
	return 0
}

// ActivateLayer sets a layer's bit (for Hold/Toggle-on).
func (c *Context) ActivateLayer(layer uint8) { c.activeLayers |= 1 << layer }

// DeactivateLayer clears a layer's bit (for Hold-release/Toggle-off).
func (c *Context) DeactivateLayer(layer uint8) { c.activeLayers &^= 1 << layer }

// ToggleLayer flips a layer's bit.
func (c *Context) ToggleLayer(layer uint8) { c.activeLayers ^= 1 << layer }

// SetActiveLayers replaces the entire active-layer set, including clearing
// any pending sticky-layer latch (spec.md §9 open question decision: see
// DESIGN.md).
func (c *Context) SetActiveLayers(layers uint32) {
	c.activeLayers = layers | 1 // layer 0 is always active
	c.stickyLayer = -1
	c.stickyHeld = false
}

// LatchStickyLayer activates layer until the next non-modifier key press
// completes (spec.md §4.4).
func (c *Context) LatchStickyLayer(layer uint8) {
	c.ActivateLayer(layer)
	c.stickyLayer = int8(layer)
	c.stickyHeld = false
}

// HoldStickyLayer marks the sticky layer as held-through-interrupt rather
// than one-shot (spec.md §4.4's "behaves as Hold on interrupt" rule).
func (c *Context) HoldStickyLayer(layer uint8) {
	c.ActivateLayer(layer)
	c.stickyLayer = int8(layer)
	c.stickyHeld = true
}

// ReleaseStickyLayerHold deactivates a held sticky layer on physical
// release, mirroring Hold's release behavior.
func (c *Context) ReleaseStickyLayerHold(layer uint8) {
	if c.stickyLayer == int8(layer) && c.stickyHeld {
		c.DeactivateLayer(layer)
		c.stickyLayer = -1
		c.stickyHeld = false
	}
}

// ConsumeStickyLayer deactivates the one-shot sticky layer once a
// non-modifier key press has completed, if one is latched and not held.
func (c *Context) ConsumeStickyLayer() {
	if c.stickyLayer >= 0 && !c.stickyHeld {
		c.DeactivateLayer(uint8(c.stickyLayer))
		c.stickyLayer = -1
	}
}

// RecentlyReleasedKeyboardKey reports whether a keyboard-kind key released
// within idleMS of nowMS, for tap-hold's required_idle_time_ms gate.
func (c *Context) RecentlyReleasedKeyboardKey(nowMS uint32, idleMS uint32) bool {
	if idleMS == 0 || !c.HasLastKeyboardKeyReleaseMS {
		return false
	}
	return nowMS-c.LastKeyboardKeyReleaseMS < idleMS
}

// NoteKeyboardKeyRelease records a keyboard-kind key's release time.
func (c *Context) NoteKeyboardKeyRelease(nowMS uint32) {
	c.LastKeyboardKeyReleaseMS = nowMS
	c.HasLastKeyboardKeyReleaseMS = true
}
