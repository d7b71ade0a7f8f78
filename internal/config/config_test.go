package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/merith-tk/smart-keymap/internal/keyref"
)

func TestLoadKeymapWritesDefaultOnFirstRun(t *testing.T) {
	dir := t.TempDir()

	km, err := LoadKeymap(dir)
	require.NoError(t, err)
	assert.Equal(t, uint32(200), km.TapHold.TimeoutMS)
	assert.Equal(t, uint32(5000), km.CapsWord.IdleTimeoutMS)

	data, err := filepath.Glob(filepath.Join(dir, "keymap.yml"))
	require.NoError(t, err)
	assert.Len(t, data, 1, "a default keymap.yml must be written on first load")

	again, err := LoadKeymap(dir)
	require.NoError(t, err)
	assert.Equal(t, km.TapHold, again.TapHold, "a second load must read back the same defaults just written")
}

func TestCompileSimpleKeyboardKey(t *testing.T) {
	km := &Keymap{Keys: []KeyDef{{Kind: "keyboard", Code: 4}}}
	refs, _, _ := Compile(km)

	require.Len(t, refs, 1)
	assert.Equal(t, keyref.Keyboard(4), refs[0])
}

func TestCompileTapHoldNestsTapAndHold(t *testing.T) {
	km := &Keymap{Keys: []KeyDef{{
		Kind: "tap_hold",
		Tap:  &KeyDef{Kind: "keyboard", Code: 5},
		Hold: &KeyDef{Kind: "layer_hold", Layer: 1},
	}}}
	refs, sys, _ := Compile(km)

	require.Len(t, refs, 1)
	assert.Equal(t, keyref.KindTapHold, refs[0].Kind)
	def := sys.TapHoldByIndex(refs[0].Index)
	assert.Equal(t, keyref.Keyboard(5), def.Tap)
	assert.Equal(t, keyref.LayerHold(1), def.Hold)
}

func TestCompileChordedBuildsMemberIndicesAndDefault(t *testing.T) {
	km := &Keymap{Keys: []KeyDef{{
		Kind:    "chorded",
		Default: &KeyDef{Kind: "keyboard", Code: 10},
		Chords: []ChordDef{
			{Members: []keyref.KeymapIndex{0, 1}, Resolved: KeyDef{Kind: "keyboard", Code: 11}},
		},
	}}}
	refs, sys, _ := Compile(km)

	def := sys.ChordedByIndex(refs[0].Index)
	assert.Equal(t, keyref.Keyboard(10), def.Default)
	require.Len(t, def.Chords, 1)
	assert.Equal(t, []keyref.KeymapIndex{0, 1}, def.Chords[0].Indices)
	assert.Equal(t, keyref.Keyboard(11), def.Chords[0].Resolved)
}

func TestCompileLayeredBuildsOverlayTable(t *testing.T) {
	km := &Keymap{Keys: []KeyDef{{
		Kind:     "layered",
		Base:     &KeyDef{Kind: "keyboard", Code: 6},
		Overlays: []KeyDef{{Kind: "keyboard", Code: 7}},
	}}}
	refs, sys, _ := Compile(km)

	def := sys.LayeredByIndex(refs[0].Index)
	assert.Equal(t, keyref.Keyboard(6), def.Base)
	require.Len(t, def.Overlays, 1)
	assert.True(t, def.HasOverlay[0])
	assert.Equal(t, keyref.Keyboard(7), def.Overlays[0])
}

func TestCompileCapsWordTerminatorsBecomeLiteralKeyboardRefs(t *testing.T) {
	km := &Keymap{
		Keys:     []KeyDef{{Kind: "keyboard", Code: 4}},
		CapsWord: CapsWordYAML{TerminatorCodes: []uint8{44}, IdleTimeoutMS: 5000},
	}
	_, _, ctx := Compile(km)

	require.Len(t, ctx.Config.CapsWord.Terminators, 1)
	assert.Equal(t, keyref.Keyboard(44), ctx.Config.CapsWord.Terminators[0])
}

func TestCompileModifierParsesNames(t *testing.T) {
	km := &Keymap{Keys: []KeyDef{{Kind: "sticky", Mods: []string{"lshift", "lctrl"}}}}
	refs, _, _ := Compile(km)

	assert.Equal(t, keyref.Sticky(keyref.ModLShift.Union(keyref.ModLCtrl)), refs[0])
}

func TestKeymapRoundTripsThroughYAML(t *testing.T) {
	data, err := yaml.Marshal(DefaultKeymap())
	require.NoError(t, err)

	var decoded Keymap
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, DefaultKeymap().TapHold, decoded.TapHold)
}
