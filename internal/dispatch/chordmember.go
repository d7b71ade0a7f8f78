package dispatch

import "github.com/merith-tk/smart-keymap/internal/keyref"

// IsPendingChordMember reports whether idx participates in p's pending
// chord family, for internal/engine's "route claimed chord members to the
// pending primary instead of creating their own slot" rule (spec.md §4.6).
func IsPendingChordMember(p *PendingKeyState, idx keyref.KeymapIndex) bool {
	if p.Chorded == nil {
		return false
	}
	return chordFamilyHasMember(p.Chorded.def, idx)
}

// ResolvedChordMembers returns the physical keymap indices that make up a
// resolved chord's member set, for internal/engine's all-members-released
// pruning check. Reports ok=false if state is not a resolved chord.
func ResolvedChordMembers(state KeyState) (members []keyref.KeymapIndex, ok bool) {
	if state.Chorded == nil {
		return nil, false
	}
	return state.Chorded.chord.Indices, true
}
