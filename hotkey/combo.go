package hotkey

import (
	"fmt"
	"strings"
)

// Modifier identifies a modifier key, independent of left/right position.
type Modifier string

const (
	ModCtrl  Modifier = "ctrl"
	ModAlt   Modifier = "alt"
	ModShift Modifier = "shift"
	ModCmd   Modifier = "cmd"
)

// modifierRawcodes maps each modifier to the raw keycodes of its left and
// right keys as reported by the low-level hook on macOS.
var modifierRawcodes = map[Modifier][]uint16{
	ModCtrl:  {59, 62},
	ModAlt:   {58, 61},
	ModShift: {56, 60},
	ModCmd:   {55, 54},
}

var modifierAliases = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"opt":     ModAlt,
	"shift":   ModShift,
	"cmd":     ModCmd,
	"command": ModCmd,
}

// Combo is a set of modifier keys that must all be held to trigger recording.
// Command cancels the combo when it is not itself part of it, so that system
// shortcuts like Cmd+Ctrl held together don't start a recording.
type Combo struct {
	Required []Modifier
}

// ParseCombo parses a combo string such as "ctrl+alt".
func ParseCombo(s string) (Combo, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	seen := make(map[Modifier]bool)
	var combo Combo

	for _, part := range parts {
		part = strings.TrimSpace(part)
		mod, ok := modifierAliases[part]
		if !ok {
			return Combo{}, fmt.Errorf("unknown modifier: %q", part)
		}
		if seen[mod] {
			continue
		}
		seen[mod] = true
		combo.Required = append(combo.Required, mod)
	}

	if len(combo.Required) == 0 {
		return Combo{}, fmt.Errorf("empty hotkey combo: %q", s)
	}
	return combo, nil
}

// String renders the combo in config syntax.
func (c Combo) String() string {
	parts := make([]string, len(c.Required))
	for i, m := range c.Required {
		parts[i] = string(m)
	}
	return strings.Join(parts, "+")
}

func (c Combo) requires(m Modifier) bool {
	for _, r := range c.Required {
		if r == m {
			return true
		}
	}
	return false
}

// transition describes a change in combo satisfaction.
type transition int

const (
	transitionNone transition = iota
	transitionStart
	transitionStop
)

// comboTracker folds raw key events into combo press/release transitions.
// It is deliberately free of any hook plumbing so the debounce behavior can
// be tested with synthetic event streams.
type comboTracker struct {
	combo     Combo
	held      map[uint16]bool
	satisfied bool
}

func newComboTracker(combo Combo) *comboTracker {
	return &comboTracker{
		combo: combo,
		held:  make(map[uint16]bool),
	}
}

// process consumes one raw key event and reports the resulting transition.
// Repeated down events for an already-held key never re-trigger.
func (t *comboTracker) process(rawcode uint16, down bool) transition {
	if !isModifierRawcode(rawcode) {
		return transitionNone
	}

	if down {
		t.held[rawcode] = true
	} else {
		delete(t.held, rawcode)
	}

	sat := t.comboSatisfied()
	switch {
	case sat && !t.satisfied:
		t.satisfied = true
		return transitionStart
	case !sat && t.satisfied:
		t.satisfied = false
		return transitionStop
	}
	return transitionNone
}

func (t *comboTracker) comboSatisfied() bool {
	for _, mod := range t.combo.Required {
		if !t.modifierHeld(mod) {
			return false
		}
	}
	// Command outside the combo cancels it
	if !t.combo.requires(ModCmd) && t.modifierHeld(ModCmd) {
		return false
	}
	return true
}

func (t *comboTracker) modifierHeld(m Modifier) bool {
	for _, raw := range modifierRawcodes[m] {
		if t.held[raw] {
			return true
		}
	}
	return false
}

func isModifierRawcode(rawcode uint16) bool {
	for _, raws := range modifierRawcodes {
		for _, raw := range raws {
			if raw == rawcode {
				return true
			}
		}
	}
	return false
}
