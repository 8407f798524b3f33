package hotkey

import "testing"

const (
	rawCtrlLeft   = 59
	rawCtrlRight  = 62
	rawAltLeft    = 58
	rawShiftLeft  = 56
	rawCmdLeft    = 55
	rawNonMod     = 12 // 'q'
)

func mustCombo(t *testing.T, s string) Combo {
	t.Helper()
	c, err := ParseCombo(s)
	if err != nil {
		t.Fatalf("ParseCombo(%q): %v", s, err)
	}
	return c
}

func TestParseCombo(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"ctrl+alt", "ctrl+alt", false},
		{"control+option", "ctrl+alt", false},
		{"Ctrl+Alt", "ctrl+alt", false},
		{"ctrl+ctrl+alt", "ctrl+alt", false},
		{"shift", "shift", false},
		{"cmd+shift", "cmd+shift", false},
		{"", "", true},
		{"ctrl+banana", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ParseCombo(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCombo(%q) succeeded, want error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCombo(%q): %v", tt.in, err)
			}
			if c.String() != tt.want {
				t.Errorf("String() = %q, want %q", c.String(), tt.want)
			}
		})
	}
}

func TestTrackerSinglePressRelease(t *testing.T) {
	tr := newComboTracker(mustCombo(t, "ctrl+alt"))

	if got := tr.process(rawCtrlLeft, true); got != transitionNone {
		t.Fatalf("ctrl down: got %v, want none", got)
	}
	if got := tr.process(rawAltLeft, true); got != transitionStart {
		t.Fatalf("alt down: got %v, want start", got)
	}
	if got := tr.process(rawAltLeft, false); got != transitionStop {
		t.Fatalf("alt up: got %v, want stop", got)
	}
	if got := tr.process(rawCtrlLeft, false); got != transitionNone {
		t.Fatalf("ctrl up: got %v, want none", got)
	}
}

func TestTrackerKeyRepeatStorm(t *testing.T) {
	tr := newComboTracker(mustCombo(t, "ctrl+alt"))

	tr.process(rawCtrlLeft, true)
	if got := tr.process(rawAltLeft, true); got != transitionStart {
		t.Fatalf("got %v, want start", got)
	}

	// Key repeats while held must not re-trigger
	starts := 0
	for i := 0; i < 50; i++ {
		if tr.process(rawCtrlLeft, true) == transitionStart {
			starts++
		}
		if tr.process(rawAltLeft, true) == transitionStart {
			starts++
		}
	}
	if starts != 0 {
		t.Errorf("key repeats produced %d extra starts", starts)
	}

	if got := tr.process(rawCtrlLeft, false); got != transitionStop {
		t.Fatalf("got %v, want exactly one stop", got)
	}
}

func TestTrackerCommandCancels(t *testing.T) {
	tr := newComboTracker(mustCombo(t, "ctrl+alt"))

	tr.process(rawCmdLeft, true)
	tr.process(rawCtrlLeft, true)
	if got := tr.process(rawAltLeft, true); got != transitionNone {
		t.Fatalf("combo satisfied with cmd held: got %v", got)
	}

	// Releasing cmd with ctrl+alt still held satisfies the combo
	if got := tr.process(rawCmdLeft, false); got != transitionStart {
		t.Fatalf("cmd release: got %v, want start", got)
	}

	// Pressing cmd mid-hold releases it
	if got := tr.process(rawCmdLeft, true); got != transitionStop {
		t.Fatalf("cmd press mid-hold: got %v, want stop", got)
	}
}

func TestTrackerEitherSideKey(t *testing.T) {
	tr := newComboTracker(mustCombo(t, "ctrl+alt"))

	// Right control counts the same as left control
	tr.process(rawCtrlRight, true)
	if got := tr.process(rawAltLeft, true); got != transitionStart {
		t.Fatalf("got %v, want start with right-side ctrl", got)
	}

	// Pressing the left sibling too, then releasing one side, keeps it held
	tr.process(rawCtrlLeft, true)
	if got := tr.process(rawCtrlRight, false); got != transitionNone {
		t.Fatalf("got %v, want none while left ctrl still held", got)
	}
	if got := tr.process(rawCtrlLeft, false); got != transitionStop {
		t.Fatalf("got %v, want stop", got)
	}
}

func TestTrackerIgnoresNonModifiers(t *testing.T) {
	tr := newComboTracker(mustCombo(t, "ctrl+alt"))

	tr.process(rawCtrlLeft, true)
	tr.process(rawAltLeft, true)

	// Typing regular keys while dictating must not disturb the combo
	if got := tr.process(rawNonMod, true); got != transitionNone {
		t.Fatalf("got %v, want none", got)
	}
	if got := tr.process(rawNonMod, false); got != transitionNone {
		t.Fatalf("got %v, want none", got)
	}

	if got := tr.process(rawShiftLeft, true); got != transitionNone {
		t.Fatalf("shift while dictating: got %v, want none", got)
	}
}

func TestTrackerStartStopPairs(t *testing.T) {
	tr := newComboTracker(mustCombo(t, "ctrl+alt"))

	var starts, stops int
	record := func(got transition) {
		switch got {
		case transitionStart:
			starts++
		case transitionStop:
			stops++
		}
	}

	// Three hold/release cycles with noisy repeats
	for i := 0; i < 3; i++ {
		record(tr.process(rawCtrlLeft, true))
		record(tr.process(rawAltLeft, true))
		record(tr.process(rawAltLeft, true)) // repeat
		record(tr.process(rawCtrlLeft, true))
		record(tr.process(rawAltLeft, false))
		record(tr.process(rawCtrlLeft, false))
	}

	if starts != 3 || stops != 3 {
		t.Errorf("got %d starts, %d stops; want 3 and 3", starts, stops)
	}
}
