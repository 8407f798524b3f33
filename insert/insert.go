// Package insert delivers recognized text to the application holding input
// focus, via synthetic keystrokes or a clipboard paste.
package insert

import (
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
)

// ErrUnsupported is returned on platforms without synthetic input support.
var ErrUnsupported = errors.New("insert: not supported on this platform")

// ErrInsertionBlocked is returned when the focused application rejects
// synthetic input. The recognized text is preserved for manual pasting.
var ErrInsertionBlocked = errors.New("insert: synthetic input rejected by focused application")

// Method selects the insertion strategy.
type Method string

const (
	// MethodAuto types short text and pastes long text.
	MethodAuto Method = "auto"
	// MethodType always injects per-character keystrokes.
	MethodType Method = "type"
	// MethodPaste always inserts via clipboard paste.
	MethodPaste Method = "paste"
)

// DefaultPasteThreshold is the text length above which auto mode pastes
// instead of typing.
const DefaultPasteThreshold = 10

// Clipboard abstracts the system pasteboard so the restore guarantee can be
// exercised in tests.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error) { return clipboard.ReadAll() }
func (systemClipboard) WriteAll(s string) error  { return clipboard.WriteAll(s) }

// injector produces synthetic input events. Platform-specific.
type injector interface {
	typeText(text string) error
	pressPaste() error
}

// Inserter places text at the cursor of the focused application.
type Inserter struct {
	method    Method
	threshold int
	settle    time.Duration
	clip      Clipboard
	inj       injector

	mu sync.Mutex
}

// Config holds Inserter configuration.
type Config struct {
	Method         Method // defaults to MethodAuto
	PasteThreshold int    // defaults to DefaultPasteThreshold
}

// New creates an Inserter using the system clipboard and input injector.
func New(cfg Config) *Inserter {
	return newInserter(cfg, systemClipboard{}, newInjector())
}

func newInserter(cfg Config, clip Clipboard, inj injector) *Inserter {
	if cfg.Method == "" {
		cfg.Method = MethodAuto
	}
	if cfg.PasteThreshold == 0 {
		cfg.PasteThreshold = DefaultPasteThreshold
	}
	return &Inserter{
		method:    cfg.Method,
		threshold: cfg.PasteThreshold,
		settle:    50 * time.Millisecond,
		clip:      clip,
		inj:       inj,
	}
}

// Insert delivers text to the focused application using the configured
// strategy. On a blocked keystroke injection the text is left on the
// clipboard and ErrInsertionBlocked is returned so the caller can tell the
// user to paste manually.
func (i *Inserter) Insert(text string) error {
	if text == "" {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	switch i.method {
	case MethodType:
		return i.insertTyping(text)
	case MethodPaste:
		return i.insertPaste(text)
	default:
		if utf8.RuneCountInString(text) > i.threshold {
			return i.insertPaste(text)
		}
		return i.insertTyping(text)
	}
}

func (i *Inserter) insertTyping(text string) error {
	err := i.inj.typeText(text)
	if err == nil {
		return nil
	}

	// Leave the text on the clipboard as a manual fallback
	if cerr := i.clip.WriteAll(text); cerr != nil {
		return fmt.Errorf("type text: %v; set clipboard fallback: %w", err, cerr)
	}
	return fmt.Errorf("%w: %v", ErrInsertionBlocked, err)
}

// insertPaste copies text to the clipboard, simulates a paste chord, and
// restores the previous clipboard contents once the paste lands. A blocked
// chord skips the restore: the recognized text stays on the clipboard as
// the manual fallback, matching the typing path.
func (i *Inserter) insertPaste(text string) (err error) {
	prev, prevErr := i.clip.ReadAll()

	if werr := i.clip.WriteAll(text); werr != nil {
		return fmt.Errorf("set clipboard: %w", werr)
	}

	restore := prevErr == nil
	defer func() {
		if !restore {
			return
		}
		if rerr := i.clip.WriteAll(prev); rerr != nil && err == nil {
			err = fmt.Errorf("restore clipboard: %w", rerr)
		}
	}()

	// Give the pasteboard a moment before and after the chord so the
	// target application reads the new contents, not the restored ones.
	time.Sleep(i.settle)

	if perr := i.inj.pressPaste(); perr != nil {
		restore = false
		return fmt.Errorf("%w: %v", ErrInsertionBlocked, perr)
	}

	time.Sleep(2 * i.settle)
	return nil
}
