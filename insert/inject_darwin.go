//go:build darwin

package insert

/*
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation

#include <ApplicationServices/ApplicationServices.h>

static int typeUnicode(const UniChar *chars, int len) {
	CGEventRef down = CGEventCreateKeyboardEvent(NULL, 0, true);
	if (down == NULL) {
		return -1;
	}
	CGEventKeyboardSetUnicodeString(down, len, chars);
	CGEventPost(kCGSessionEventTap, down);
	CFRelease(down);

	CGEventRef up = CGEventCreateKeyboardEvent(NULL, 0, false);
	if (up == NULL) {
		return -1;
	}
	CGEventKeyboardSetUnicodeString(up, len, chars);
	CGEventPost(kCGSessionEventTap, up);
	CFRelease(up);
	return 0;
}

// Virtual keycodes from Carbon's Events.h: kVK_ANSI_V = 9, kVK_Command = 0x37.
static int pressPasteChord(void) {
	CGEventRef cmdDown = CGEventCreateKeyboardEvent(NULL, 0x37, true);
	CGEventRef vDown = CGEventCreateKeyboardEvent(NULL, 9, true);
	CGEventRef vUp = CGEventCreateKeyboardEvent(NULL, 9, false);
	CGEventRef cmdUp = CGEventCreateKeyboardEvent(NULL, 0x37, false);
	if (cmdDown == NULL || vDown == NULL || vUp == NULL || cmdUp == NULL) {
		if (cmdDown) CFRelease(cmdDown);
		if (vDown) CFRelease(vDown);
		if (vUp) CFRelease(vUp);
		if (cmdUp) CFRelease(cmdUp);
		return -1;
	}
	CGEventSetFlags(cmdDown, kCGEventFlagMaskCommand);
	CGEventSetFlags(vDown, kCGEventFlagMaskCommand);
	CGEventSetFlags(vUp, kCGEventFlagMaskCommand);

	CGEventPost(kCGSessionEventTap, cmdDown);
	CGEventPost(kCGSessionEventTap, vDown);
	CGEventPost(kCGSessionEventTap, vUp);
	CGEventPost(kCGSessionEventTap, cmdUp);

	CFRelease(cmdDown);
	CFRelease(vDown);
	CFRelease(vUp);
	CFRelease(cmdUp);
	return 0;
}
*/
import "C"

import (
	"errors"
	"time"
	"unicode/utf16"
	"unsafe"
)

type darwinInjector struct{}

func newInjector() injector { return darwinInjector{} }

// typeText posts one keyboard event pair per character. A short delay
// between characters keeps slow applications from dropping input.
func (darwinInjector) typeText(text string) error {
	for _, r := range text {
		units := utf16.Encode([]rune{r})
		rc := C.typeUnicode((*C.UniChar)(unsafe.Pointer(&units[0])), C.int(len(units)))
		if rc != 0 {
			return errors.New("keyboard event creation failed")
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}

func (darwinInjector) pressPaste() error {
	if C.pressPasteChord() != 0 {
		return errors.New("keyboard event creation failed")
	}
	return nil
}
