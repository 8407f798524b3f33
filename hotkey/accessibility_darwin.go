//go:build darwin

package hotkey

/*
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation
#include <ApplicationServices/ApplicationServices.h>

static int isAccessibilityEnabled(int prompt) {
	if (!prompt) {
		return AXIsProcessTrusted() ? 1 : 0;
	}
	const void *keys[] = { kAXTrustedCheckOptionPrompt };
	const void *values[] = { kCFBooleanTrue };
	CFDictionaryRef options = CFDictionaryCreate(
		kCFAllocatorDefault, keys, values, 1,
		&kCFCopyStringDictionaryKeyCallBacks,
		&kCFTypeDictionaryValueCallBacks);
	Boolean trusted = AXIsProcessTrustedWithOptions(options);
	CFRelease(options);
	return trusted ? 1 : 0;
}
*/
import "C"

// IsAccessibilityEnabled returns whether the process may install a global
// event hook. When prompt is true and permission is missing, the system
// shows the grant dialog pointing at Privacy & Security > Accessibility.
func IsAccessibilityEnabled(prompt bool) bool {
	p := 0
	if prompt {
		p = 1
	}
	return C.isAccessibilityEnabled(C.int(p)) == 1
}
