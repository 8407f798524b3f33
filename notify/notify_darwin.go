//go:build darwin

package notify

import (
	"fmt"
	"os/exec"
	"strings"
)

func post(appName, title, message string) error {
	script := fmt.Sprintf("display notification %s with title %s subtitle %s",
		quoteAppleScript(message), quoteAppleScript(appName), quoteAppleScript(title))
	if out, err := exec.Command("osascript", "-e", script).CombinedOutput(); err != nil {
		return fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func quoteAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
