//go:build !darwin

package notify

import "log/slog"

func post(appName, title, message string) error {
	slog.Info("notification", "app", appName, "title", title, "message", message)
	return nil
}
