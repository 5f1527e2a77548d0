package progress

import "log/slog"

// Callback receives an incremental update after every processed item: a
// short message, the running count, the total, and the current item name.
// Invoked synchronously; processing does not wait on anything else.
type Callback func(message string, processed, total int, current string)

// Notify invokes cb, swallowing a panic from the callback so that a broken
// progress consumer can never abort a batch run.
func Notify(cb Callback, logger *slog.Logger, message string, processed, total int, current string) {
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			if logger == nil {
				logger = slog.Default()
			}
			logger.Warn("progress callback panicked", "panic", r, "current", current)
		}
	}()
	cb(message, processed, total, current)
}
