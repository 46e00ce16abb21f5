// Package logger provides a configured slog.Logger factory plus
// attribute helpers with the keys used across permkit packages.
//
// The factory wraps the chosen handler in a decorator that injects
// request-scoped attributes extracted from context, so values like
// request IDs appear on every record without threading them through
// call sites:
//
//	log := logger.New(
//		logger.WithTextFormatter(),
//		logger.WithLevel(slog.LevelDebug),
//		logger.WithContextValue("request_id", requestIDKey),
//	)
package logger
