package errors

import (
	"fmt"
	"log/slog"
	"strings"
)

// FormatForCLI formats an error for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	me, ok := As(err)
	if !ok {
		me = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", me.Message))
	if me.Cause != nil && me.Cause.Error() != me.Message {
		sb.WriteString(fmt.Sprintf("  Cause: %s\n", me.Cause.Error()))
	}
	if me.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", me.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", me.Code))

	return sb.String()
}

// LogAttrs returns slog attributes describing err, typed for slog.Warn(msg, args...).
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	me, ok := As(err)
	if !ok {
		return []any{slog.String("error", err.Error())}
	}

	attrs := []any{
		slog.String("error_code", me.Code),
		slog.String("error", me.Message),
		slog.String("category", string(me.Category)),
		slog.Bool("retryable", me.Retryable),
	}
	if me.Cause != nil {
		attrs = append(attrs, slog.String("cause", me.Cause.Error()))
	}
	for k, v := range me.Details {
		attrs = append(attrs, slog.String("detail_"+k, v))
	}
	return attrs
}
