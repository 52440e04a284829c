package logging

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// newJSONHandler emits one object per line with ts/level/msg keys, UTC
// RFC3339 timestamps and a short file:line source.
func newJSONHandler(w io.Writer, level slog.Leveler, addSource bool) slog.Handler {
	rename := map[string]string{slog.TimeKey: "ts", slog.LevelKey: "level", slog.MessageKey: "msg"}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			if key, ok := rename[a.Key]; ok {
				a.Key = key
			}
			switch a.Value.Kind() {
			case slog.KindTime:
				if a.Key == "ts" {
					a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.KindAny:
				if src, ok := a.Value.Any().(*slog.Source); ok && src != nil {
					a.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				} else if lvl, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(strings.ToLower(lvl.String()))
				}
			}
			return a
		},
	})
}
