package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler writes one line per record:
//
//	2026-01-02T15:04:05Z INFO orchestrator[dQw4w9WgXcQ]: record created attempt=... stage=publish
//
// component and content_id are lifted into the prefix; every other attribute
// follows as key=value with group names joined by dots.
type consoleHandler struct {
	mu        *sync.Mutex
	out       io.Writer
	level     slog.Leveler
	addSource bool
	preset    []field
	prefix    string
}

type field struct {
	key string
	val slog.Value
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) slog.Handler {
	return &consoleHandler{mu: new(sync.Mutex), out: w, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.preset = append(append([]field(nil), h.preset...), collect(nil, h.prefix, attrs)...)
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *consoleHandler) Handle(_ context.Context, rec slog.Record) error {
	fields := append([]field(nil), h.preset...)
	rec.Attrs(func(a slog.Attr) bool {
		fields = collect(fields, h.prefix, []slog.Attr{a})
		return true
	})

	var component, contentID string
	rest := fields[:0]
	for _, f := range fields {
		switch {
		case f.key == FieldComponent && component == "":
			component = plain(f.val)
		case f.key == FieldContentID && contentID == "":
			contentID = plain(f.val)
		default:
			rest = append(rest, f)
		}
	}

	ts := rec.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(ts.UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(levelLabel(rec.Level))
	b.WriteByte(' ')
	if component != "" || contentID != "" {
		b.WriteString(component)
		if contentID != "" {
			b.WriteString("[" + contentID + "]")
		}
		b.WriteString(": ")
	}
	msg := strings.TrimSpace(rec.Message)
	if msg == "" {
		msg = "(no message)"
	}
	b.WriteString(msg)
	if h.addSource {
		if src := rec.Source(); src != nil {
			fmt.Fprintf(&b, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	for _, f := range rest {
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(quoteIfNeeded(plain(f.val)))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

// collect flattens attrs (and nested groups) onto dst under prefix.
func collect(dst []field, prefix string, attrs []slog.Attr) []field {
	for _, a := range attrs {
		if a.Equal(slog.Attr{}) {
			continue
		}
		val := a.Value.Resolve()
		if val.Kind() == slog.KindGroup {
			sub := prefix
			if a.Key != "" {
				sub = prefix + a.Key + "."
			}
			dst = collect(dst, sub, val.Group())
			continue
		}
		if a.Key == "" {
			continue
		}
		dst = append(dst, field{key: prefix + a.Key, val: val})
	}
	return dst
}

func plain(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\r=\"") {
		return strconv.Quote(s)
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
