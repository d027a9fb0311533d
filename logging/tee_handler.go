package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler 同时写滚动文件与控制台. 两端级别可以不同.
type teeHandler struct {
	file, console slog.Handler
}

func (h teeHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.file.Enabled(ctx, lvl) || h.console.Enabled(ctx, lvl)
}

func (h teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var fileErr, consoleErr error
	if h.file.Enabled(ctx, r.Level) {
		fileErr = h.file.Handle(ctx, r.Clone())
	}
	if h.console.Enabled(ctx, r.Level) {
		consoleErr = h.console.Handle(ctx, r)
	}
	return errors.Join(fileErr, consoleErr)
}

func (h teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{file: h.file.WithAttrs(attrs), console: h.console.WithAttrs(attrs)}
}

func (h teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{file: h.file.WithGroup(name), console: h.console.WithGroup(name)}
}
