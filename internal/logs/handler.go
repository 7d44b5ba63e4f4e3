package logs

import (
	"context"
	"log/slog"
)

type turnKey struct{}

// WithTurn tags every record logged with ctx by the conversation turn id.
func WithTurn(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, turnKey{}, id)
}

func TurnFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(turnKey{}).(string)
	return id, ok
}

type Handler struct {
	slog.Handler
}

func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	if id, ok := TurnFrom(ctx); ok {
		record.Add("turn", id)
	}
	return h.Handler.Handle(ctx, record)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{Handler: h.Handler.WithGroup(name)}
}
