package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func capturingContext() (context.Context, *bytes.Buffer) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	return WithLogger(context.Background(), base), &buf
}

func TestWithRequestIDTagsEveryLine(t *testing.T) {
	ctx, buf := capturingContext()
	ctx = WithRequestID(ctx, "req-42")

	FromContext(ctx).Info("hello")
	require.Contains(t, buf.String(), `"request_id":"req-42"`)
}

func TestWithRoomIDTagsEveryLine(t *testing.T) {
	ctx, buf := capturingContext()
	ctx = WithRoomID(ctx, "room-7")

	FromContext(ctx).Info("hello")
	require.Contains(t, buf.String(), `"room_id":"room-7"`)
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	require.Equal(t, slog.Default(), FromContext(context.Background()))
}
