package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_ProdIsJSON(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "prod", "storefront-api")
	l.Info("hello", "k", 1)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "storefront-api", line["service"])
}

func TestNewLogger_DevSkipsNothing(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "dev", "svc")
	l.Debug("dbg")
	assert.Contains(t, buf.String(), "msg=dbg")
}

func TestFromCtx(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil)).With("request_id", "abc")

	ctx := Inject(context.Background(), l)
	FromCtx(ctx).Info("x")
	assert.Contains(t, buf.String(), "request_id=abc")

	assert.NotNil(t, FromCtx(context.Background()))
}
