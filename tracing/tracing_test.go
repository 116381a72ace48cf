package tracing

import (
	"context"
	"errors"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInit_File(t *testing.T) {
	fname := path.Join(t.TempDir(), "spans.json")
	require.NoError(t, Init("durable", "0.0.1", fname))

	ctx, span := StartSpan(context.Background(), "engine.callback.succeed", KindClient, attribute.String("callback.outcome", "success"))
	span.SetHTTPStatus(200)
	EndSpan(span, nil)

	_, child := StartSpan(ctx, "step fetch", KindInternal)
	EndSpan(child.Set(attribute.String("step.name", "fetch")), errors.New("boom"))

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(data), "engine.callback.succeed")
	assert.Contains(t, string(data), "boom")
}

func TestSpan_Nil(t *testing.T) {
	var span *Span
	assert.Nil(t, span.Set(attribute.String("k", "v")))
	span.Fail(errors.New("boom"))
	span.SetHTTPStatus(500)
	EndSpan(span, nil)
}
