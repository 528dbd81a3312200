package gcs

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/core"
	"github.com/ajitpratap0/docarrow/pkg/errors"
)

type memWriter struct {
	bytes.Buffer
	closed   bool
	writeErr error
	closeErr error
}

func (w *memWriter) Write(p []byte) (int, error) {
	if w.writeErr != nil {
		return 0, w.writeErr
	}
	return w.Buffer.Write(p)
}

func (w *memWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func TestDestination_Write(t *testing.T) {
	writers := map[string]*memWriter{}
	open := func(_ context.Context, key string, _ core.Object) io.WriteCloser {
		w := &memWriter{}
		writers[key] = w
		return w
	}
	d := NewWithOpener(open, config.DestinationConfig{Bucket: "b", Prefix: "exports"}, nil)

	require.NoError(t, d.Write(context.Background(), core.Object{Name: "part.avro", Data: []byte("Obj")}))
	w := writers["exports/part.avro"]
	require.NotNil(t, w)
	assert.Equal(t, "Obj", w.String())
	assert.True(t, w.closed)
	require.NoError(t, d.Close(context.Background()))
}

func TestDestination_WriteErrors(t *testing.T) {
	tests := []struct {
		name string
		w    *memWriter
	}{
		{"write", &memWriter{writeErr: assert.AnError}},
		{"close", &memWriter{closeErr: assert.AnError}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			open := func(context.Context, string, core.Object) io.WriteCloser { return tt.w }
			d := NewWithOpener(open, config.DestinationConfig{Bucket: "b"}, nil)

			err := d.Write(context.Background(), core.Object{Name: "x", Data: []byte("1")})
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeDestination))
			assert.True(t, tt.w.closed)
		})
	}
}
