package nats

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/core"
	"github.com/ajitpratap0/docarrow/pkg/errors"
)

type fakeConn struct {
	msgs     []*nats.Msg
	err      error
	flushed  bool
	closed   bool
	flushErr error
}

func (f *fakeConn) PublishMsg(m *nats.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeConn) FlushWithContext(context.Context) error {
	f.flushed = true
	return f.flushErr
}

func (f *fakeConn) Close() { f.closed = true }

func TestDestination_Write(t *testing.T) {
	conn := &fakeConn{}
	d := NewWithPublisher(conn, config.DestinationConfig{Subject: "docarrow.batches"}, nil)

	err := d.Write(context.Background(), core.Object{
		Name:            "part-00002.parquet",
		ContentType:     "application/vnd.apache.parquet",
		ContentEncoding: "zstd",
		Data:            []byte("PAR1"),
		Metadata:        map[string]string{core.MetaRows: "7"},
	})
	require.NoError(t, err)
	require.Len(t, conn.msgs, 1)

	m := conn.msgs[0]
	assert.Equal(t, "docarrow.batches", m.Subject)
	assert.Equal(t, "PAR1", string(m.Data))
	assert.Equal(t, "part-00002.parquet", m.Header.Get("docarrow-name"))
	assert.Equal(t, "7", m.Header.Get(core.MetaRows))
	assert.Equal(t, "zstd", m.Header.Get("content-encoding"))

	require.NoError(t, d.Close(context.Background()))
	assert.True(t, conn.flushed)
	assert.True(t, conn.closed)
}

func TestDestination_Errors(t *testing.T) {
	conn := &fakeConn{err: nats.ErrMaxPayload, flushErr: nats.ErrConnectionClosed}
	d := NewWithPublisher(conn, config.DestinationConfig{Subject: "s"}, nil)

	err := d.Write(context.Background(), core.Object{Name: "x"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeDestination))
	assert.ErrorIs(t, err, nats.ErrMaxPayload)

	err = d.Close(context.Background())
	assert.ErrorIs(t, err, nats.ErrConnectionClosed)
	assert.True(t, conn.closed)
}
