package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/core"
	"github.com/ajitpratap0/docarrow/pkg/errors"
)

func sliceFactory(context.Context, config.SourceConfig, *zap.Logger) (core.RecordSource, error) {
	return core.NewSliceSource(), nil
}

func memoryFactory(context.Context, config.DestinationConfig, *zap.Logger) (core.Destination, error) {
	return core.NewMemoryDestination(), nil
}

func TestRegistry_RegisterAndCreate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSource("memory", sliceFactory))
	require.NoError(t, r.RegisterDestination("memory", memoryFactory))

	assert.True(t, r.HasSource("memory"))
	assert.True(t, r.HasDestination("memory"))
	assert.False(t, r.HasSource("kafka"))

	src, err := r.CreateSource(context.Background(), config.SourceConfig{Type: "memory"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NotNil(t, src)

	dst, err := r.CreateDestination(context.Background(), config.DestinationConfig{Type: "memory"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, dst)
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSource("memory", sliceFactory))
	err := r.RegisterSource("memory", sliceFactory)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestRegistry_UnknownAndFailingFactories(t *testing.T) {
	r := NewRegistry()
	_, err := r.CreateSource(context.Background(), config.SourceConfig{Type: "nope"}, nil)
	assert.ErrorContains(t, err, "source connector nope not found")

	boom := errors.New(errors.ErrorTypeConnection, "dial failed")
	require.NoError(t, r.RegisterDestination("broken", func(context.Context, config.DestinationConfig, *zap.Logger) (core.Destination, error) {
		return nil, boom
	}))
	_, err = r.CreateDestination(context.Background(), config.DestinationConfig{Type: "broken"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_ListSortedAndClear(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"mongodb", "datastore", "jsonl"} {
		require.NoError(t, r.RegisterSource(name, sliceFactory))
	}
	for _, name := range []string{"s3", "file", "nats"} {
		require.NoError(t, r.RegisterDestination(name, memoryFactory))
	}

	assert.Equal(t, []string{"datastore", "jsonl", "mongodb"}, r.ListSources())
	assert.Equal(t, []string{"file", "nats", "s3"}, r.ListDestinations())

	r.Clear()
	assert.Empty(t, r.ListSources())
	assert.Empty(t, r.ListDestinations())
}
