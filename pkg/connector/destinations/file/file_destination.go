// Package file writes serialized batches to the local filesystem.
package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/core"
	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/logger"
)

// Destination writes each object to the path named by the object
type Destination struct {
	mu      sync.Mutex
	written []string
	closed  bool
	logger  *zap.Logger
}

// New creates a file destination
func New(_ context.Context, _ config.DestinationConfig, log *zap.Logger) (core.Destination, error) {
	return &Destination{
		logger: logger.OrNop(log).With(zap.String("component", "file_destination")),
	}, nil
}

// Write implements core.Destination. The file appears atomically through a
// rename from a temporary file in the same directory.
func (d *Destination) Write(ctx context.Context, obj core.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New(errors.ErrorTypeDestination, "file destination is closed")
	}

	dir := filepath.Dir(obj.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create output directory").
			WithDetail("dir", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(obj.Name)+".*")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create temporary file")
	}
	if _, err := tmp.Write(obj.Data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write file").WithDetail("path", obj.Name)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close file").WithDetail("path", obj.Name)
	}
	if err := os.Rename(tmp.Name(), obj.Name); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to rename file").WithDetail("path", obj.Name)
	}

	d.written = append(d.written, obj.Name)
	d.logger.Debug("file written", zap.String("path", obj.Name), zap.Int("bytes", len(obj.Data)))
	return nil
}

// Close implements core.Destination
func (d *Destination) Close(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.logger.Info("file destination closed", zap.Strings("files", d.written))
	return nil
}

// Written returns the paths written so far
func (d *Destination) Written() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.written...)
}
