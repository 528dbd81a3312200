// Package jsonl reads Datastore entities exported as newline-delimited REST
// JSON, one entity (or entity query result) per line.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/core"
	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/logger"
	"github.com/ajitpratap0/docarrow/pkg/models"
)

// MaxLineSize bounds a single entity line
const MaxLineSize = 64 << 20

// Source implements core.RecordSource over a line-delimited reader
type Source struct {
	scanner    *bufio.Scanner
	closer     io.Closer
	includeKey bool
	limit      int
	read       int
	line       int
	logger     *zap.Logger
}

// New opens cfg.Path ("-" is stdin)
func New(_ context.Context, cfg config.SourceConfig, log *zap.Logger) (core.RecordSource, error) {
	var (
		r      io.Reader = os.Stdin
		closer io.Closer
	)
	if cfg.Path != "-" {
		f, err := os.Open(cfg.Path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open entity file")
		}
		r, closer = f, f
	}

	s := NewReaderSource(r, cfg.IncludeKey, log)
	s.closer = closer
	s.limit = cfg.Limit
	s.logger.Info("reading entities", zap.String("path", cfg.Path), zap.Int("limit", cfg.Limit))
	return s, nil
}

// NewReaderSource reads entities from r. Close does not close r.
func NewReaderSource(r io.Reader, includeKey bool, log *zap.Logger) *Source {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &Source{
		scanner:    scanner,
		includeKey: includeKey,
		logger:     logger.OrNop(log).With(zap.String("component", "jsonl_source")),
	}
}

// Next implements core.RecordSource. Blank lines are skipped.
func (s *Source) Next(ctx context.Context) (models.Record, error) {
	if s.limit > 0 && s.read >= s.limit {
		return models.Record{}, io.EOF
	}
	for s.scanner.Scan() {
		s.line++
		if err := ctx.Err(); err != nil {
			return models.Record{}, err
		}
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, err := ParseEntity(line, s.includeKey)
		if err != nil {
			return models.Record{}, errors.Wrap(err, errors.ErrorTypeSource, "line "+strconv.Itoa(s.line))
		}
		s.read++
		return rec, nil
	}
	if err := s.scanner.Err(); err != nil {
		return models.Record{}, errors.Wrap(err, errors.ErrorTypeSource, "failed to read entity stream")
	}
	return models.Record{}, io.EOF
}

// Close implements core.RecordSource
func (s *Source) Close() error {
	s.logger.Debug("entity stream closed", zap.Int("records", s.read))
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
