package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// suiteTimeout bounds every test in a ConversionSuite
const suiteTimeout = 2 * time.Minute

// ConversionSuite is a testify suite for end-to-end conversion runs. Each
// suite gets a private working directory holding its inputs and outputs.
type ConversionSuite struct {
	suite.Suite

	ctx     context.Context
	cancel  context.CancelFunc
	workDir string
	started time.Time
}

// SetupSuite creates the working directory and the suite context
func (s *ConversionSuite) SetupSuite() {
	s.started = time.Now()
	s.ctx, s.cancel = context.WithTimeout(context.Background(), suiteTimeout)

	dir, err := os.MkdirTemp("", "docarrow-run-*")
	s.Require().NoError(err)
	s.workDir = dir
}

// TearDownSuite removes the working directory
func (s *ConversionSuite) TearDownSuite() {
	s.cancel()
	if s.workDir != "" {
		_ = os.RemoveAll(s.workDir)
	}
	s.T().Logf("conversion suite finished in %v", time.Since(s.started))
}

// Context returns the suite context
func (s *ConversionSuite) Context() context.Context {
	return s.ctx
}

// Path joins elem under the working directory
func (s *ConversionSuite) Path(elem ...string) string {
	return filepath.Join(append([]string{s.workDir}, elem...)...)
}

// WriteEntities writes n UserEntities lines to rel and returns the full path
func (s *ConversionSuite) WriteEntities(rel string, n int) string {
	path := s.Path(rel)
	s.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o755))
	s.Require().NoError(os.WriteFile(path, []byte(UserEntities(n)), 0o600))
	return path
}

// ReadOutput reads a file written by a run
func (s *ConversionSuite) ReadOutput(path string) []byte {
	data, err := os.ReadFile(path) //nolint:gosec // test output path
	s.Require().NoError(err)
	return data
}

// SkipShort skips end-to-end tests under -short
func SkipShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping end-to-end conversion in short mode")
	}
}
