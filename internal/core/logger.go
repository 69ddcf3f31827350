package core

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// NewLogger builds the process logger. Output goes to path because the
// terminal UI owns stdout; an empty path logs to stderr.
func NewLogger(debug bool, path string) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, err
		}
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
