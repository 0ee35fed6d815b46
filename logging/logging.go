// Package logging owns the process-wide structured logger used by every
// other package in this module, mirroring the way linepipes.Verbose is a
// single process-wide toggle rather than a logger threaded through call
// chains.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu  sync.Mutex
	log *zap.SugaredLogger
)

// Init installs the process-wide logger. verbose selects debug-level output;
// otherwise info and above are logged. Safe to call more than once; each
// call replaces the previous logger.
func Init(verbose bool) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = ""
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	mu.Lock()
	log = l.Sugar()
	mu.Unlock()
}

// Log returns the process-wide logger, lazily falling back to a discard
// logger if Init was never called (keeps package-level `var log = logging.Log()`
// initializers safe in tests that never call Init).
func Log() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return log
}
