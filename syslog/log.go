package syslog

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	logr = zap.NewNop().Sugar()
)

// Init builds the process wide logger. mode "prod"/"production" selects json output,
// anything else the console friendly development config. Until Init is called all
// logging is discarded.
func Init(mode string, debug bool) error {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	SetLogger(l)
	return nil
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	logr = l.Sugar()
	mu.Unlock()
}

func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = logr.Sync()
}

// Named returns a structured logger for a component. The prefix convention of Log
// ("loader: ") is accepted and trimmed.
func Named(prefix string) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logr.Named(component(prefix))
}

// Log writes a debug line under the component named by prefix.
func Log(prefix string, s string, panic ...bool) {
	mu.RLock()
	l := logr
	mu.RUnlock()

	if len(panic) != 0 && panic[0] {
		l.Named(component(prefix)).Panic(s)
		return
	}
	l.Named(component(prefix)).Debug(s)
}

func component(prefix string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(prefix), ":"))
}
