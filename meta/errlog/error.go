package errlog

import (
	"sync"

	slog "github.com/CatalogLoad/syslog"
)

const logid = "errlog: "

// Log collects block parse failures for a run. A limit of 0 means unlimited.
type Log struct {
	sync.Mutex
	errors []error
	limit  int
}

func New(limit int) *Log {
	return &Log{limit: limit}
}

// Add records err and reports whether the error limit has now been reached.
func (l *Log) Add(err error) bool {
	if err == nil {
		return l.LimitReached()
	}
	slog.Named(logid).Warnw("block rejected", "error", err)

	l.Lock()
	defer l.Unlock()
	l.errors = append(l.errors, err)
	return l.limit > 0 && len(l.errors) >= l.limit
}

func (l *Log) LimitReached() bool {
	l.Lock()
	defer l.Unlock()
	return l.limit > 0 && len(l.errors) >= l.limit
}

func (l *Log) Len() int {
	l.Lock()
	defer l.Unlock()
	return len(l.errors)
}

// List returns a copy of the recorded errors in the order they were added.
func (l *Log) List() []error {
	l.Lock()
	defer l.Unlock()
	out := make([]error, len(l.errors))
	copy(out, l.errors)
	return out
}
