package gorun

import (
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// log is the package's ambient structured logger. Like the teacher's
// SetStructuredLogger/getGlobalLogger pair (eventloop/logging.go), this is
// a package-level global: drivers, schedulers, and the blocking pool are
// infrastructure, and every Runtime instance in a process shares the same
// logging sink unless reconfigured. Defaults to a disabled logger so the
// hot path never pays for formatting nobody reads.
var log struct {
	sync.RWMutex
	logger *logiface.Logger[*stumpy.Event]
}

func init() {
	log.logger = stumpy.L.New(
		stumpy.L.WithLevel(logiface.LevelDisabled),
	)
}

// SetLogger installs the package-wide structured logger used by every
// component of every Runtime in this process. Pass nil to restore the
// disabled default.
func SetLogger(l *logiface.Logger[*stumpy.Event]) {
	log.Lock()
	defer log.Unlock()
	if l == nil {
		l = stumpy.L.New(stumpy.L.WithLevel(logiface.LevelDisabled))
	}
	log.logger = l
}

func getLogger() *logiface.Logger[*stumpy.Event] {
	log.RLock()
	defer log.RUnlock()
	return log.logger
}

// runtimeIDCounter hands out small, human-readable identifiers for log
// correlation, rather than pointer addresses.
var runtimeIDCounter atomic.Uint64

func nextRuntimeID() uint64 { return runtimeIDCounter.Add(1) }
