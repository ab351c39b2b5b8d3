package gorun

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// getGoroutineID extracts the calling goroutine's id by parsing the
// header line runtime.Stack produces, the same trick the teacher uses to
// tell goroutines apart (eventloop/loop.go's getGoroutineID/isLoopThread)
// — Go has no public goroutine-local storage, so this is the idiomatic
// stand-in for the thread-local stack spec.md §3/§4.11 describes.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}

// contextFrame is one entry in a goroutine's Context stack (spec.md §3,
// C11). inTask is set only while a threaded- or basic-scheduler worker is
// running a task body: it marks "this goroutine owns no run ticket to
// spare", which is the condition the threaded BlockOn rejects through
// checkNotInTask (spec.md §4.11, §7 kind 5); the Basic BlockOn does not
// check it. worker is purely descriptive, used in the resulting
// ReentrantBlockOnError message.
type contextFrame struct {
	handle *Handle
	inTask bool
	worker string
}

var (
	ctxMu    sync.Mutex
	ctxStack = make(map[uint64][]*contextFrame)
)

func pushContext(frame *contextFrame) uint64 {
	gid := getGoroutineID()
	ctxMu.Lock()
	ctxStack[gid] = append(ctxStack[gid], frame)
	ctxMu.Unlock()
	return gid
}

func popContext(gid uint64) {
	ctxMu.Lock()
	defer ctxMu.Unlock()
	stack := ctxStack[gid]
	if len(stack) == 0 {
		return
	}
	stack = stack[:len(stack)-1]
	if len(stack) == 0 {
		delete(ctxStack, gid)
	} else {
		ctxStack[gid] = stack
	}
}

func currentFrame() *contextFrame {
	gid := getGoroutineID()
	ctxMu.Lock()
	defer ctxMu.Unlock()
	stack := ctxStack[gid]
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

// currentHandle returns the Handle installed on the calling goroutine's
// Context, or nil if none is entered (spec.md §7 kind 2, "not in
// runtime").
func currentHandle() *Handle {
	f := currentFrame()
	if f == nil {
		return nil
	}
	return f.handle
}

// requireRuntime returns the ambient Handle or ErrNotInRuntime.
func requireRuntime() (*Handle, error) {
	h := currentHandle()
	if h == nil {
		return nil, ErrNotInRuntime
	}
	return h, nil
}

// checkNotInTask panics with ReentrantBlockOnError if the calling
// goroutine is currently running task code (spec.md Testable Property 8).
func checkNotInTask() {
	if f := currentFrame(); f != nil && f.inTask {
		panic(&ReentrantBlockOnError{Worker: f.worker})
	}
}
