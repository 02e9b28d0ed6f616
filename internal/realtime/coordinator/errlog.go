package coordinator

import (
	"sync"

	"farmstand-realtime/internal/realtime"
)

// errorLog keeps the most recent handler errors.
type errorLog struct {
	mu    sync.Mutex
	buf   []realtime.HandlerError
	next  int
	count int
	total int
}

func newErrorLog(size int) *errorLog {
	return &errorLog{buf: make([]realtime.HandlerError, size)}
}

func (l *errorLog) add(e realtime.HandlerError) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf[l.next] = e
	l.next = (l.next + 1) % len(l.buf)
	if l.count < len(l.buf) {
		l.count++
	}
	l.total++
}

// snapshot returns the retained errors, oldest first.
func (l *errorLog) snapshot() []realtime.HandlerError {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]realtime.HandlerError, 0, l.count)
	start := (l.next - l.count + len(l.buf)) % len(l.buf)
	for i := 0; i < l.count; i++ {
		out = append(out, l.buf[(start+i)%len(l.buf)])
	}
	return out
}

func (l *errorLog) recorded() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}
