package client

import (
	"sync"
	"time"
)

// SendLogEntry tracks one outgoing message's delivery across however
// many redundant dropbox routes it has been sent through.
type SendLogEntry struct {
	Message    ClearText
	RoutesSent []Route
	Redundancy int
}

// DropboxesSent returns the targets this entry has already been routed
// to.
func (e *SendLogEntry) DropboxesSent() []ServerRecord {
	out := make([]ServerRecord, len(e.RoutesSent))
	for i, r := range e.RoutesSent {
		out[i] = r.Target
	}
	return out
}

// SendsRemaining is how many more redundant sends this entry still
// needs before it's considered delivered.
func (e *SendLogEntry) SendsRemaining() int {
	return e.Redundancy - len(e.RoutesSent)
}

// Finished reports whether the entry has been sent its full redundancy.
func (e *SendLogEntry) Finished() bool {
	return e.SendsRemaining() < 1
}

// LastSent is the timestamp of the most recent send, or the zero time
// if nothing has been sent yet.
func (e *SendLogEntry) LastSent() time.Time {
	var last time.Time
	for _, r := range e.RoutesSent {
		if r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}
	return last
}

// Targets filters candidates down to ones this entry hasn't already
// sent to.
func (e *SendLogEntry) Targets(candidates []ServerRecord) []ServerRecord {
	sent := make(map[string]bool)
	for _, r := range e.RoutesSent {
		sent[r.Target.Name] = true
	}
	var out []ServerRecord
	for _, c := range candidates {
		if !sent[c.Name] {
			out = append(out, c)
		}
	}
	return out
}

// Sent records a successful send along route.
func (e *SendLogEntry) Sent(route Route) {
	e.RoutesSent = append(e.RoutesSent, route)
}

// InvalidateRoutes drops any recorded route that reachable now reports
// as dead.
func (e *SendLogEntry) InvalidateRoutes(reachable Reachability) {
	kept := e.RoutesSent[:0]
	for _, r := range e.RoutesSent {
		if !r.IsDead(reachable) {
			kept = append(kept, r)
		}
	}
	e.RoutesSent = kept
}

// Safe reports whether a finished entry is old enough past its last
// send to be safely retired (twice the poll interval, matching the
// source's heuristic for how long a redundant send needs to land
// before the client stops worrying about it).
func (e *SendLogEntry) Safe(pollInterval time.Duration) bool {
	if !e.Finished() {
		return false
	}
	return time.Since(e.LastSent()) > 2*pollInterval
}

// SendLog is the backlog of outgoing messages still needing their
// redundant sends, plus a retired log of finished entries kept around
// until they're Safe to drop.
type SendLog struct {
	mu           sync.Mutex
	backlog      []*SendLogEntry
	complete     []*SendLogEntry
	redundancy   int
	pollInterval time.Duration
}

// NewSendLog builds an empty SendLog targeting the given send
// redundancy for every new entry, retiring finished entries once
// 2*pollInterval has passed since their last send.
func NewSendLog(redundancy int, pollInterval time.Duration) *SendLog {
	return &SendLog{redundancy: redundancy, pollInterval: pollInterval}
}

// Add enqueues a new outgoing message.
func (l *SendLog) Add(msg ClearText) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backlog = append(l.backlog, &SendLogEntry{Message: msg, Redundancy: l.redundancy})
}

// Attempt pops the next backlog entry (after invalidating its stale
// routes), calls fn on it, and requeues it unless fn leaves it
// finished. Returns false if the backlog was empty.
func (l *SendLog) Attempt(reachable Reachability, fn func(*SendLogEntry)) bool {
	l.mu.Lock()
	l.cleanupCompleteLocked(reachable)
	if len(l.backlog) == 0 {
		l.mu.Unlock()
		return false
	}
	entry := l.backlog[0]
	l.backlog = l.backlog[1:]
	l.mu.Unlock()

	entry.InvalidateRoutes(reachable)
	fn(entry)

	l.mu.Lock()
	defer l.mu.Unlock()
	if entry.Finished() {
		l.complete = append(l.complete, entry)
	} else {
		l.backlog = append(l.backlog, entry)
	}
	return true
}

func (l *SendLog) cleanupCompleteLocked(reachable Reachability) {
	var kept []*SendLogEntry
	for _, entry := range l.complete {
		entry.InvalidateRoutes(reachable)
		if !entry.Finished() {
			l.backlog = append(l.backlog, entry)
			continue
		}
		if !entry.Safe(l.pollInterval) {
			kept = append(kept, entry)
		}
	}
	l.complete = kept
}

// Empty reports whether the backlog has no pending entries.
func (l *SendLog) Empty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.backlog) == 0
}

// Len returns the number of entries awaiting their redundant sends.
func (l *SendLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.backlog)
}
