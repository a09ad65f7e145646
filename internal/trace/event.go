package trace

import (
	"maps"
	"time"
)

// Kind is the type of a trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1 // span start
	KindSpanEnd                   // span end
	KindPoint                     // instant event
	KindHeartbeat                 // periodic liveness signal
)

var kindNames = [...]string{"unknown", "begin", "end", "point", "heartbeat"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[0]
}

// Scope is the granularity of an event. Lower values are coarser.
type Scope uint8

const (
	ScopeDriver Scope = iota + 1 // CLI command, batch, one file
	ScopePass                    // read, lower, lift, write of one file
	ScopeModule                  // steps inside a pass
	ScopeNode                    // per function
)

var scopeNames = [...]string{"unknown", "driver", "pass", "module", "node"}

func (s Scope) String() string {
	if int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return scopeNames[0]
}

// Event is a single trace record.
type Event struct {
	Time     time.Time
	Seq      uint64 // global, monotonic
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 at the root
	GID      uint64 // goroutine of the span
	Name     string // "lower", "lift.ids", "file:shader.spv"
	Detail   string
	Extra    map[string]string
}

// Clone copies ev, Extra included, so that tracers may stamp their copy.
func (ev *Event) Clone() *Event {
	cp := *ev
	cp.Extra = maps.Clone(ev.Extra)
	return &cp
}
