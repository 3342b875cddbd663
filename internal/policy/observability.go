package policy

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Reporter is the diagnostic sink: it records named statement pass/fail
// with a message.
type Reporter interface {
	Report(statement string, passed bool, detail string)
}

type LogReporter struct {
	logger *log.Logger
}

func NewLogReporter(logger *log.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(statement string, passed bool, detail string) {
	if r == nil || r.logger == nil {
		return
	}
	r.logger.Printf("policy_statement name=%s passed=%t detail=%q", statement, passed, detail)
}

type StatementLatencyObserver interface {
	ObserveStatementLatency(statement string, duration time.Duration)
}

type StatementLatencyLogger struct {
	logger *log.Logger
}

func NewStatementLatencyLogger(logger *log.Logger) *StatementLatencyLogger {
	return &StatementLatencyLogger{logger: logger}
}

func (l *StatementLatencyLogger) ObserveStatementLatency(statement string, duration time.Duration) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf("policy_statement_latency statement=%s duration_ms=%.3f", statement, float64(duration.Microseconds())/1000.0)
}

// AsyncStatementLatencyObserver decouples latency recording from the
// evaluation path. Events beyond the buffer are dropped, not blocked on.
type AsyncStatementLatencyObserver struct {
	next    StatementLatencyObserver
	events  chan statementLatencyEvent
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

type statementLatencyEvent struct {
	statement string
	duration  time.Duration
}

func NewAsyncStatementLatencyObserver(next StatementLatencyObserver, buffer int) *AsyncStatementLatencyObserver {
	if buffer <= 0 {
		buffer = 1
	}

	o := &AsyncStatementLatencyObserver{
		next:   next,
		events: make(chan statementLatencyEvent, buffer),
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for ev := range o.events {
			if o.next == nil {
				continue
			}
			o.next.ObserveStatementLatency(ev.statement, ev.duration)
		}
	}()

	return o
}

func (o *AsyncStatementLatencyObserver) ObserveStatementLatency(statement string, duration time.Duration) {
	if o == nil {
		return
	}
	o.mu.RLock()
	if o.closed {
		o.mu.RUnlock()
		o.dropped.Add(1)
		return
	}
	select {
	case o.events <- statementLatencyEvent{statement: statement, duration: duration}:
	default:
		o.dropped.Add(1)
	}
	o.mu.RUnlock()
}

func (o *AsyncStatementLatencyObserver) Dropped() uint64 {
	if o == nil {
		return 0
	}
	return o.dropped.Load()
}

func (o *AsyncStatementLatencyObserver) Close() {
	if o == nil {
		return
	}
	o.once.Do(func() {
		o.mu.Lock()
		o.closed = true
		close(o.events)
		o.mu.Unlock()
		o.wg.Wait()
	})
}
