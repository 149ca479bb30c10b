package engine

import (
	"github.com/google/uuid"

	"github.com/zeusync/jo/internal/core/scripting/script"
	"github.com/zeusync/jo/internal/core/scripting/state"
)

// Token identifies a pending callback on the owning goroutine. The zero Token
// marks a fire-and-forget record.
type Token uuid.UUID

func newToken() Token { return Token(uuid.New()) }

func (t Token) IsZero() bool { return t == Token(uuid.Nil) }

func (t Token) String() string { return uuid.UUID(t).String() }

// ResultKind tags the outcome of one evaluation.
type ResultKind uint8

const (
	ResultValue ResultKind = iota
	ResultFailed
)

// Result is what a script evaluation produced. Snapshot is set for
// ResultValue, Err for ResultFailed.
type Result struct {
	Kind     ResultKind
	Snapshot state.Snapshot
	Err      error
}

func (r Result) OK() bool { return r.Kind == ResultValue }

func valueResult(s state.Snapshot) Result {
	return Result{Kind: ResultValue, Snapshot: s}
}

func failedResult(err error) Result {
	return Result{Kind: ResultFailed, Err: err}
}

// Callback receives the result of a one-off program on the owning goroutine.
type Callback func(Result)

// ScheduleRecord is a one-off program queued for the worker.
type ScheduleRecord struct {
	Program script.Program
	Token   Token
}

// UpdateRecord asks the worker to run the behaviour script of one entity.
// The representation pointer is only carried back, the worker never reads it.
type UpdateRecord struct {
	ID             string
	Expression     script.Expression
	representation *Representation
}

// Batch is the unit of work handed to the worker in one retrieval.
type Batch struct {
	Scheduled []ScheduleRecord
	Updates   []UpdateRecord
}

func (b Batch) Empty() bool {
	return len(b.Scheduled) == 0 && len(b.Updates) == 0
}

// CallbackResult pairs a finished one-off record with its token.
type CallbackResult struct {
	Token  Token
	Result Result
}

// UpdateResult pairs a finished update with the representation it was built for.
type UpdateResult struct {
	ID             string
	Result         Result
	representation *Representation
}

// queue holds one-off records and the tick counter between worker cycles.
// It belongs to the owning goroutine.
type queue struct {
	scheduled []ScheduleRecord
	callbacks map[Token]Callback

	tick   int64
	every  int64
	offset int64
	due    bool
}

func newQueue(every, offset int64) *queue {
	return &queue{
		callbacks: make(map[Token]Callback),
		every:     every,
		offset:    offset,
	}
}

func (q *queue) schedule(p script.Program, cb Callback) Token {
	var token Token
	if cb != nil {
		token = newToken()
		q.callbacks[token] = cb
	}
	q.scheduled = append(q.scheduled, ScheduleRecord{Program: p, Token: token})
	return token
}

// advance moves the counter one frame and reports whether this frame made an
// update pass due.
func (q *queue) advance() bool {
	q.tick++
	if dueAt(q.tick, q.offset, q.every) {
		q.due = true
		return true
	}
	return false
}

// take empties the one-off queue and reports whether an update pass is due,
// clearing the flag.
func (q *queue) take() ([]ScheduleRecord, bool) {
	records := q.scheduled
	q.scheduled = nil
	due := q.due
	q.due = false
	return records, due
}

func (q *queue) popCallback(t Token) (Callback, bool) {
	cb, ok := q.callbacks[t]
	if ok {
		delete(q.callbacks, t)
	}
	return cb, ok
}

func dueAt(tick, offset, every int64) bool {
	return (tick+offset)%every == 0
}
