package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/jo/internal/core/scripting/script"
	"github.com/zeusync/jo/internal/core/scripting/state"
)

type fakeEntity struct {
	state   state.Snapshot
	applied []state.Snapshot
}

func (f *fakeEntity) CollectState() state.Snapshot { return f.state }

func (f *fakeEntity) ApplyState(s state.Snapshot) { f.applied = append(f.applied, s) }

func newTestEngine(t *testing.T, sources ...script.Source) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	e, err := New(cfg, sources, nil)
	require.NoError(t, err)
	return e
}

func tickN(e *Engine, n int) {
	for i := 0; i < n; i++ {
		e.Tick()
	}
}

func TestRegisterEnqueuesBootstrapRecord(t *testing.T) {
	e := newTestEngine(t)
	entity := &fakeEntity{state: state.Snapshot{"state": "value"}}

	rep := e.Register("entity", state.Snapshot{"param": "paramValue"}, entity)
	require.NotNil(t, rep)

	batch, more := e.retrieve()
	require.True(t, more)
	require.Len(t, batch.Scheduled, 1)
	assert.Empty(t, batch.Updates)

	record := batch.Scheduled[0]
	assert.True(t, record.Token.IsZero())
	assert.Equal(t, script.Program{
		script.Declare("entity", state.Snapshot{"state": "value"}),
		script.Declare("entityParams", state.Snapshot{"param": "paramValue"}),
	}, record.Program)
	assert.Equal(t, "var entity = {\"state\":\"value\"};\nvar entityParams = {\"param\":\"paramValue\"};",
		record.Program.String())
}

func TestRegisterWithoutParamsOmitsParamsBinding(t *testing.T) {
	e := newTestEngine(t)
	e.Register("entity", nil, &fakeEntity{state: state.Snapshot{"state": "value"}})

	batch, _ := e.retrieve()
	require.Len(t, batch.Scheduled, 1)
	assert.Equal(t, script.Program{
		script.Declare("entity", state.Snapshot{"state": "value"}),
	}, batch.Scheduled[0].Program)
}

func TestRegisterWithoutSnapshotIsNoop(t *testing.T) {
	e := newTestEngine(t)

	rep := e.Register("ghost", state.Snapshot{"param": 1}, &fakeEntity{})
	assert.Nil(t, rep)
	assert.Equal(t, 0, e.Len())

	batch, more := e.retrieve()
	assert.True(t, more)
	assert.True(t, batch.Empty())
}

func TestRefreshEnqueuesSingleAssignment(t *testing.T) {
	e := newTestEngine(t)
	entity := &fakeEntity{state: state.Snapshot{"state": "value"}}
	e.Register("entity", state.Snapshot{"param": "paramValue"}, entity)
	_, _ = e.retrieve()

	entity.state = state.Snapshot{"state": "value2"}
	require.True(t, e.Refresh("entity", entity))

	batch, _ := e.retrieve()
	require.Len(t, batch.Scheduled, 1)
	assert.Equal(t, script.Program{
		script.Assign("entity", state.Snapshot{"state": "value2"}),
	}, batch.Scheduled[0].Program)

	rep, ok := e.Representation("entity")
	require.True(t, ok)
	assert.Equal(t, state.Snapshot{"state": "value2"}, rep.LastState())
}

func TestRefreshUnknownOrEmptyIsNoop(t *testing.T) {
	e := newTestEngine(t)
	assert.False(t, e.Refresh("missing", &fakeEntity{state: state.Snapshot{"a": 1}}))

	entity := &fakeEntity{state: state.Snapshot{"a": 1}}
	e.Register("entity", nil, entity)
	_, _ = e.retrieve()

	entity.state = nil
	assert.False(t, e.Refresh("entity", entity))
	batch, _ := e.retrieve()
	assert.True(t, batch.Empty())
}

func TestUpdatePassOnlyForScriptedEntities(t *testing.T) {
	e := newTestEngine(t)
	e.Register("A", nil, &fakeEntity{state: state.Snapshot{"script": "orbit"}})
	e.Register("B", nil, &fakeEntity{state: state.Snapshot{}})

	tickN(e, 11)

	batch, more := e.retrieve()
	require.True(t, more)
	assert.Len(t, batch.Scheduled, 2)
	require.Len(t, batch.Updates, 1)
	assert.Equal(t, "A", batch.Updates[0].ID)
	assert.Equal(t, script.UpdateCall("orbit", "A", 11), batch.Updates[0].Expression)
	assert.Equal(t, "orbit(A, AParams, 11)", batch.Updates[0].Expression.String())
}

func TestNoUpdatePassBeforeBoundary(t *testing.T) {
	e := newTestEngine(t)
	e.Register("A", nil, &fakeEntity{state: state.Snapshot{"script": "orbit"}})

	tickN(e, 9)
	batch, _ := e.retrieve()
	assert.Empty(t, batch.Updates)

	e.Tick()
	batch, _ = e.retrieve()
	require.Len(t, batch.Updates, 1)
	assert.Equal(t, script.UpdateCall("orbit", "A", 10), batch.Updates[0].Expression)

	batch, _ = e.retrieve()
	assert.Empty(t, batch.Updates, "the due flag is cleared by retrieval")
}

func TestDueBoundariesCollapseIntoOnePass(t *testing.T) {
	e := newTestEngine(t)
	e.Register("A", nil, &fakeEntity{state: state.Snapshot{"script": "orbit"}})

	tickN(e, 35)
	batch, _ := e.retrieve()
	require.Len(t, batch.Updates, 1)
	assert.Equal(t, script.UpdateCall("orbit", "A", 35), batch.Updates[0].Expression)
	assert.Equal(t, int64(1), e.Stats().Passes)
	assert.Equal(t, int64(35), e.Stats().Ticks)
}

func TestTickOffsetShiftsPass(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickOffset = 3
	e, err := New(cfg, nil, nil)
	require.NoError(t, err)
	e.Register("A", nil, &fakeEntity{state: state.Snapshot{"script": "orbit"}})

	tickN(e, 7)
	batch, _ := e.retrieve()
	require.Len(t, batch.Updates, 1)
	assert.Equal(t, script.UpdateCall("orbit", "A", 7), batch.Updates[0].Expression)
}

func TestUnregisterRemovesFromFutureBatches(t *testing.T) {
	e := newTestEngine(t)
	e.Register("A", nil, &fakeEntity{state: state.Snapshot{"script": "orbit"}})
	tickN(e, 10)
	batch, _ := e.retrieve()
	require.Len(t, batch.Updates, 1)

	assert.True(t, e.Unregister("A"))
	assert.False(t, e.Unregister("A"))
	tickN(e, 10)
	batch, _ = e.retrieve()
	assert.Empty(t, batch.Updates)
	assert.Equal(t, 0, e.Len())
}

func TestReplaceOnRegisterKeepsPosition(t *testing.T) {
	e := newTestEngine(t)
	e.Register("a", nil, &fakeEntity{state: state.Snapshot{"script": "orbit"}})
	e.Register("b", nil, &fakeEntity{state: state.Snapshot{"script": "orbit"}})
	first, _ := e.Representation("a")
	second := e.Register("a", nil, &fakeEntity{state: state.Snapshot{"script": "follow"}})

	assert.NotSame(t, first, second)
	assert.Equal(t, 2, e.Len())

	tickN(e, 10)
	batch, _ := e.retrieve()
	require.Len(t, batch.Updates, 2)
	assert.Equal(t, script.UpdateCall("follow", "a", 10), batch.Updates[0].Expression)
	assert.Equal(t, script.UpdateCall("orbit", "b", 10), batch.Updates[1].Expression)
}

func TestRetrieveAfterShutdownIsTerminal(t *testing.T) {
	e := newTestEngine(t)
	e.Register("A", nil, &fakeEntity{state: state.Snapshot{"script": "orbit"}})
	tickN(e, 10)

	e.RequestShutdown()
	e.RequestShutdown()
	for i := 0; i < 3; i++ {
		batch, more := e.retrieve()
		assert.False(t, more)
		assert.True(t, batch.Empty())
	}
}

func TestApplyUpdatesSetsStateAndCallsHook(t *testing.T) {
	e := newTestEngine(t)
	entity := &fakeEntity{state: state.Snapshot{"script": "orbit"}}
	e.Register("A", nil, entity)
	tickN(e, 10)
	batch, _ := e.retrieve()
	require.Len(t, batch.Updates, 1)

	var hooked []*Representation
	e.OnUpdate(func(rep *Representation) { hooked = append(hooked, rep) })

	result := state.Snapshot{"script": "orbit", "x": 1.5}
	e.applyUpdates([]UpdateResult{{
		ID:             "A",
		Result:         valueResult(result),
		representation: batch.Updates[0].representation,
	}})

	require.Len(t, entity.applied, 1)
	assert.Equal(t, result, entity.applied[0])
	require.Len(t, hooked, 1)
	assert.Equal(t, "A", hooked[0].ID())
	assert.Equal(t, result, hooked[0].LastState())
	assert.Equal(t, int64(1), e.Stats().Applied)
}

func TestApplyUpdatesDropsFailedAndStaleResults(t *testing.T) {
	e := newTestEngine(t)
	entity := &fakeEntity{state: state.Snapshot{"script": "orbit"}}
	e.Register("A", nil, entity)
	tickN(e, 10)
	batch, _ := e.retrieve()
	require.Len(t, batch.Updates, 1)
	old := batch.Updates[0].representation

	hooks := 0
	e.OnUpdate(func(*Representation) { hooks++ })

	e.applyUpdates([]UpdateResult{{ID: "A", Result: failedResult(errors.New("boom")), representation: old}})
	assert.Empty(t, entity.applied)

	replacement := &fakeEntity{state: state.Snapshot{"script": "orbit"}}
	e.Register("A", nil, replacement)
	e.applyUpdates([]UpdateResult{{ID: "A", Result: valueResult(state.Snapshot{"x": 1.0}), representation: old}})
	assert.Empty(t, entity.applied)
	assert.Empty(t, replacement.applied)

	e.Unregister("A")
	e.applyUpdates([]UpdateResult{{ID: "A", Result: valueResult(state.Snapshot{"x": 1.0}), representation: old}})
	assert.Equal(t, 0, hooks)
}

func TestDeliverCallbacksInvokesOnce(t *testing.T) {
	e := newTestEngine(t)
	var got []Result
	token := e.Schedule("({answer: 42})", func(r Result) { got = append(got, r) })
	fireAndForget := e.Schedule("1", nil)
	assert.False(t, token.IsZero())
	assert.True(t, fireAndForget.IsZero())

	batch, _ := e.retrieve()
	require.Len(t, batch.Scheduled, 2)
	assert.Equal(t, token, batch.Scheduled[0].Token)

	results := []CallbackResult{{Token: token, Result: valueResult(state.Snapshot{"answer": 42.0})}}
	e.deliverCallbacks(results)
	e.deliverCallbacks(results)

	require.Len(t, got, 1)
	assert.True(t, got[0].OK())
	assert.Equal(t, state.Snapshot{"answer": 42.0}, got[0].Snapshot)
}
