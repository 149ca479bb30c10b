package script

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zeusync/jo/internal/core/scripting/state"
)

func TestProgramString(t *testing.T) {
	p := Program{
		Declare("entity", state.Snapshot{"state": "value"}),
		Declare("entityParams", state.Snapshot{"param": "paramValue"}),
		Assign("entity", state.Snapshot{"state": "value2"}),
		Eval("1 + 1"),
		Invoke(UpdateCall("orbit", "entity", 10)),
	}
	expected := "var entity = {\"state\":\"value\"};\n" +
		"var entityParams = {\"param\":\"paramValue\"};\n" +
		"entity = {\"state\":\"value2\"};\n" +
		"1 + 1\n" +
		"orbit(entity, entityParams, 10);"
	assert.Equal(t, expected, p.String())
}

func TestUpdateCall(t *testing.T) {
	expr := UpdateCall("follow", "npc7", 42)
	assert.Equal(t, "follow", expr.Func)
	assert.Equal(t, []Arg{Ref("npc7"), Ref("npc7Params"), Int(42)}, expr.Args)
	assert.Equal(t, "follow(npc7, npc7Params, 42)", expr.String())
}

func TestStatementKindString(t *testing.T) {
	assert.Equal(t, "declare", StatementDeclare.String())
	assert.Equal(t, "call", StatementCall.String())
	assert.Equal(t, "unknown", StatementKind(0).String())
	assert.Equal(t, "<invalid statement>", Statement{}.String())
}
