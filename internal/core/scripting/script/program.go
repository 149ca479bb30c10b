package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zeusync/jo/internal/core/scripting/state"
)

// StatementKind tags the variant held by a Statement.
type StatementKind uint8

const (
	// StatementDeclare introduces a global binding holding a snapshot.
	StatementDeclare StatementKind = iota + 1
	// StatementAssign overwrites an existing global binding.
	StatementAssign
	// StatementEval evaluates raw source text.
	StatementEval
	// StatementCall invokes a global function through the interpreter's call mechanism.
	StatementCall
)

func (k StatementKind) String() string {
	switch k {
	case StatementDeclare:
		return "declare"
	case StatementAssign:
		return "assign"
	case StatementEval:
		return "eval"
	case StatementCall:
		return "call"
	default:
		return "unknown"
	}
}

// Statement is one unit of a Program.
type Statement struct {
	Kind StatementKind

	// Name and Value are set for StatementDeclare and StatementAssign.
	Name  string
	Value state.Snapshot

	// Source is set for StatementEval.
	Source string

	// Call is set for StatementCall.
	Call Expression
}

// Declare binds name to value in the interpreter namespace.
func Declare(name string, value state.Snapshot) Statement {
	return Statement{Kind: StatementDeclare, Name: name, Value: value}
}

// Assign overwrites the binding name with value.
func Assign(name string, value state.Snapshot) Statement {
	return Statement{Kind: StatementAssign, Name: name, Value: value}
}

// Eval evaluates source in the interpreter namespace.
func Eval(source string) Statement {
	return Statement{Kind: StatementEval, Source: source}
}

// Invoke calls expr.
func Invoke(expr Expression) Statement {
	return Statement{Kind: StatementCall, Call: expr}
}

func (s Statement) String() string {
	switch s.Kind {
	case StatementDeclare:
		return fmt.Sprintf("var %s = %s;", s.Name, s.Value)
	case StatementAssign:
		return fmt.Sprintf("%s = %s;", s.Name, s.Value)
	case StatementEval:
		return s.Source
	case StatementCall:
		return s.Call.String() + ";"
	default:
		return "<invalid statement>"
	}
}

// Program is an ordered list of statements evaluated as one unit. Its result
// is the value of the last statement.
type Program []Statement

func (p Program) String() string {
	lines := make([]string, len(p))
	for i, stmt := range p {
		lines[i] = stmt.String()
	}
	return strings.Join(lines, "\n")
}

// ArgKind tags the variant held by an Arg.
type ArgKind uint8

const (
	// ArgRef reads a global binding; a missing binding evaluates to undefined.
	ArgRef ArgKind = iota + 1
	// ArgInt is an integer literal.
	ArgInt
)

// Arg is one argument of an Expression.
type Arg struct {
	Kind ArgKind
	Name string
	Int  int64
}

// Ref refers to the global binding name.
func Ref(name string) Arg {
	return Arg{Kind: ArgRef, Name: name}
}

// Int is an integer literal argument.
func Int(n int64) Arg {
	return Arg{Kind: ArgInt, Int: n}
}

func (a Arg) String() string {
	if a.Kind == ArgInt {
		return strconv.FormatInt(a.Int, 10)
	}
	return a.Name
}

// Expression is a call of the global function Func with Args.
type Expression struct {
	Func string
	Args []Arg
}

// Call builds an Expression.
func Call(fn string, args ...Arg) Expression {
	return Expression{Func: fn, Args: args}
}

func (e Expression) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return e.Func + "(" + strings.Join(args, ", ") + ")"
}

// ParamsBinding is the name of the global holding an entity's params.
func ParamsBinding(id string) string {
	return id + "Params"
}

// UpdateCall is the expression that advances entity id by one step of script.
func UpdateCall(script, id string, tick int64) Expression {
	return Call(script, Ref(id), Ref(ParamsBinding(id)), Int(tick))
}
