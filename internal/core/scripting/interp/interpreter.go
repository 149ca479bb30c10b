// Package interp wraps the JavaScript runtime behaviour scripts run in.
//
// An Interpreter is not safe for concurrent use. The engine creates exactly one
// per worker goroutine and never hands it to anyone else.
package interp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aquilax/go-perlin"
	"github.com/dop251/goja"

	"github.com/zeusync/jo/internal/core/observability/log"
	"github.com/zeusync/jo/internal/core/scripting/script"
	"github.com/zeusync/jo/internal/core/scripting/state"
)

// Options tune the bootstrap namespace.
type Options struct {
	Logger    log.Log
	NoiseSeed int64
}

type Interpreter struct {
	rt        *goja.Runtime
	logger    log.Log
	stringify goja.Callable
	parse     goja.Callable
}

// New creates a runtime seeded with the bootstrap namespace: console.log,
// an empty module.exports and the jo helper object.
func New(opts Options) *Interpreter {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	rt := goja.New()
	i := &Interpreter{
		rt:     rt,
		logger: logger,
	}

	jsonObject := rt.Get("JSON").ToObject(rt)
	i.stringify, _ = goja.AssertFunction(jsonObject.Get("stringify"))
	i.parse, _ = goja.AssertFunction(jsonObject.Get("parse"))

	console := rt.NewObject()
	_ = console.Set("log", i.consoleLog)
	_ = rt.Set("console", console)

	module := rt.NewObject()
	_ = module.Set("exports", rt.NewObject())
	_ = rt.Set("module", module)

	noise := perlin.NewPerlin(2, 2, 3, opts.NoiseSeed)
	helpers := rt.NewObject()
	_ = helpers.Set("noise", func(x, y float64) float64 {
		return noise.Noise2D(x, y)
	})
	_ = rt.Set("jo", helpers)

	return i
}

// Install runs compiled modules in order. Module scripts have their
// module.exports promoted to globals; inline scripts are bound under their name.
// A module that throws is skipped and reported; the others still install.
func (i *Interpreter) Install(modules []Module) error {
	var all error
	for _, m := range modules {
		if err := i.install(m); err != nil {
			i.logger.Warn("Script install failed",
				log.String("script", m.Source.Name),
				log.Error(err))
			all = errors.Join(all, err)
			continue
		}
		i.logger.Debug("Script installed",
			log.String("script", m.Source.Name),
			log.Uint64("checksum", m.Source.Checksum))
	}
	return all
}

func (i *Interpreter) install(m Module) (err error) {
	defer i.recoverInto(&err, ErrInstall)

	if m.Source.Kind == script.KindInline {
		value, err := i.rt.RunProgram(m.program)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInstall, m.Source.Name, err)
		}
		return i.rt.Set(m.Source.Name, value)
	}

	module := i.rt.Get("module").ToObject(i.rt)
	if err := module.Set("exports", i.rt.NewObject()); err != nil {
		return err
	}
	if _, err := i.rt.RunProgram(m.program); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInstall, m.Source.Name, err)
	}
	exports := module.Get("exports")
	if exports == nil || goja.IsUndefined(exports) || goja.IsNull(exports) {
		return nil
	}
	obj := exports.ToObject(i.rt)
	for _, key := range obj.Keys() {
		if err := i.rt.Set(key, obj.Get(key)); err != nil {
			return err
		}
	}
	return nil
}

// Run evaluates a program statement by statement and converts the value of the
// last statement into a snapshot.
func (i *Interpreter) Run(p script.Program) (result state.Snapshot, err error) {
	defer i.recoverInto(&err, ErrEvaluation)

	var last goja.Value
	for _, stmt := range p {
		last, err = i.exec(stmt)
		if err != nil {
			return nil, err
		}
	}
	return i.toSnapshot(last)
}

// Exec evaluates a program for its side effects only; its value is discarded.
func (i *Interpreter) Exec(p script.Program) (err error) {
	defer i.recoverInto(&err, ErrEvaluation)

	for _, stmt := range p {
		if _, err = i.exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Call evaluates a single expression.
func (i *Interpreter) Call(expr script.Expression) (result state.Snapshot, err error) {
	defer i.recoverInto(&err, ErrEvaluation)

	value, err := i.call(expr)
	if err != nil {
		return nil, err
	}
	return i.toSnapshot(value)
}

// Lookup returns the global binding name as a snapshot.
func (i *Interpreter) Lookup(name string) (state.Snapshot, error) {
	return i.toSnapshot(i.rt.Get(name))
}

// Defined reports whether a global binding exists.
func (i *Interpreter) Defined(name string) bool {
	v := i.rt.Get(name)
	return v != nil && !goja.IsUndefined(v)
}

func (i *Interpreter) exec(stmt script.Statement) (goja.Value, error) {
	switch stmt.Kind {
	case script.StatementDeclare, script.StatementAssign:
		if stmt.Name == "" {
			return nil, fmt.Errorf("%w: binding without a name", ErrInvalidStatement)
		}
		value, err := i.fromSnapshot(stmt.Value)
		if err != nil {
			return nil, err
		}
		if err := i.rt.Set(stmt.Name, value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEvaluation, err)
		}
		return value, nil
	case script.StatementEval:
		value, err := i.rt.RunString(stmt.Source)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEvaluation, err)
		}
		return value, nil
	case script.StatementCall:
		return i.call(stmt.Call)
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrInvalidStatement, stmt.Kind)
	}
}

func (i *Interpreter) call(expr script.Expression) (goja.Value, error) {
	fn, ok := goja.AssertFunction(i.rt.Get(expr.Func))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndefinedFunction, expr.Func)
	}
	args := make([]goja.Value, len(expr.Args))
	for n, arg := range expr.Args {
		switch arg.Kind {
		case script.ArgRef:
			v := i.rt.Get(arg.Name)
			if v == nil {
				v = goja.Undefined()
			}
			args[n] = v
		case script.ArgInt:
			args[n] = i.rt.ToValue(arg.Int)
		default:
			return nil, fmt.Errorf("%w: argument kind %d", ErrInvalidStatement, arg.Kind)
		}
	}
	value, err := fn(goja.Undefined(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEvaluation, expr.Func, err)
	}
	return value, nil
}

// fromSnapshot builds a plain JS object. Going through JSON.parse keeps the
// runtime from holding references to Go maps owned by other goroutines.
func (i *Interpreter) fromSnapshot(s state.Snapshot) (goja.Value, error) {
	if s == nil {
		return goja.Null(), nil
	}
	data, err := s.Encode()
	if err != nil {
		return nil, err
	}
	value, err := i.parse(goja.Undefined(), i.rt.ToValue(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEvaluation, err)
	}
	return value, nil
}

func (i *Interpreter) toSnapshot(v goja.Value) (state.Snapshot, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, fmt.Errorf("%w: no value", ErrMalformedResult)
	}
	encoded, err := i.stringify(goja.Undefined(), v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if goja.IsUndefined(encoded) {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResult, v.String())
	}
	snapshot, err := state.Parse([]byte(encoded.String()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	return snapshot, nil
}

// consoleLog mirrors console.log(fmt, a, b, c); undefined arguments are dropped.
func (i *Interpreter) consoleLog(call goja.FunctionCall) goja.Value {
	parts := make([]string, 0, len(call.Arguments))
	for _, arg := range call.Arguments {
		if arg == nil || goja.IsUndefined(arg) {
			continue
		}
		parts = append(parts, arg.String())
	}
	i.logger.Info(strings.Join(parts, " "), log.Bool("script", true))
	return goja.Undefined()
}

func (i *Interpreter) recoverInto(err *error, kind error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: panic: %v", kind, r)
	}
}
