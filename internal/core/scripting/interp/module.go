package interp

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/zeusync/jo/internal/core/scripting/script"
)

// Module is a compiled Source. Compiled programs carry no runtime state, so
// compilation happens on the constructing goroutine and the worker only runs them.
type Module struct {
	Source  script.Source
	program *goja.Program
}

// Compile compiles every source. The first syntax error aborts compilation.
func Compile(sources []script.Source) ([]Module, error) {
	modules := make([]Module, 0, len(sources))
	for _, src := range sources {
		code := src.Code
		if src.Kind == script.KindInline {
			code = "(" + code + ")"
		}
		program, err := goja.Compile(src.Path, code, false)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCompile, src.Name, err)
		}
		modules = append(modules, Module{Source: src, program: program})
	}
	return modules, nil
}
