// Package script provides the command language of the interactive
// shell: a small Lisp bound to a maker, so the pipeline can be driven
// line by line or from script files.
package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/mcattow/crucible/pkg/maker"
)

// EvalError represents a non-fatal error encountered during
// evaluation, such as a parse error or a failed pipeline stage.
type EvalError struct {
	Line    int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter. Each call to Eval creates a
// fresh sandboxed environment; all persistent state lives in the
// maker the engine is bound to.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	maker      *maker.Maker
}

// New returns an engine driving m.
func New(m *maker.Maker) *Engine {
	return &Engine{maker: m}
}

// Eval runs source against the maker and returns the printed form of
// the last value.
//
// Return semantics:
//   - On success: output + nil errors + nil error
//   - On parse/eval failure: "" + eval errors + nil error
//   - On fatal failure (timeout, panic): "" + nil + error
func (e *Engine) Eval(source string) (string, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		out, evalErrs, err := e.eval(source)
		ch <- evalResult{out: out, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

// eval performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) eval(source string) (string, []EvalError, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil, nil
	}

	// Sandbox mode keeps user code away from the filesystem and
	// syscalls; the registered builtins are the only way out.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, e.maker)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return "", parseZygomysError(err), nil
	}

	res, err := env.Run()
	if err != nil {
		return "", parseZygomysError(err), nil
	}
	if res == nil || res == zygo.SexpNull {
		return "", nil, nil
	}
	return res.SexpString(nil), nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more
// EvalError values, extracting line numbers where the message has
// them.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	return []EvalError{{Line: 0, Message: strings.TrimSpace(msg)}}
}
