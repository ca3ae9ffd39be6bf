// Package repl drives the interactive read-compile-run-print loop of
// §6.3: one line-edited query at a time against a Program that persists
// across queries, with the code area and constant pool rolled back to
// the program-only memento after each one.
package repl

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"prozip/compiler"
	"prozip/vm"
)

// lineReader is the one readline.Instance method runQuery needs — a
// narrow seam so tests can drive the ";"-redo protocol with a fake
// reader instead of a real terminal.
type lineReader interface {
	Readline() (string, error)
}

// REPL owns the shared Program/Compiler a session's queries compile
// into, and the writer its answers and diagnostics go to.
type REPL struct {
	pr    *vm.Program
	c     *compiler.Compiler
	out   io.Writer
	trace bool
}

// New returns a REPL over an already-compiled Program. trace enables the
// per-instruction execution trace on a query's first run (§3
// "-trace CLI flag").
func New(pr *vm.Program, out io.Writer, trace bool) *REPL {
	return &REPL{pr: pr, c: compiler.New(pr), out: out, trace: trace}
}

// Run reads queries from the terminal until "halt", end-of-file, or a
// fatal read error (§6.3).
func (r *REPL) Run() error {
	rl, err := readline.New("?- ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == io.EOF {
			return nil
		}
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "halt" {
			return nil
		}
		r.runQuery(rl, line)
	}
}

// runQuery compiles and runs one query line, rolling the program back to
// its pre-query memento once the query (and all of its redos) are done.
func (r *REPL) runQuery(rl lineReader, line string) {
	if !strings.HasSuffix(line, ".") {
		line += "."
	}
	memento := r.pr.CreateMemento()
	defer r.pr.SetMemento(memento)

	queryAddr, vars, err := r.c.CompileQuery(line)
	if err != nil {
		fmt.Fprintf(r.out, "%s\n", err)
		return
	}

	m := vm.NewMachine(r.pr)
	m.Reset(queryAddr)

	solved, err := r.runTraced(m)
	for {
		if err != nil {
			if errors.Is(err, vm.ErrNoMoreAnswers) {
				fmt.Fprintf(r.out, "no\n")
				return
			}
			fmt.Fprintf(r.out, "%s\n", err)
			return
		}
		if !solved {
			fmt.Fprintf(r.out, "no\n")
			return
		}

		bindings := m.Answer(vars)
		if len(bindings) == 0 {
			fmt.Fprintf(r.out, "yes\n")
			return
		}
		fmt.Fprintf(r.out, "%s ", formatBindings(bindings))

		again, rerr := rl.Readline()
		if rerr != nil || strings.TrimSpace(again) != ";" {
			fmt.Fprintf(r.out, "yes\n")
			return
		}
		solved, err = m.Redo()
	}
}

func formatBindings(bindings []vm.Binding) string {
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		parts[i] = fmt.Sprintf("%s = %s", b.Name, vm.FormatTerm(b.Term))
	}
	return strings.Join(parts, " ")
}

// runTraced runs the query's first attempt, printing a fetch/decode
// trace line before every instruction when the REPL was built with
// trace enabled (§3 "-trace CLI flag"). Only this first attempt is
// traceable from outside package vm — Machine.Redo folds its backtrack
// step and resumed run into one call, so a ";" redo always runs silently
// even in trace mode.
func (r *REPL) runTraced(m *vm.Machine) (solved bool, err error) {
	if !r.trace {
		return m.Run()
	}
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("%v", rec)
			}
		}
	}()
	for {
		op := m.Program.FetchOpcode(m.PC)
		fmt.Fprintf(r.out, "trace: pc=%d mode=%s op=%s a=%d\n", m.PC, m.PM, op, m.A)
		if m.Step() {
			return true, nil
		}
	}
}
