// prozip is a ZIP-style abstract machine and REPL for a minimal pure
// Prolog: unification, trailing, and backtracking over a tagged-word
// virtual machine (§1-§9).
package main

import (
	"flag"
	"fmt"
	"os"

	"prozip/compiler"
	"prozip/repl"
	"prozip/vm"
)

var (
	trace        = flag.Bool("trace", false, "print a fetch/decode trace of each instruction a query's first run executes")
	dumpBytecode = flag.Bool("dump-bytecode", false, "print the compiled bytecode for every predicate after loading the program")
)

func init() {
	flag.Parse()
}

func main() {
	args := os.Args[len(os.Args)-flag.NArg():]

	if len(args) == 0 {
		fmt.Println("Usage: prozip <program-file>")
		os.Exit(0)
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	pr := vm.NewProgram(vm.NewMemory())
	c := compiler.New(pr)
	if err := c.CompileProgram(string(source)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *dumpBytecode {
		repl.DumpBytecode(pr, os.Stdout)
	}

	if err := repl.New(pr, os.Stdout, *trace).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
