// Command cinder is the launcher for the cinder language: a REPL, a file
// runner, and a couple of diagnostic subcommands layered on top of the
// pkg/compiler + pkg/vm core. None of what lives in this file is part of
// the core itself — it only calls into pkg/compiler, pkg/gc and pkg/vm the
// same way any other embedder would.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/cinderlang/cinder/pkg/compiler"
	"github.com/cinderlang/cinder/pkg/gc"
	"github.com/cinderlang/cinder/pkg/object"
	"github.com/cinderlang/cinder/pkg/vm"
)

const version = "0.1.0"

// Exit codes follow sysexits.h-style conventions: 64 for a usage error,
// 65 for a compile-time error, 70 for a runtime error.
const (
	exitOK         = 0
	exitUsage      = 64
	exitCompileErr = 65
	exitRuntimeErr = 70
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	switch len(args) {
	case 0:
		runREPL()
		return exitOK
	case 1:
		switch args[0] {
		case "version", "-v", "--version":
			fmt.Printf("cinder %s\n", version)
			return exitOK
		case "help", "-h", "--help":
			printUsage()
			return exitOK
		default:
			return runFile(args[0])
		}
	case 2, 3:
		switch args[0] {
		case "disasm":
			return runDisasm(args[1:])
		case "compile":
			return runCompile(args[1:])
		}
		printUsage()
		return exitUsage
	default:
		printUsage()
		return exitUsage
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: cinder [script]")
	fmt.Fprintln(os.Stderr, "       cinder disasm <script|bytecode-file> [--table]")
	fmt.Fprintln(os.Stderr, "       cinder compile <script> [output.cnd]")
	fmt.Fprintln(os.Stderr, "       cinder version")
}

// runCompile compiles path and writes the resulting chunk as a .cnd file,
// letting a later `cinder <file>.cnd`-style embedder skip recompiling. This
// is file-I/O/CLI plumbing, not a core operation.
func runCompile(args []string) int {
	inputPath := args[0]
	outputPath := args[0] + ".cnd"
	if len(args) == 2 {
		outputPath = args[1]
	}

	src, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cinder: can't read file %q: %v\n", inputPath, err)
		return exitUsage
	}

	heap := gc.New(gc.DefaultConfig())
	fn, err := compiler.Compile(string(src), heap)
	if err != nil {
		reportError(err)
		return exitCompileErr
	}

	out, err := os.Create(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cinder: can't create file %q: %v\n", outputPath, err)
		return exitUsage
	}
	defer out.Close()
	if err := encodeChunkFile(out, fn); err != nil {
		fmt.Fprintf(os.Stderr, "cinder: failed to write bytecode: %v\n", err)
		return exitUsage
	}
	fmt.Printf("compiled %s -> %s\n", inputPath, outputPath)
	return exitOK
}

// errorColor is applied to compile/runtime diagnostics on stderr when it's
// a terminal; color.NoColor (set by the fatih/color package itself based on
// isatty) keeps output plain under redirection or `go test`, so the exact
// text stays exact either way.
var errorColor = color.New(color.FgRed)

func reportError(err error) {
	errorColor.Fprintln(os.Stderr, err.Error())
}

// runFile compiles and runs the script at path, returning the process exit
// code for that run. A precompiled .cnd file skips straight to the VM.
func runFile(path string) int {
	if filepath.Ext(path) == ".cnd" {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cinder: can't read file %q: %v\n", path, err)
			return exitUsage
		}
		defer f.Close()
		heap := gc.New(gc.DefaultConfig())
		fn, err := decodeChunkFile(f, heap)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cinder: bad bytecode file %q: %v\n", path, err)
			return exitUsage
		}
		machine := vm.New(heap)
		if err := machine.Interpret(fn); err != nil {
			reportError(err)
			return exitRuntimeErr
		}
		return exitOK
	}

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cinder: can't read file %q: %v\n", path, err)
		return exitUsage
	}
	return interpret(string(src))
}

// interpret compiles and runs source against a fresh heap/VM pair, printing
// to stdout/stderr and returning the exit code for that run.
func interpret(source string) int {
	heap := gc.New(gc.DefaultConfig())
	fn, err := compiler.Compile(source, heap)
	if err != nil {
		reportError(err)
		return exitCompileErr
	}

	machine := vm.New(heap)
	if err := machine.Interpret(fn); err != nil {
		reportError(err)
		return exitRuntimeErr
	}
	return exitOK
}

// runREPL reads one line, interprets it, and repeats until EOF (Ctrl+D),
// persisting history across invocations via peterh/liner the same way
// go-ethereum's console drives its own REPL loop.
func runREPL() {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := historyFilePath()
	if f, err := os.Open(historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	heap := gc.New(gc.DefaultConfig())
	machine := vm.New(heap)

	fmt.Printf("cinder %s\n", version)
	for {
		text, err := line.Prompt("> ")
		if err != nil {
			if err != io.EOF && !errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(os.Stderr, err)
			}
			break
		}
		if text == "" {
			continue
		}
		line.AppendHistory(text)

		fn, err := compiler.Compile(text, heap)
		if err != nil {
			reportError(err)
			continue
		}
		if err := machine.Interpret(fn); err != nil {
			reportError(err)
		}
	}

	if f, err := os.Create(historyPath); err == nil {
		line.WriteHistory(f)
		f.Close()
	}
}

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cinder_history"
	}
	return filepath.Join(home, ".cinder_history")
}

// runDisasm loads a script or a precompiled .cnd file, compiling the former
// on the fly, and prints its disassembly. An optional hook kept outside
// the core, for inspecting generated bytecode.
func runDisasm(args []string) int {
	path := args[0]
	table := len(args) == 2 && args[1] == "--table"

	var fn *object.Function
	if filepath.Ext(path) == ".cnd" {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cinder: can't read file %q: %v\n", path, err)
			return exitUsage
		}
		defer f.Close()
		heap := gc.New(gc.DefaultConfig())
		loaded, err := decodeChunkFile(f, heap)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cinder: bad bytecode file %q: %v\n", path, err)
			return exitUsage
		}
		fn = loaded
	} else {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cinder: can't read file %q: %v\n", path, err)
			return exitUsage
		}
		heap := gc.New(gc.DefaultConfig())
		compiled, err := compiler.Compile(string(src), heap)
		if err != nil {
			reportError(err)
			return exitCompileErr
		}
		fn = compiled
	}

	if table {
		printDisasmTable(os.Stdout, fn)
	} else {
		name := "<script>"
		if fn.Name != nil {
			name = fn.Name.Go()
		}
		fn.Chunk.Disassemble(os.Stdout, name)
	}
	return exitOK
}
