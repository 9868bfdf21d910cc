package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/sffi/backend/native"
	"github.com/wippyai/sffi/backend/wasm"
	"github.com/wippyai/sffi/dispatch"
	"github.com/wippyai/sffi/errors"
	"github.com/wippyai/sffi/library"
)

func main() {
	var (
		libPath     = flag.String("lib", "", "Path to the library (.wasm or shared object)")
		backendName = flag.String("backend", "wasm", "Backend: wasm or native")
		funcName    = flag.String("func", "", "Function to call")
		desc        = flag.String("desc", "", "Function descriptor, e.g. (i32,i32)i32")
		adapterDesc = flag.String("adapter", "", "Adapter descriptor the arguments are given in")
		argList     = flag.String("args", "", "Comma-separated arguments")
		list        = flag.Bool("list", false, "List exported symbols and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		repl        = flag.Bool("repl", false, "Line-oriented call prompt with history")
		verbose     = flag.Bool("v", false, "Debug logging to stderr")
	)
	flag.Parse()

	if *libPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: sffi -lib <path> [-backend wasm|native] -func name -desc '(i32,i32)i32' [-adapter '(f32,f32)f32'] [-args 1,2]")
		fmt.Fprintln(os.Stderr, "       sffi -lib <path> -list")
		fmt.Fprintln(os.Stderr, "       sffi -lib <path> -i  (interactive mode)")
		fmt.Fprintln(os.Stderr, "       sffi -lib <path> -repl")
		os.Exit(1)
	}

	if *verbose {
		if err := installLogger(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: -i needs a terminal on stdout")
			os.Exit(1)
		}
		if err := runInteractive(*backendName, *libPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *repl {
		if err := runREPL(*backendName, *libPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitCode(err))
		}
		return
	}

	if err := run(*backendName, *libPath, *funcName, *desc, *adapterDesc, *argList, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func installLogger() error {
	l, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	dispatch.SetLogger(l)
	library.SetLogger(l)
	wasm.SetLogger(l)
	native.SetLogger(l)
	return nil
}

// exitCode reports library errors by their numeric code.
func exitCode(err error) int {
	if c := errors.Code(err); c != 0 {
		return int(c)
	}
	return 1
}

func run(backendName, libPath, funcName, desc, adapterDesc, argList string, listOnly bool) error {
	ctx := context.Background()

	s, err := openSession(ctx, backendName, libPath)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	if listOnly {
		names, descs, err := s.symbols()
		if err != nil {
			return err
		}
		fmt.Printf("Library: %s\n\nExported symbols:\n", libPath)
		for _, n := range names {
			fmt.Printf("  %s%s\n", n, descs[n])
		}
		return nil
	}

	if funcName == "" {
		return fmt.Errorf("use -func to name the function to call")
	}

	result, err := s.call(ctx, funcName, desc, adapterDesc, splitArgs(argList))
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}
	fmt.Printf("Result: %s\n", result)
	return nil
}
