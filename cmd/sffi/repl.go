package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

const (
	historyFile = ".sffi_history"
	replPrompt  = "sffi> "
)

// callLine is one parsed REPL call: name, optional descriptor and the
// argument list.
type callLine struct {
	name string
	desc string
	args []string
}

// parseCallLine reads "name[(args)ret] [a,b,...]".
func parseCallLine(line string) (callLine, error) {
	line = strings.TrimSpace(line)
	head, rest, _ := strings.Cut(line, " ")
	var cl callLine
	if i := strings.IndexByte(head, '('); i >= 0 {
		cl.name, cl.desc = head[:i], head[i:]
	} else {
		cl.name = head
	}
	if cl.name == "" {
		return cl, fmt.Errorf("missing function name in %q", line)
	}
	cl.args = splitArgs(rest)
	return cl, nil
}

func runREPL(backendName, libPath string) error {
	ctx := context.Background()
	s, err := openSession(ctx, backendName, libPath)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	names, descs, err := s.symbols()
	if err != nil {
		return err
	}
	ln.SetCompleter(func(line string) []string {
		var out []string
		for _, n := range names {
			if strings.HasPrefix(n, line) {
				out = append(out, n+descs[n])
			}
		}
		return out
	})

	fmt.Printf("%s [%s]. :list, :adapter <desc>, :quit\n", libPath, backendName)
	var adapterDesc string
	for {
		line, err := ln.Prompt(replPrompt)
		if stderrors.Is(err, io.EOF) || stderrors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)

		if strings.HasPrefix(line, ":") {
			cmd, arg, _ := strings.Cut(line, " ")
			switch cmd {
			case ":quit":
				return nil
			case ":list":
				for _, n := range names {
					fmt.Printf("  %s%s\n", n, descs[n])
				}
			case ":adapter":
				adapterDesc = strings.TrimSpace(arg)
			default:
				fmt.Println("unknown command. Type :quit to exit.")
			}
			continue
		}

		cl, err := parseCallLine(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		result, err := s.call(ctx, cl.name, cl.desc, adapterDesc, cl.args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Println(result)
	}
}
