// Command nial is the reference command-line driver for the
// interpreter core in the parent package, grounded on cmd/retro/main.go:
// flag.Value-based flags, a top-level read loop, and a small atExit-style
// error reporter. Everything here is policy this core deliberately
// leaves external (section 1): where workspaces live, how the prompt
// loop reads input, what "interactive" means for echoing and
// triggering.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/arrlang/nial"
	"github.com/arrlang/nial/internal/array"
	"github.com/arrlang/nial/internal/symtab"
)

// defaultWords mirrors internal/array's own NewHeap default so a bare
// invocation with no -size/+size behaves the same as the library
// default.
const defaultWords = 1 << 16

var (
	size        sizeValue
	defsFile    string
	lwsFile     string
	interactive bool
	showHelp    bool
)

// splitPlusSize scans args for a leading `+size` flag (and its value,
// either joined as `+sizeN` or as the following argument), which the
// standard flag package cannot parse on its own since it only
// recognizes `-`/`--` prefixes. It returns the remaining args with any
// `+size` occurrence removed, plus the parsed word count and whether it
// was present at all.
func splitPlusSize(args []string) (rest []string, words int, present bool, err error) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "+size":
			if i+1 >= len(args) {
				return nil, 0, false, errors.New("+size: missing value")
			}
			n, perr := parseSizeSuffix(args[i+1])
			if perr != nil {
				return nil, 0, false, perr
			}
			rest = append(append([]string{}, args[:i]...), args[i+2:]...)
			return rest, n, true, nil
		case strings.HasPrefix(a, "+size"):
			n, perr := parseSizeSuffix(strings.TrimPrefix(a, "+size"))
			if perr != nil {
				return nil, 0, false, perr
			}
			rest = append(append([]string{}, args[:i]...), args[i+1:]...)
			return rest, n, true, nil
		}
	}
	return args, 0, false, nil
}

func atExit(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "nial: %v\n", err)
	os.Exit(1)
}

func main() {
	var err error
	defer func() { atExit(err) }()

	args, plusWords, plusPresent, err := splitPlusSize(os.Args[1:])
	if err != nil {
		return
	}

	flag.Var(&size, "size", "initial heap size in words, expansion allowed up to a cap")
	flag.StringVar(&defsFile, "defs", "", "after initial workspace load, read and silently execute `F`.ndf")
	flag.StringVar(&lwsFile, "lws", "", "load a previously saved workspace from `F`.nws")
	flag.BoolVar(&interactive, "i", false, "enter interactive top-level loop (fault triggering on)")
	flag.BoolVar(&showHelp, "h", false, "print syntax and exit")

	// flag.CommandLine defaults to os.Args[1:]; feed it the args with
	// +size already stripped out instead.
	if err = flag.CommandLine.Parse(args); err != nil {
		return
	}
	if showHelp {
		flag.Usage()
		return
	}

	words := defaultWords
	expand := true
	switch {
	case plusPresent:
		words, expand = plusWords, false
	case size != 0:
		words, expand = int(size), true
	}

	var hopts []array.HeapOption
	if expand {
		hopts = append(hopts, array.WithCapacity(words, words, 1<<30))
	} else {
		hopts = append(hopts, array.WithCapacity(words, 0, words))
	}

	in := nial.New(nial.WithHeapOptions(hopts...))

	if lwsFile != "" {
		if err = in.LoadWorkspace(lwsFile + ".nws"); err != nil {
			err = errors.Wrapf(err, "loading workspace %s", lwsFile)
			return
		}
	}

	if defsFile != "" {
		if err = runDefsFile(in, defsFile); err != nil {
			return
		}
	}

	if interactive {
		in.Eval.H.SetTrigger(true)
		err = repl(in, os.Stdin, os.Stdout)
	}
}

func runDefsFile(in *nial.Interpreter, name string) error {
	f, err := os.Open(name + ".ndf")
	if err != nil {
		return errors.Wrap(err, "open failed")
	}
	defer f.Close()
	src, err := io.ReadAll(f)
	if err != nil {
		return errors.Wrap(err, "read failed")
	}
	_, err = in.Run(string(src))
	return err
}

// repl implements the top-level line-prefix conventions of section 6:
// `#` remark, `!` host command, `]name` binds the previous result.
func repl(in *nial.Interpreter, r io.Reader, w io.Writer) error {
	var last *array.Array
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "!"):
			cmd := exec.Command("sh", "-c", strings.TrimPrefix(line, "!"))
			cmd.Stdout = w
			cmd.Stderr = w
			cmd.Run()
			continue
		case strings.HasPrefix(line, "]"):
			name := strings.TrimSpace(strings.TrimPrefix(line, "]"))
			if last != nil && name != "" {
				in.Global.Intern(name).Rebind(symtab.Variable, last)
			}
			continue
		}
		val, err := in.Run(line)
		if err != nil {
			fmt.Fprintf(w, "?%v\n", err)
			continue
		}
		last = val
		if val != nil {
			fmt.Fprintln(w, displayValue(in, val))
		}
	}
	return scanner.Err()
}

// displayValue gives a minimal textual rendering of a result for the
// interactive loop; full canonical display is the deparser's job
// (section 4.H) for parse trees, but a runtime value needs its own
// rendering, not a source-level deparse.
func displayValue(in *nial.Interpreter, v *array.Array) string {
	switch v.Kind() {
	case array.Fault:
		return "?" + in.Eval.H.FaultText(v)
	case array.Boolean:
		if v.IsAtom() {
			if v.Bool(0) {
				return "true"
			}
			return "false"
		}
	}
	return fmt.Sprintf("%v", v)
}
