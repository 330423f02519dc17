// Package nial ties together internal/scan, internal/parse, and
// internal/eval into the single mutable value section 9's design note
// calls for ("Global mutable state... bundle the heap, symbol table,
// activation stack and call stack into one explicit value threaded
// through every call, instead of package-level globals"), mirroring how
// vm.Instance bundles a VM's memory, ports and options behind a
// functional-options constructor.
package nial

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/arrlang/nial/internal/array"
	"github.com/arrlang/nial/internal/deparse"
	"github.com/arrlang/nial/internal/eval"
	"github.com/arrlang/nial/internal/parse"
	"github.com/arrlang/nial/internal/scan"
	"github.com/arrlang/nial/internal/symtab"
	"github.com/arrlang/nial/internal/wsio"
)

// Interpreter bundles the heap, the global namespace, and the evaluator
// into one explicit value. A hosting program (cmd/nial or any other
// embedder) owns one of these per independent workspace.
type Interpreter struct {
	Heap   *array.Heap
	Global *symtab.Namespace
	Eval   *eval.Interp

	deparse *deparse.Deparser
}

// Option configures an Interpreter at construction time.
type Option func(*Interpreter)

// WithHeapOptions forwards array.HeapOption values to the underlying
// heap, for sizing the backing allocator (the `-size`/`+size` flags of
// section 6 resolve to this).
func WithHeapOptions(opts ...array.HeapOption) Option {
	return func(in *Interpreter) {
		in.Heap = array.NewHeap(opts...)
	}
}

// New creates an Interpreter with a fresh heap (sized by opts, or
// defaults) and a global namespace pre-seeded with every reserved word
// (section 4.B).
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		Heap:   array.NewHeap(),
		Global: symtab.NewGlobal(),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.Eval = eval.New(in.Heap, in.Global)
	in.deparse = deparse.New(in.Heap)
	return in
}

// Run scans, parses, and evaluates text as one top-level action (a
// sequence of definitions followed by a sequence of expressions,
// section 4.D's ParseAction). It is the engine's single entry point;
// cmd/nial's REPL loop and its `-defs`/`-lws` script replays both funnel
// through this.
//
// Every non-local transfer section 7 lists — a triggered fault that
// escapes to the top, or a bare EXIT outside any loop — is caught here
// and turned into an ordinary error return rather than a panic, which
// is this core's analogue of "the top-level recovery record is reset at
// each prompt" (section 7): by construction (Apply's CurEnv/callDepth
// save-restore, via defer, in internal/eval) there is no stale
// activation or operand-stack state left behind for the next Run call
// to trip over.
func (in *Interpreter) Run(text string) (*array.Array, error) {
	toks, err := scan.ScanAll(strings.NewReader(text))
	if err != nil {
		return nil, errors.Wrap(err, "scan failed")
	}
	p := parse.New(in.Heap, in.Global, nil, toks)
	tree, err := p.ParseAction()
	if err != nil {
		return nil, errors.Wrap(err, "parse failed")
	}
	val, err := in.Eval.Eval(tree)
	if err != nil {
		if fs, ok := errors.Cause(err).(*eval.FaultSignal); ok {
			return fs.Fault, nil
		}
		return nil, err
	}
	return val, nil
}

// Deparse renders a parse tree back to canonical source text (section
// 4.H), using this Interpreter's heap to read interned phrase/token
// text.
func (in *Interpreter) Deparse(node *array.Array) (string, error) {
	return in.deparse.Deparse(node)
}

// SaveWorkspace snapshots every global variable binding to fileName in
// the .nws format (section 6).
func (in *Interpreter) SaveWorkspace(fileName string) error {
	snap := wsio.CaptureGlobal(in.Global)
	return wsio.Save(in.Heap, fileName, snap)
}

// LoadWorkspace restores global variable bindings previously written by
// SaveWorkspace, merging them into the current global namespace.
func (in *Interpreter) LoadWorkspace(fileName string) error {
	snap, err := wsio.Load(in.Heap, fileName)
	if err != nil {
		return err
	}
	wsio.Restore(in.Global, snap)
	return nil
}
