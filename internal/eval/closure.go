package eval

import (
	"github.com/pkg/errors"

	"github.com/arrlang/nial/internal/array"
	"github.com/arrlang/nial/internal/parse"
)

// closures is the side table backing the closure node's captured
// environment. A parse-tree node's fields must themselves be
// *array.Array (section 3), which cannot carry a raw []*Frame; storing
// an integer handle in the node and the real chain here is the same
// technique internal/parse's NamespaceOf registry uses, and it plays
// the same role the original's snapshotted-stack-pointers play: keeping
// the captured activation frames reachable after their defining call
// returns, without a single shared linear activation array (section
// 4.G's "snapshotted-sps", reinterpreted for per-call Go frames).
var closureEnvs = map[int64]Env{}
var nextClosureID int64

// makeClosure evaluates an OPERATION/TRANSFORMER literal to its value:
// a closure over the environment presently executing, unless that
// environment is empty, in which case the bare static node already
// stands for itself (step 1 of the closure construction algorithm,
// section 4.G) and no closure wrapper is needed.
func (in *Interp) makeClosure(node *array.Array) (*array.Array, error) {
	if len(in.CurEnv) == 0 {
		return node, nil
	}
	return in.closeOver(node)
}

func (in *Interp) closeOver(opNode *array.Array) (*array.Array, error) {
	id := nextClosureID
	nextClosureID++
	closureEnvs[id] = in.CurEnv // share frame pointers, not a deep copy
	return parse.NewNode(in.H, parse.TagClosure, opNode, in.H.IntScalar(id), in.H.IntScalar(int64(len(in.CurEnv))))
}

// prepareOperand implements the closure-construction algorithm of
// section 4.G for a value about to be used as an operation/transformer
// operand (a transformer's argument, or an atlas/composition branch
// that embeds one): basic primitives and already-global values stand
// for themselves; atlas/composition recurse into their branches; only
// an operand whose free variables reach into the presently executing
// call's locals needs an actual closure.
func (in *Interp) prepareOperand(val *array.Array) (*array.Array, error) {
	if val == nil || val.Kind() != array.Mixed || val.Tally() == 0 {
		return val, nil
	}
	if len(in.CurEnv) == 0 {
		return val, nil
	}
	switch parse.TagOf(val) {
	case parse.TagBasic:
		return val, nil
	case parse.TagVariable:
		// A global-named operation (nsIndex -1) stands for itself.
		if parse.Field(val, 0).Int(0) < 0 {
			return val, nil
		}
		return in.closeOver(val)
	case parse.TagAtlas:
		branches := make([]*array.Array, parse.NumFields(val))
		changed := false
		for i := range branches {
			b, err := in.prepareOperand(parse.Field(val, i))
			if err != nil {
				return nil, err
			}
			if b != parse.Field(val, i) {
				changed = true
			}
			branches[i] = b
		}
		if !changed {
			return val, nil
		}
		return parse.NewNode(in.H, parse.TagAtlas, branches...)
	case parse.TagComposition:
		left, err := in.prepareOperand(parse.Field(val, 0))
		if err != nil {
			return nil, err
		}
		right, err := in.prepareOperand(parse.Field(val, 1))
		if err != nil {
			return nil, err
		}
		if left == parse.Field(val, 0) && right == parse.Field(val, 1) {
			return val, nil
		}
		return parse.NewNode(in.H, parse.TagComposition, left, right)
	case parse.TagVcurried:
		inner := parse.Field(val, 0)
		if parse.TagOf(inner) == parse.TagBasic {
			return val, nil
		}
		if parse.TagOf(inner) == parse.TagVariable && parse.Field(inner, 0).Int(0) < 0 {
			return val, nil
		}
		return in.closeOver(val)
	case parse.TagOpform, parse.TagTrform:
		return in.closeOver(val)
	default:
		return val, nil
	}
}

// Apply implements the operation-application protocol of section 4.E's
// apply bullets, dispatching on opVal's evaluated form.
func (in *Interp) Apply(opVal, arg *array.Array) (*array.Array, error) {
	if opVal == nil || opVal.Kind() != array.Mixed || opVal.Tally() == 0 {
		return nil, errors.New("apply: not an operation value")
	}
	switch parse.TagOf(opVal) {
	case parse.TagBasic:
		return in.applyBasic(opVal, arg)

	case parse.TagCurried:
		left, err := in.Eval(parse.Field(opVal, 1))
		if err != nil {
			return nil, err
		}
		pair, err := in.implodeList([]*array.Array{left, arg})
		if err != nil {
			return nil, err
		}
		inner, err := in.Eval(parse.Field(opVal, 0))
		if err != nil {
			return nil, err
		}
		return in.Apply(inner, pair)

	case parse.TagVcurried:
		left := parse.Field(opVal, 1)
		pair, err := in.implodeList([]*array.Array{left, arg})
		if err != nil {
			return nil, err
		}
		inner, err := in.Eval(parse.Field(opVal, 0))
		if err != nil {
			return nil, err
		}
		return in.Apply(inner, pair)

	case parse.TagTransform:
		trVal := parse.Field(opVal, 0)
		opArgVal := parse.Field(opVal, 1)
		return in.ApplyTransform(trVal, opArgVal, arg)

	case parse.TagComposition:
		rightVal, err := in.Eval(parse.Field(opVal, 1))
		if err != nil {
			return nil, err
		}
		mid, err := in.Apply(rightVal, arg)
		if err != nil {
			return nil, err
		}
		leftVal, err := in.Eval(parse.Field(opVal, 0))
		if err != nil {
			return nil, err
		}
		return in.Apply(leftVal, mid)

	case parse.TagAtlas:
		n := parse.NumFields(opVal)
		results := make([]*array.Array, n)
		for i := 0; i < n; i++ {
			branchVal, err := in.Eval(parse.Field(opVal, i))
			if err != nil {
				return nil, err
			}
			r, err := in.Apply(branchVal, arg)
			if err != nil {
				return nil, err
			}
			results[i] = r
		}
		return in.implodeList(results)

	case parse.TagClosure:
		return in.applyClosure(opVal, arg)

	case parse.TagOpform:
		return in.applyOpform(opVal, nil, arg)

	case parse.TagVariable:
		v, err := in.evalVariable(opVal)
		if err != nil {
			return nil, err
		}
		return in.Apply(v, arg)

	default:
		return nil, errors.Errorf("apply: value of tag %v is not an operation", parse.TagOf(opVal))
	}
}

func (in *Interp) applyClosure(closureVal, arg *array.Array) (*array.Array, error) {
	op := parse.Field(closureVal, 0)
	id := parse.Field(closureVal, 1).Int(0)
	captured := closureEnvs[id]
	if parse.TagOf(op) == parse.TagOpform {
		return in.applyOpform(op, captured, arg)
	}
	saved := in.CurEnv
	in.CurEnv = captured
	defer func() { in.CurEnv = saved }()
	return in.Apply(op, arg)
}

// applyOpform performs a call: installs a fresh activation frame for
// the opform's own namespace (bound to the evaluated argument per its
// arglist), prepends it to captured (the closure's lexical chain, or
// nil for an unclosed top-level operation), evaluates the body in that
// environment, and restores the caller's environment afterward
// (section 3 "Activation stack").
func (in *Interp) applyOpform(opform *array.Array, captured Env, arg *array.Array) (*array.Array, error) {
	ns := parse.NamespaceOf(opform)
	if ns == nil {
		return nil, errors.New("apply: opform has no registered namespace")
	}
	nvars := int(parse.Field(opform, 2).Int(0))
	frame := &Frame{NS: ns, Slots: make([]*array.Array, nvars)}

	arglist := parse.Field(opform, 3)
	if err := in.bindArglist(frame, arglist, arg); err != nil {
		return nil, err
	}

	body := parse.Field(opform, 4)

	saved := in.CurEnv
	newEnv := make(Env, 0, len(captured)+1)
	newEnv = append(newEnv, frame)
	newEnv = append(newEnv, captured...)
	in.CurEnv = newEnv
	in.callDepth++
	defer func() {
		in.CurEnv = saved
		in.callDepth--
	}()

	return in.Eval(body)
}

// bindArglist destructures arg into frame's slots according to arglist
// (either a single TagVariable parameter or a TagIdlist of them, built
// by internal/parse's parseParamList).
func (in *Interp) bindArglist(frame *Frame, arglist, arg *array.Array) error {
	switch parse.TagOf(arglist) {
	case parse.TagIdlist:
		n := parse.NumFields(arglist)
		if n == 1 {
			return in.bindParam(frame, parse.Field(arglist, 0), arg)
		}
		if arg.Kind() != array.Mixed || arg.Tally() != n {
			return errors.Errorf("apply: expected %d arguments, got an array of tally %d", n, arg.Tally())
		}
		for i := 0; i < n; i++ {
			if err := in.bindParam(frame, parse.Field(arglist, i), arg.Item(i)); err != nil {
				return err
			}
		}
		return nil
	case parse.TagVariable:
		return in.bindParam(frame, arglist, arg)
	default:
		return errors.Errorf("apply: malformed arglist tag %v", parse.TagOf(arglist))
	}
}

func (in *Interp) bindParam(frame *Frame, paramNode, val *array.Array) error {
	offset := parse.Field(paramNode, 1).Int(0)
	if offset < 0 || int(offset) >= len(frame.Slots) {
		return errors.Errorf("apply: parameter %q has no activation slot", in.H.PhraseText(parse.Field(paramNode, 2)))
	}
	in.H.Retain(val)
	frame.Slots[offset] = val
	return nil
}

// ApplyTransform applies a transformer value to its (already closed)
// operation operand, producing the data result for dataArg (section 4.E
// "transform": "push op, coerce op ..., apply-transform to the trform").
// Only the fixed basic transformer set (EACH/FOLD, see basics.go) is
// implemented directly; a user TRANSFORMER...ENDTRANSFORMER form is
// applied by evaluating its body with opArg bound as its sole operand
// parameter, exactly like an ordinary opform call but over operation
// values instead of arrays.
func (in *Interp) ApplyTransform(trVal, opArgVal, dataArg *array.Array) (*array.Array, error) {
	switch parse.TagOf(trVal) {
	case parse.TagBasic:
		return in.applyBasicTransform(trVal, opArgVal, dataArg)
	case parse.TagTrform:
		return in.applyTrform(trVal, nil, opArgVal, dataArg)
	case parse.TagClosure:
		op := parse.Field(trVal, 0)
		id := parse.Field(trVal, 1).Int(0)
		captured := closureEnvs[id]
		if parse.TagOf(op) == parse.TagTrform {
			return in.applyTrform(op, captured, opArgVal, dataArg)
		}
		return nil, errors.New("apply-transform: closed value is not a trform")
	case parse.TagVariable:
		v, err := in.evalVariable(trVal)
		if err != nil {
			return nil, err
		}
		return in.ApplyTransform(v, opArgVal, dataArg)
	default:
		return nil, errors.Errorf("apply-transform: value of tag %v is not a transformer", parse.TagOf(trVal))
	}
}

func (in *Interp) applyTrform(trform *array.Array, captured Env, opArgVal, dataArg *array.Array) (*array.Array, error) {
	ns := parse.NamespaceOf(trform)
	if ns == nil {
		return nil, errors.New("apply-transform: trform has no registered namespace")
	}
	frame := &Frame{NS: ns, Slots: make([]*array.Array, ns.NVars())}
	opargs := parse.Field(trform, 2)
	if err := in.bindArglist(frame, opargs, opArgVal); err != nil {
		return nil, err
	}
	body := parse.Field(trform, 3)

	saved := in.CurEnv
	newEnv := make(Env, 0, len(captured)+1)
	newEnv = append(newEnv, frame)
	newEnv = append(newEnv, captured...)
	in.CurEnv = newEnv
	in.callDepth++
	defer func() {
		in.CurEnv = saved
		in.callDepth--
	}()

	opVal, err := in.Eval(body)
	if err != nil {
		return nil, err
	}
	return in.Apply(opVal, dataArg)
}
