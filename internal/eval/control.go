package eval

import (
	"github.com/pkg/errors"

	"github.com/arrlang/nial/internal/array"
	"github.com/arrlang/nial/internal/parse"
)

func (in *Interp) truthy(v *array.Array) (bool, error) {
	if v.Kind() != array.Boolean || !v.IsAtom() {
		return false, errors.New("eval: condition is not a boolean")
	}
	return v.Bool(0), nil
}

// evalIf walks the [test1, then1, (test2, then2)..., (else)?] layout
// (section 6 TagIfexpr), evaluating tests in order and taking the first
// whose test is true; an unmatched IF with no ELSE evaluates to noexpr.
func (in *Interp) evalIf(node *array.Array) (*array.Array, error) {
	n := parse.NumFields(node)
	pairs := n / 2
	hasElse := n%2 == 1
	for i := 0; i < pairs; i++ {
		test, err := in.Eval(parse.Field(node, 2*i))
		if err != nil {
			return nil, err
		}
		ok, err := in.truthy(test)
		if err != nil {
			return nil, err
		}
		if ok {
			return in.Eval(parse.Field(node, 2*i+1))
		}
	}
	if hasElse {
		return in.Eval(parse.Field(node, n-1))
	}
	return in.noExpr()
}

// runLoopBody evaluates body, catching an EXIT (section 4.E) so the
// caller's loop stops iterating and returns the exited value; any other
// error (including a fault trigger) propagates unchanged.
func (in *Interp) runLoopBody(body *array.Array) (val *array.Array, exited bool, err error) {
	v, err := in.Eval(body)
	if err != nil {
		if ex, ok := errors.Cause(err).(*exitSignal); ok {
			return ex.value, true, nil
		}
		if ex, ok := err.(*exitSignal); ok {
			return ex.value, true, nil
		}
		return nil, false, err
	}
	return v, false, nil
}

func (in *Interp) evalWhile(node *array.Array) (*array.Array, error) {
	test := parse.Field(node, 0)
	body := parse.Field(node, 1)
	for {
		tv, err := in.Eval(test)
		if err != nil {
			return nil, err
		}
		ok, err := in.truthy(tv)
		if err != nil {
			return nil, err
		}
		if !ok {
			return in.noExpr()
		}
		v, exited, err := in.runLoopBody(body)
		if err != nil {
			return nil, err
		}
		if exited {
			return v, nil
		}
	}
}

func (in *Interp) evalRepeat(node *array.Array) (*array.Array, error) {
	body := parse.Field(node, 0)
	test := parse.Field(node, 1)
	for {
		v, exited, err := in.runLoopBody(body)
		if err != nil {
			return nil, err
		}
		if exited {
			return v, nil
		}
		tv, err := in.Eval(test)
		if err != nil {
			return nil, err
		}
		ok, err := in.truthy(tv)
		if err != nil {
			return nil, err
		}
		if ok {
			return in.noExpr()
		}
	}
}

// evalFor walks the TagForexpr layout [idlist, iter, body]: iter
// evaluates to an array, and the loop variable(s) named by idlist are
// bound to each of its items in turn.
func (in *Interp) evalFor(node *array.Array) (*array.Array, error) {
	idlist := parse.Field(node, 0)
	iterExpr := parse.Field(node, 1)
	body := parse.Field(node, 2)

	iter, err := in.Eval(iterExpr)
	if err != nil {
		return nil, err
	}
	items, err := in.itemsOf(iter)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := in.bindIdlist(idlist, it); err != nil {
			return nil, err
		}
		v, exited, err := in.runLoopBody(body)
		if err != nil {
			return nil, err
		}
		if exited {
			return v, nil
		}
	}
	return in.noExpr()
}

// bindIdlist stores val into the single variable idlist names, or
// destructures val across idlist's names when it names more than one
// (a FOR loop with `FOR (a,b) WITH ...`).
func (in *Interp) bindIdlist(idlist, val *array.Array) error {
	if parse.TagOf(idlist) != parse.TagIdlist {
		return in.bindVariable(idlist, val)
	}
	n := parse.NumFields(idlist)
	if n == 1 {
		return in.bindVariable(parse.Field(idlist, 0), val)
	}
	if val.Kind() != array.Mixed || val.Tally() != n {
		return errors.Errorf("eval: expected %d values to destructure, got tally %d", n, val.Tally())
	}
	for i := 0; i < n; i++ {
		if err := in.bindVariable(parse.Field(idlist, i), val.Item(i)); err != nil {
			return err
		}
	}
	return nil
}

// sameAtom reports whether two atoms are the same case-selector value
// (section 4.E's case comparison is by value equality on atoms).
func sameAtom(a, b *array.Array) bool {
	if a.Kind() != b.Kind() || !a.IsAtom() || !b.IsAtom() {
		return false
	}
	switch a.Kind() {
	case array.Boolean:
		return a.Bool(0) == b.Bool(0)
	case array.Integer:
		return a.Int(0) == b.Int(0)
	case array.Real:
		return a.Real(0) == b.Real(0)
	case array.Char:
		return a.Char(0) == b.Char(0)
	default:
		return false
	}
}

// evalCase walks the TagCaseexpr layout [selector, values, source-exprs,
// bodies] (section 6): bodies holds one body per value plus a trailing
// else body (parseCase always appends one, a TagNulltree when the
// source had no ELSE).
func (in *Interp) evalCase(node *array.Array) (*array.Array, error) {
	selectorVal, err := in.Eval(parse.Field(node, 0))
	if err != nil {
		return nil, err
	}
	values := parse.Field(node, 1)
	bodies := parse.Field(node, 3)
	n := parse.NumFields(values)
	for i := 0; i < n; i++ {
		cv, err := in.Eval(parse.Field(values, i))
		if err != nil {
			return nil, err
		}
		if array.Equal(selectorVal, cv) {
			return in.Eval(parse.Field(bodies, i))
		}
	}
	return in.Eval(parse.Field(bodies, n))
}

func (in *Interp) evalExit(node *array.Array) (*array.Array, error) {
	val, err := in.Eval(parse.Field(node, 0))
	if err != nil {
		return nil, err
	}
	return nil, &exitSignal{value: val}
}

// evalAssign binds rhs's value to idlist's name(s) (section 4.E
// "assignexpr"), destructuring across multiple names exactly like a
// FOR loop's idlist binding.
func (in *Interp) evalAssign(node *array.Array) (*array.Array, error) {
	idlist := parse.Field(node, 0)
	rhs := parse.Field(node, 1)
	val, err := in.Eval(rhs)
	if err != nil {
		return nil, err
	}
	if err := in.bindIdlist(idlist, val); err != nil {
		return nil, err
	}
	return val, nil
}
