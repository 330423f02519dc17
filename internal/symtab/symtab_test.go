package symtab_test

import (
	"testing"

	"github.com/arrlang/nial/internal/symtab"
)

func TestGlobalSeedsReservedWords(t *testing.T) {
	g := symtab.NewGlobal()
	if !symtab.IsReserved(g, "WHILE") {
		t.Fatalf("expected WHILE to be reserved")
	}
	if symtab.IsReserved(g, "MYVAR") {
		t.Fatalf("did not expect MYVAR to be reserved")
	}
}

func TestPassiveLookupInnermostOut(t *testing.T) {
	g := symtab.NewGlobal()
	g.Intern("X").Rebind(symtab.Variable, "global-x")

	inner := symtab.NewNamespace(symtab.Open, "inner")
	inner.Intern("X").Rebind(symtab.Variable, "inner-x")

	env := symtab.Env{inner}
	r := symtab.Lookup(env, g, "X", symtab.Passive)
	if !r.OK || r.Entry.Value != "inner-x" {
		t.Fatalf("expected innermost binding to win, got %+v", r)
	}

	r2 := symtab.Lookup(env, g, "Y", symtab.Passive)
	if r2.OK {
		t.Fatalf("expected lookup of undeclared name to fail")
	}
}

func TestActiveLookupStopsAtClosedScope(t *testing.T) {
	g := symtab.NewGlobal()
	g.Intern("N").Rebind(symtab.Variable, "global-n")

	closed := symtab.NewNamespace(symtab.Closed, "block")
	env := symtab.Env{closed}

	r := symtab.Lookup(env, g, "N", symtab.Active)
	if r.OK {
		t.Fatalf("expected active lookup of an undeclared name to stop at the closed scope, not fall through to global")
	}
	if r.NS != closed {
		t.Fatalf("expected failure to report the closed namespace as the install point")
	}
}

func TestActiveLookupPassesClosedScopeForNonLocal(t *testing.T) {
	g := symtab.NewGlobal()
	g.Intern("N").Rebind(symtab.Variable, "global-n")

	closed := symtab.NewNamespace(symtab.Closed, "block")
	closed.NonLocals["N"] = true
	env := symtab.Env{closed}

	r := symtab.Lookup(env, g, "N", symtab.Active)
	if !r.OK || r.NS != g {
		t.Fatalf("expected NONLOCAL declaration to let lookup reach global, got %+v", r)
	}
}

func TestDeclareLocalAssignsSequentialOffsets(t *testing.T) {
	ns := symtab.NewNamespace(symtab.Closed, "blk")
	a := ns.DeclareLocal("A", symtab.Variable)
	b := ns.DeclareLocal("B", symtab.Variable)
	if a.LocalOffset != 0 || b.LocalOffset != 1 {
		t.Fatalf("offsets = %d, %d, want 0, 1", a.LocalOffset, b.LocalOffset)
	}
	if ns.NVars() != 2 {
		t.Fatalf("NVars = %d, want 2", ns.NVars())
	}
}
