package symtab

// Namespace is the quadruple of section 3: a binary tree of entries, a
// pointer into the activation stack (or -1 if inactive), the scope
// property, and the owner's name.
type Namespace struct {
	root     *Entry
	CurrentSP int
	Property  Property
	Name      string

	// NonLocals is the set of names this namespace's block declared
	// NONLOCAL, consulted by the closed-scope lookup rule.
	NonLocals map[string]bool
	// Referred records identifiers read (not assigned) before any LOCAL
	// declaration for them, so a later conflicting LOCAL can be flagged
	// as "reference before assignment" (section 4.B).
	Referred map[string]bool

	nextOffset int
}

// NewNamespace creates an empty namespace with the given property and
// owner name. CurrentSP starts at -1: inactive.
func NewNamespace(prop Property, name string) *Namespace {
	return &Namespace{
		Property:  prop,
		Name:      name,
		CurrentSP: -1,
		NonLocals: make(map[string]bool),
		Referred:  make(map[string]bool),
	}
}

// Find looks up name within this namespace only (no chaining).
func (ns *Namespace) Find(name string) *Entry {
	return find(ns.root, name)
}

// Intern returns the entry for name, creating it (role Unknown) if
// absent.
func (ns *Namespace) Intern(name string) *Entry {
	return insert(&ns.root, name)
}

// Walk visits every entry in ascending name order.
func (ns *Namespace) Walk(f func(*Entry)) {
	walk(ns.root, f)
}

// DeclareLocal interns name as a local/parameter of this namespace and
// assigns it the next activation-stack offset, per the static
// addressing scheme of section 3 ("local variables are addressed by
// cur_sp + static_offset, assigned at parse time").
func (ns *Namespace) DeclareLocal(name string, role Role) *Entry {
	e := ns.Intern(name)
	if !e.IsLocal {
		e.IsLocal = true
		e.LocalOffset = ns.nextOffset
		ns.nextOffset++
	}
	e.Role = role
	return e
}

// NVars is the number of local slots declared in this namespace so far;
// used by prologue to size the activation record.
func (ns *Namespace) NVars() int { return ns.nextOffset }

// Active reports whether this namespace currently has a live activation
// record.
func (ns *Namespace) Active() bool { return ns.CurrentSP >= 0 }

// Env is an ordered sequence of namespaces, innermost first, that ends
// implicitly at the global namespace (section 3). Lookup policies walk
// Env plus an explicit global reference rather than requiring every Env
// to include the global namespace as its last element.
type Env []*Namespace

// Clone returns a shallow copy of the environment slice, suitable for a
// closure snapshot (section 4.G) — the namespaces themselves are shared,
// only the chaining slice is copied.
func (e Env) Clone() Env {
	out := make(Env, len(e))
	copy(out, e)
	return out
}
