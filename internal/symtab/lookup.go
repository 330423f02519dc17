package symtab

// Policy selects one of the name-lookup strategies of section 4.B. The
// parser picks the policy that matches the syntactic context it is in;
// the evaluator always uses Passive, since by the time a variable node
// reaches eval its (namespace, entry) pair was already resolved at
// parse time.
type Policy int

const (
	Passive Policy = iota
	Active
	Statics
	Dynamic
	NonLocal
	Formal
	Globals
)

// Result is the outcome of a lookup: the namespace the entry was found
// in (or would be installed into, for Active on a closed miss) and the
// entry itself, or ok=false if the policy says "fail here".
type Result struct {
	NS    *Namespace
	Entry *Entry
	OK    bool
}

// Lookup resolves name in env (innermost first) plus the implicit
// global namespace, according to policy.
func Lookup(env Env, global *Namespace, name string, policy Policy) Result {
	switch policy {
	case Formal:
		// No lookup; the caller always wants a fresh identifier node.
		return Result{OK: false}

	case Globals:
		if e := global.Find(name); e != nil {
			return Result{NS: global, Entry: e, OK: true}
		}
		return Result{OK: false}

	case Statics:
		if len(env) == 0 {
			return lookupGlobal(global, name)
		}
		if e := env[0].Find(name); e != nil {
			return Result{NS: env[0], Entry: e, OK: true}
		}
		return Result{OK: false}

	case Dynamic:
		// Skip local envs after the first miss: try only the innermost,
		// then fall through straight to global.
		if len(env) > 0 {
			if e := env[0].Find(name); e != nil {
				return Result{NS: env[0], Entry: e, OK: true}
			}
		}
		return lookupGlobal(global, name)

	case NonLocal:
		// Skip the innermost namespace (resolves NONLOCAL declarations).
		rest := env
		if len(rest) > 0 {
			rest = rest[1:]
		}
		return lookupChain(rest, global, name)

	case Active:
		return lookupActive(env, global, name)

	case Passive:
		fallthrough
	default:
		return lookupChain(env, global, name)
	}
}

// lookupChain performs the plain innermost-out walk shared by Passive
// and NonLocal (once the latter has dropped its head namespace).
func lookupChain(env Env, global *Namespace, name string) Result {
	for _, ns := range env {
		if e := ns.Find(name); e != nil {
			return Result{NS: ns, Entry: e, OK: true}
		}
	}
	return lookupGlobal(global, name)
}

func lookupGlobal(global *Namespace, name string) Result {
	if e := global.Find(name); e != nil {
		return Result{NS: global, Entry: e, OK: true}
	}
	return Result{OK: false}
}

// lookupActive implements the assignment-target walk of section 4.B: if
// the innermost namespace is Closed and the name is absent there and not
// declared NONLOCAL for that block, the search ends at the innermost
// namespace (failure, so the caller can install a fresh local there);
// otherwise global is reached only when no local env is closed.
func lookupActive(env Env, global *Namespace, name string) Result {
	for idx, ns := range env {
		if e := ns.Find(name); e != nil {
			return Result{NS: ns, Entry: e, OK: true}
		}
		if ns.Property == Closed && !ns.NonLocals[name] {
			return Result{NS: env[idx], OK: false}
		}
	}
	return lookupGlobal(global, name)
}
