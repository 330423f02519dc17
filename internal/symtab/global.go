package symtab

// reservedWords is the initial environment seeded into the global
// namespace before any user code runs, so that "reserved words are
// detected by lookup in the global namespace" (section 4.C) has a
// table to consult. Grounded on original_source/BuildCore/src/symtab.c,
// which pre-populates the global symbol table the same way.
var reservedWords = []string{
	"IF", "THEN", "ELSE", "ELSEIF", "ENDIF",
	"WHILE", "DO", "ENDWHILE",
	"REPEAT", "UNTIL", "ENDREPEAT",
	"FOR", "WITH", "ENDFOR",
	"CASE", "FROM", "ENDCASE",
	"OPERATION", "ENDOPERATION",
	"TRANSFORMER", "ENDTRANSFORMER",
	"LOCAL", "NONLOCAL",
	"EXIT", "RESULT", "IS",
	"BEGIN", "END",
}

// NewGlobal creates the global namespace and seeds it with the reserved
// words table.
func NewGlobal() *Namespace {
	g := NewNamespace(Global, "GLOBAL")
	g.CurrentSP = -1
	for _, w := range reservedWords {
		e := g.Intern(w)
		e.Role = Reserved
		e.System = true
	}
	return g
}

// IsReserved reports whether name is a reserved word in global.
func IsReserved(global *Namespace, name string) bool {
	e := global.Find(name)
	return e != nil && e.Role == Reserved
}
