package array

// Equal implements the language's structural equality, used by caseexpr
// selector matching (section 4.E). Phrases and faults compare by
// interned identity; other kinds compare by shape and item value.
func Equal(a, b *Array) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.kind != b.kind || !shapeEqual(a.shape, b.shape) {
		return false
	}
	switch a.kind {
	case Boolean:
		for i := range a.bools {
			if a.bools[i] != b.bools[i] {
				return false
			}
		}
	case Integer:
		for i := range a.ints {
			if a.ints[i] != b.ints[i] {
				return false
			}
		}
	case Real:
		for i := range a.reals {
			if a.reals[i] != b.reals[i] {
				return false
			}
		}
	case Char:
		for i := range a.chars {
			if a.chars[i] != b.chars[i] {
				return false
			}
		}
	case Phrase, Fault:
		for i := range a.atoms {
			if a.atoms[i] != b.atoms[i] {
				return false
			}
		}
	case Mixed:
		for i := range a.mixed {
			if !Equal(a.mixed[i], b.mixed[i]) {
				return false
			}
		}
	}
	return true
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
