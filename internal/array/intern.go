package array

import "github.com/pkg/errors"

// InternTables holds the two atom-identity tables described in section
// 4.A: one for phrases, one for faults. Equal normalized text maps to
// the same identity, so identity comparison implements language
// equality for these kinds (section 3).
type InternTables struct {
	phrases   map[string]int32
	phraseTxt []string
	faults    map[string]int32
	faultTxt  []string

	trigger bool
}

func newInternTables() *InternTables {
	return &InternTables{
		phrases: make(map[string]int32),
		faults:  make(map[string]int32),
	}
}

// SetTrigger enables or disables fault triggering: while enabled,
// creating a fault atom (other than the sentinel faults) performs a
// non-local exit to the nearest handler instead of returning a value.
// The interning layer only tracks the flag; the non-local exit itself
// is implemented by the evaluator (internal/eval), which consults
// Triggering before it lets a fault value flow onward.
func (t *InternTables) SetTrigger(on bool) { t.trigger = on }

// Triggering reports the current trigger state.
func (t *InternTables) Triggering() bool { return t.trigger }

// SetTrigger forwards to the heap's intern tables; see
// InternTables.SetTrigger. Exposed on Heap because callers outside this
// package (the CLI's `-i` handling, for one) only ever hold a Heap.
func (h *Heap) SetTrigger(on bool) { h.intern.SetTrigger(on) }

// Triggering forwards to the heap's intern tables; see
// InternTables.Triggering.
func (h *Heap) Triggering() bool { return h.intern.Triggering() }

func internID(table map[string]int32, txt *[]string, s string) int32 {
	if id, ok := table[s]; ok {
		return id
	}
	id := int32(len(*txt))
	table[s] = id
	*txt = append(*txt, s)
	return id
}

// PhraseText returns the text behind a phrase identity.
func (t *InternTables) PhraseText(id int32) string { return t.phraseTxt[id] }

// FaultText returns the text behind a fault identity.
func (t *InternTables) FaultText(id int32) string { return t.faultTxt[id] }

// sentinelFaults never trigger a non-local exit even when triggering is
// enabled globally, per section 4.E.
var sentinelFaults = map[string]bool{
	"noexpr": true,
	"eof":    true,
	"I":      true,
	"O":      true,
}

// NewPhrase interns s and returns a rank-0 Phrase atom holding its
// identity. Equal text always yields the same identity (section 3).
func (h *Heap) NewPhrase(s string) (*Array, error) {
	id := internID(h.intern.phrases, &h.intern.phraseTxt, s)
	a := newArray(Phrase, nil, Block{})
	blk, err := h.reserve(1)
	if err != nil {
		return nil, errors.Wrap(err, "NewPhrase")
	}
	a.block = blk
	a.atoms = []int32{id}
	return a, nil
}

// NewFault interns s and returns a rank-0 Fault atom holding its
// identity. If triggering is enabled and s is not one of the four
// non-triggering sentinels, Triggered reports true so the evaluator can
// perform the non-local exit described in section 4.E.
func (h *Heap) NewFault(s string) (a *Array, triggered bool, err error) {
	id := internID(h.intern.faults, &h.intern.faultTxt, s)
	a = newArray(Fault, nil, Block{})
	blk, err := h.reserve(1)
	if err != nil {
		return nil, false, errors.Wrap(err, "NewFault")
	}
	a.block = blk
	a.atoms = []int32{id}
	triggered = h.intern.trigger && !sentinelFaults[s]
	return a, triggered, nil
}

// PhraseText returns the text of a's single phrase item; a must have
// kind Phrase.
func (h *Heap) PhraseText(a *Array) string { return h.intern.PhraseText(a.atoms[0]) }

// FaultText returns the text of a's single fault item; a must have kind
// Fault.
func (h *Heap) FaultText(a *Array) string { return h.intern.FaultText(a.atoms[0]) }

// SamePhrase reports whether two phrase atoms are textually (hence
// identically) equal.
func SamePhrase(a, b *Array) bool { return a.atoms[0] == b.atoms[0] }

// SameFault reports whether two fault atoms are textually (hence
// identically) equal.
func SameFault(a, b *Array) bool { return a.atoms[0] == b.atoms[0] }
