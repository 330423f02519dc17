// Package wsio implements the reference binary codec for workspace
// snapshots (section 1's "workspace snapshot (load/save) serialization"
// hook, file extension `.nws` per section 6: "binary, platform-endian;
// single opaque blob"). It is grounded on vm/mem.go's Load/Save: a
// bufio-wrapped encoding/binary cell codec with explicit size accounting
// and delete-on-error semantics on save.
//
// What belongs here is only the wire format for one array's bits plus
// the enclosing directory of global-namespace bindings; where and when
// a snapshot is taken (the `ws-save`/`ws-load` non-local requests of
// section 7) is the hosting program's business, not this package's.
package wsio

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/arrlang/nial/internal/array"
	"github.com/arrlang/nial/internal/symtab"
)

// magic identifies an .nws file; version allows the layout to evolve.
const (
	magic   = "NIALWS01"
	version = 1
)

// endian is the codec's cell byte order. The format is platform-endian
// by specification, so unlike vm/mem.go's fixed LittleEndian this uses
// whatever the running architecture's native order is.
var endian = binary.NativeEndian

// Binding is one global-namespace entry captured in a snapshot: a
// variable's name paired with its value. Only Variable-role entries are
// snapshotted; operations/transformers/expressions are source-level
// definitions, recreated by replaying `.ndf` scripts, not by this
// binary format.
type Binding struct {
	Name  string
	Value *array.Array
}

// Snapshot is the decoded content of one workspace file: every
// Variable-role binding live in the global namespace at save time.
type Snapshot struct {
	Bindings []Binding
}

// CaptureGlobal walks g's entries in name order and collects every
// Variable-role binding into a Snapshot, ready for Save.
func CaptureGlobal(g *symtab.Namespace) *Snapshot {
	snap := &Snapshot{}
	g.Walk(func(e *symtab.Entry) {
		if e.Role != symtab.Variable || e.IsLocal {
			return
		}
		val, ok := e.Value.(*array.Array)
		if !ok {
			return
		}
		snap.Bindings = append(snap.Bindings, Binding{Name: e.Name, Value: val})
	})
	return snap
}

// Restore installs every binding in snap into g, interning names not
// already present (section 4.B: a fresh global entry starts Unknown and
// is rebound to Variable here, exactly as an ordinary assignment would).
func Restore(g *symtab.Namespace, snap *Snapshot) {
	for _, b := range snap.Bindings {
		g.Intern(b.Name).Rebind(symtab.Variable, b.Value)
	}
}

// Save writes snap to fileName in the reference binary format. The file
// is removed if an error occurs partway through, mirroring vm/mem.go's
// Save.
func Save(h *array.Heap, fileName string, snap *Snapshot) (err error) {
	f, ferr := os.Create(fileName)
	if ferr != nil {
		return errors.Wrap(ferr, "create failed")
	}
	w := bufio.NewWriter(f)
	defer func() {
		w.Flush()
		f.Close()
		if err != nil {
			os.Remove(fileName)
		}
	}()

	if _, err = w.WriteString(magic); err != nil {
		return errors.Wrap(err, "write failed")
	}
	if err = writeUint32(w, version); err != nil {
		return err
	}
	if err = writeUint32(w, uint32(len(snap.Bindings))); err != nil {
		return err
	}
	for _, b := range snap.Bindings {
		if err = writeString(w, b.Name); err != nil {
			return err
		}
		if err = writeArray(w, b.Value); err != nil {
			return err
		}
	}
	return nil
}

// Load reads a snapshot previously written by Save.
func Load(h *array.Heap, fileName string) (*Snapshot, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "open failed")
	}
	defer f.Close()
	r := bufio.NewReader(f)

	got := make([]byte, len(magic))
	if _, err := io.ReadFull(r, got); err != nil {
		return nil, errors.Wrap(err, "read magic failed")
	}
	if string(got) != magic {
		return nil, errors.Errorf("%s: not a workspace snapshot", fileName)
	}
	ver, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if ver != version {
		return nil, errors.Errorf("%s: unsupported snapshot version %d", fileName, ver)
	}
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Bindings: make([]Binding, 0, n)}
	for i := uint32(0); i < n; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		val, err := readArray(h, r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", name)
		}
		snap.Bindings = append(snap.Bindings, Binding{Name: name, Value: val})
	}
	return snap, nil
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	endian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return errors.Wrap(err, "write failed")
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errors.Wrap(err, "read failed")
	}
	return endian.Uint32(b[:]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	endian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return errors.Wrap(err, "write failed")
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errors.Wrap(err, "read failed")
	}
	return endian.Uint64(b[:]), nil
}

func writeString(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return errors.Wrap(err, "write failed")
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", errors.Wrap(err, "read failed")
	}
	return string(b), nil
}

// Wire kind tags, stable across process lifetimes since they are
// written into the file, distinct from array.Kind's in-memory values.
const (
	wireBoolean = 0
	wireInteger = 1
	wireReal    = 2
	wireChar    = 3
	wireMixed   = 4
)

func writeArray(w *bufio.Writer, a *array.Array) error {
	shape := a.Shape()
	if err := writeUint32(w, uint32(len(shape))); err != nil {
		return err
	}
	for _, s := range shape {
		if err := writeUint32(w, uint32(s)); err != nil {
			return err
		}
	}
	var kindTag uint32
	switch a.Kind() {
	case array.Boolean:
		kindTag = wireBoolean
	case array.Integer:
		kindTag = wireInteger
	case array.Real:
		kindTag = wireReal
	case array.Char:
		kindTag = wireChar
	case array.Mixed:
		kindTag = wireMixed
	default:
		return errors.Errorf("wsio: unsupported array kind %v", a.Kind())
	}
	if err := writeUint32(w, kindTag); err != nil {
		return err
	}
	n := a.Tally()
	switch a.Kind() {
	case array.Boolean:
		for i := 0; i < n; i++ {
			v := byte(0)
			if a.Bool(i) {
				v = 1
			}
			if err := w.WriteByte(v); err != nil {
				return errors.Wrap(err, "write failed")
			}
		}
	case array.Integer:
		for i := 0; i < n; i++ {
			if err := writeUint64(w, uint64(a.Int(i))); err != nil {
				return err
			}
		}
	case array.Real:
		for i := 0; i < n; i++ {
			if err := writeUint64(w, math.Float64bits(a.Real(i))); err != nil {
				return err
			}
		}
	case array.Char:
		for i := 0; i < n; i++ {
			if err := writeUint32(w, uint32(a.Char(i))); err != nil {
				return err
			}
		}
	case array.Mixed:
		for i := 0; i < n; i++ {
			if err := writeArray(w, a.Item(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func readArray(h *array.Heap, r *bufio.Reader) (*array.Array, error) {
	rank, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	shape := make([]int, rank)
	for i := range shape {
		s, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		shape[i] = int(s)
	}
	kindTag, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	switch kindTag {
	case wireBoolean:
		a, err := h.NewBoolean(shape)
		if err != nil {
			return nil, err
		}
		for i := 0; i < a.Tally(); i++ {
			b, err := r.ReadByte()
			if err != nil {
				return nil, errors.Wrap(err, "read failed")
			}
			a.SetBool(i, b != 0)
		}
		return a, nil
	case wireInteger:
		a, err := h.NewInteger(shape)
		if err != nil {
			return nil, err
		}
		for i := 0; i < a.Tally(); i++ {
			v, err := readUint64(r)
			if err != nil {
				return nil, err
			}
			a.SetInt(i, int64(v))
		}
		return a, nil
	case wireReal:
		a, err := h.NewReal(shape)
		if err != nil {
			return nil, err
		}
		for i := 0; i < a.Tally(); i++ {
			v, err := readUint64(r)
			if err != nil {
				return nil, err
			}
			a.SetReal(i, math.Float64frombits(v))
		}
		return a, nil
	case wireChar:
		a, err := h.NewChar(shape)
		if err != nil {
			return nil, err
		}
		for i := 0; i < a.Tally(); i++ {
			v, err := readUint32(r)
			if err != nil {
				return nil, err
			}
			a.SetChar(i, rune(v))
		}
		return a, nil
	case wireMixed:
		a, err := h.NewMixed(shape)
		if err != nil {
			return nil, err
		}
		for i := 0; i < a.Tally(); i++ {
			it, err := readArray(h, r)
			if err != nil {
				return nil, err
			}
			a.SetItem(h, i, it)
		}
		return array.Implode(h, a)
	default:
		return nil, errors.Errorf("wsio: unknown wire kind tag %d", kindTag)
	}
}
