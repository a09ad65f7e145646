package spv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"os"

	"spvir/internal/spv/spec"
)

var (
	// ErrMalformed reports a structurally invalid binary: bad magic or
	// header, bad word counts, or operands that do not fit the grammar.
	ErrMalformed = errors.New("malformed SPIR-V")
	// ErrUnresolvedForwardRef reports an id that is referenced but never
	// defined anywhere in the stream.
	ErrUnresolvedForwardRef = errors.New("unresolved forward reference")
	// ErrUnknownOpcode reports an opcode the grammar does not describe.
	ErrUnknownOpcode = errors.New("unknown opcode")
)

// ReadError locates a decoding failure. Offset is in words from the start of
// the module.
type ReadError struct {
	Offset int
	Opcode spec.Opcode
	Err    error
}

func (e *ReadError) Error() string {
	if e.Offset < spec.HeaderWords {
		return fmt.Sprintf("spv: header word %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("spv: word %d (%s): %v", e.Offset, e.Opcode.Name(), e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ReadFile reads and decodes the module stored at path.
func ReadFile(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Read(data)
}

// Read decodes a binary module. Both byte orders are accepted. Id operands
// that refer to ids defined later are returned as forward references; an id
// that is never defined fails the whole read with ErrUnresolvedForwardRef.
func Read(data []byte) (*Module, error) {
	if len(data)%4 != 0 {
		return nil, &ReadError{Err: fmt.Errorf("%w: length %d is not a multiple of 4", ErrMalformed, len(data))}
	}
	if len(data) < 4*spec.HeaderWords {
		return nil, &ReadError{Err: fmt.Errorf("%w: truncated header", ErrMalformed)}
	}

	var order binary.ByteOrder = binary.LittleEndian
	switch spec.Magic {
	case binary.LittleEndian.Uint32(data):
	case binary.BigEndian.Uint32(data):
		order = binary.BigEndian
	default:
		return nil, &ReadError{Err: fmt.Errorf("%w: bad magic %#08x", ErrMalformed, binary.LittleEndian.Uint32(data))}
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = order.Uint32(data[4*i:])
	}

	r := &reader{
		words:   words,
		spec:    spec.Get(),
		defined: make(map[ID]struct{}),
		widths:  make(map[ID]int),
		pending: make(map[ID]int),
	}
	return r.read()
}

type reader struct {
	words []uint32
	spec  *spec.Spec

	defined map[ID]struct{}
	// widths maps OpTypeInt/OpTypeFloat ids to their size in words.
	widths map[ID]int
	// pending maps forward-referenced ids to the offset of the first use.
	pending map[ID]int
	bound   uint32

	// per-instruction state
	at     int
	op     spec.Opcode
	inst   *Inst
	cursor []uint32
}

func (r *reader) fail(offset int, err error) error {
	return &ReadError{Offset: offset, Opcode: r.op, Err: err}
}

func (r *reader) read() (*Module, error) {
	version := r.words[1]
	if version&0xFF0000FF != 0 {
		return nil, r.fail(1, fmt.Errorf("%w: bad version word %#08x", ErrMalformed, version))
	}
	if r.words[4] != 0 {
		return nil, r.fail(4, fmt.Errorf("%w: reserved schema word is %d", ErrMalformed, r.words[4]))
	}
	r.bound = r.words[3]
	m := &Module{Layout: ModuleLayout{
		HeaderVersion:          version,
		OriginalGeneratorMagic: r.words[2],
		OriginalIDBound:        r.bound,
	}}

	for r.at = spec.HeaderWords; r.at < len(r.words); {
		first := r.words[r.at]
		count := int(first >> 16)
		r.op = spec.Opcode(first & 0xFFFF)
		if count == 0 || r.at+count > len(r.words) {
			return nil, r.fail(r.at, fmt.Errorf("%w: word count %d", ErrMalformed, count))
		}
		desc, ok := r.spec.Instruction(r.op)
		if !ok {
			return nil, r.fail(r.at, fmt.Errorf("%w %d", ErrUnknownOpcode, uint16(r.op)))
		}
		inst := Inst{Opcode: r.op}
		r.inst = &inst
		r.cursor = r.words[r.at+1 : r.at+count]
		if err := r.decode(desc); err != nil {
			return nil, err
		}
		if inst.Opcode == spec.OpCapability {
			m.Layout.Capabilities = append(m.Layout.Capabilities, inst.Operands[0].Imm.Value)
		}
		m.Insts = append(m.Insts, inst)
		r.at += count
	}

	if len(r.pending) > 0 {
		first, firstAt := ID(0), len(r.words)
		for id, at := range r.pending {
			if at < firstAt || (at == firstAt && id < first) {
				first, firstAt = id, at
			}
		}
		r.op = spec.Opcode(r.words[firstAt] & 0xFFFF)
		return nil, r.fail(firstAt, fmt.Errorf("%w: %%%d", ErrUnresolvedForwardRef, first))
	}
	return m, nil
}

func (r *reader) decode(desc *spec.InstructionDesc) error {
	if desc.HasResultType {
		id, err := r.takeRef()
		if err != nil {
			return err
		}
		r.inst.ResultTypeID = id
	}
	if desc.HasResultID {
		id, err := r.takeID()
		if err != nil {
			return err
		}
		if _, dup := r.defined[id]; dup {
			return r.fail(r.at, fmt.Errorf("%w: %%%d defined twice", ErrMalformed, id))
		}
		r.defined[id] = struct{}{}
		delete(r.pending, id)
		r.inst.ResultID = id
	}

	for _, od := range desc.Operands {
		switch od.Quantifier {
		case spec.One:
			if err := r.operand(od.Kind); err != nil {
				return err
			}
		case spec.Optional:
			if len(r.cursor) > 0 {
				if err := r.operand(od.Kind); err != nil {
					return err
				}
			}
		case spec.Rest:
			for len(r.cursor) > 0 {
				if err := r.operand(od.Kind); err != nil {
					return err
				}
			}
		}
	}
	if len(r.cursor) > 0 {
		return r.fail(r.at, fmt.Errorf("%w: %d trailing words", ErrMalformed, len(r.cursor)))
	}

	switch desc.Opcode {
	case spec.OpTypeInt, spec.OpTypeFloat:
		width := r.inst.Operands[0].Imm.Value
		r.widths[r.inst.ResultID] = max(1, int((width+31)/32))
	}
	return nil
}

func (r *reader) takeWord() (uint32, error) {
	if len(r.cursor) == 0 {
		return 0, r.fail(r.at, fmt.Errorf("%w: missing operand", ErrMalformed))
	}
	w := r.cursor[0]
	r.cursor = r.cursor[1:]
	return w, nil
}

func (r *reader) takeID() (ID, error) {
	w, err := r.takeWord()
	if err != nil {
		return 0, err
	}
	if w == 0 || w >= r.bound {
		return 0, r.fail(r.at, fmt.Errorf("%w: id %d outside bound %d", ErrMalformed, w, r.bound))
	}
	return ID(w), nil
}

// takeRef reads a referenced id and records it as pending if it has not
// been defined yet.
func (r *reader) takeRef() (ID, error) {
	id, err := r.takeID()
	if err != nil {
		return 0, err
	}
	if _, ok := r.defined[id]; !ok {
		if _, seen := r.pending[id]; !seen {
			r.pending[id] = r.at
		}
	}
	return id, nil
}

func (r *reader) push(o Operand) { r.inst.Operands = append(r.inst.Operands, o) }

func (r *reader) pushImm(kind spec.OperandKind, words []uint32) {
	for _, imm := range SplitImm(kind, words) {
		r.push(ImmOperand(imm))
	}
}

func (r *reader) operand(kind spec.OperandKind) error {
	kd := r.spec.Kind(kind)
	wk := &r.spec.WellKnown
	switch kd.Category {
	case spec.CategoryID:
		_, wasDefined := r.defined[ID(r.peek())]
		id, err := r.takeRef()
		if err != nil {
			return err
		}
		if wasDefined {
			r.push(IDOperand(kind, id))
		} else {
			r.push(ForwardIDOperand(kind, id))
		}
		return nil

	case spec.CategoryLiteral:
		switch kind {
		case wk.LiteralString:
			_, n, err := DecodeString(r.cursor)
			if err != nil {
				return r.fail(r.at, fmt.Errorf("%w: %w", ErrMalformed, err))
			}
			r.pushImm(kind, r.cursor[:n])
			r.cursor = r.cursor[n:]
			return nil
		case wk.LiteralContextDependentNumber:
			n, ok := r.widths[r.inst.ResultTypeID]
			if !ok {
				return r.fail(r.at, fmt.Errorf("%w: %%%d is not a numeric type", ErrMalformed, r.inst.ResultTypeID))
			}
			if len(r.cursor) < n {
				return r.fail(r.at, fmt.Errorf("%w: literal needs %d words", ErrMalformed, n))
			}
			r.pushImm(kind, r.cursor[:n])
			r.cursor = r.cursor[n:]
			return nil
		}
		w, err := r.takeWord()
		if err != nil {
			return err
		}
		r.push(ImmOperand(ShortImm(kind, w)))
		return nil

	case spec.CategoryValueEnum:
		w, err := r.takeWord()
		if err != nil {
			return err
		}
		r.push(ImmOperand(ShortImm(kind, w)))
		if e, ok := kd.Enumerant(w); ok {
			for _, p := range e.Params {
				if err := r.operand(p); err != nil {
					return err
				}
			}
		}
		return nil

	case spec.CategoryBitEnum:
		w, err := r.takeWord()
		if err != nil {
			return err
		}
		r.push(ImmOperand(ShortImm(kind, w)))
		for rest := w; rest != 0; rest &= rest - 1 {
			bit := uint32(1) << bits.TrailingZeros32(rest)
			if e, ok := kd.Enumerant(bit); ok {
				for _, p := range e.Params {
					if err := r.operand(p); err != nil {
						return err
					}
				}
			}
		}
		return nil

	case spec.CategoryComposite:
		for _, b := range kd.Bases {
			if err := r.operand(b); err != nil {
				return err
			}
		}
		return nil
	}
	return r.fail(r.at, fmt.Errorf("%w: operand kind %s", ErrMalformed, kd.Name))
}

func (r *reader) peek() uint32 {
	if len(r.cursor) == 0 {
		return 0
	}
	return r.cursor[0]
}
