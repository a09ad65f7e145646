package spv

import (
	"encoding/binary"
	"fmt"
	"os"

	"fortio.org/safecast"

	"spvir/internal/spv/spec"
)

// EncodeInst appends the word encoding of inst to dst.
func EncodeInst(dst []uint32, inst *Inst) ([]uint32, error) {
	n := 1 + len(inst.Operands)
	if inst.ResultTypeID != 0 {
		n++
	}
	if inst.ResultID != 0 {
		n++
	}
	count, err := safecast.Conv[uint16](n)
	if err != nil {
		return dst, fmt.Errorf("%w: %s has %d words", ErrMalformed, inst.Opcode.Name(), n)
	}
	dst = append(dst, uint32(count)<<16|uint32(inst.Opcode))
	if inst.ResultTypeID != 0 {
		dst = append(dst, uint32(inst.ResultTypeID))
	}
	if inst.ResultID != 0 {
		dst = append(dst, uint32(inst.ResultID))
	}
	for _, o := range inst.Operands {
		dst = append(dst, o.Word())
	}
	return dst, nil
}

// Words encodes the module header followed by every instruction.
func (m *Module) Words() ([]uint32, error) {
	words := make([]uint32, 0, spec.HeaderWords+4*len(m.Insts))
	words = append(words,
		spec.Magic,
		m.Layout.HeaderVersion,
		m.Layout.OriginalGeneratorMagic,
		m.Layout.OriginalIDBound,
		0,
	)
	var err error
	for i := range m.Insts {
		if words, err = EncodeInst(words, &m.Insts[i]); err != nil {
			return nil, err
		}
	}
	return words, nil
}

// Write returns the little-endian binary form of m.
func Write(m *Module) ([]byte, error) {
	words, err := m.Words()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return buf, nil
}

// WriteFile writes m to path.
func WriteFile(path string, m *Module) error {
	data, err := Write(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
