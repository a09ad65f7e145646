package spv

import (
	"errors"
	"fmt"

	"spvir/internal/spv/spec"
)

var errNoTerminator = errors.New("string literal without terminator")

// SplitImm turns the words of one logical immediate into Imm words.
func SplitImm(kind spec.OperandKind, words []uint32) []Imm {
	if len(words) == 1 {
		return []Imm{ShortImm(kind, words[0])}
	}
	out := make([]Imm, len(words))
	for i, w := range words {
		k := ImmLongCont
		if i == 0 {
			k = ImmLongStart
		}
		out[i] = Imm{Kind: k, OperandKind: kind, Value: w}
	}
	return out
}

// EncodeString packs s as a nul-terminated little-endian word sequence.
func EncodeString(s string) []uint32 {
	n := len(s)/4 + 1
	words := make([]uint32, n)
	for i := 0; i < len(s); i++ {
		words[i/4] |= uint32(s[i]) << (8 * (i % 4))
	}
	return words
}

// DecodeString reads a nul-terminated string from the front of words and
// reports how many words it used.
func DecodeString(words []uint32) (string, int, error) {
	var buf []byte
	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			b := byte(w >> shift)
			if b == 0 {
				return string(buf), i + 1, nil
			}
			buf = append(buf, b)
		}
	}
	return "", 0, errNoTerminator
}

// StringImms encodes s as immediates of the given kind.
func StringImms(kind spec.OperandKind, s string) []Imm {
	return SplitImm(kind, EncodeString(s))
}

// TakeImm splits the first logical immediate off imms.
func TakeImm(imms []Imm) (words []uint32, rest []Imm) {
	if len(imms) == 0 {
		return nil, nil
	}
	words = append(words, imms[0].Value)
	if imms[0].Kind != ImmLongStart {
		return words, imms[1:]
	}
	i := 1
	for ; i < len(imms) && imms[i].Kind == ImmLongCont; i++ {
		words = append(words, imms[i].Value)
	}
	return words, imms[i:]
}

// DecodeStringImms reassembles a string held in the first logical immediate
// of imms.
func DecodeStringImms(imms []Imm) (string, []Imm, error) {
	words, rest := TakeImm(imms)
	s, _, err := DecodeString(words)
	if err != nil {
		return "", imms, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return s, rest, nil
}
