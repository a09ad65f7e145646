package irfmt

import (
	"fmt"
	"strconv"
	"strings"

	"spvir/internal/spv"
	"spvir/internal/spv/spec"
)

// formatImms renders a run of immediates, one string per logical value.
// Strings are quoted, enumerants are named and multi-word literals are
// printed as one hexadecimal number.
func formatImms(imms []spv.Imm) []string {
	var out []string
	s := spec.Get()
	for len(imms) > 0 {
		kind := imms[0].OperandKind
		if kind == s.WellKnown.LiteralString {
			str, rest, err := spv.DecodeStringImms(imms)
			if err == nil {
				out = append(out, strconv.Quote(str))
				imms = rest
				continue
			}
		}
		var words []uint32
		words, imms = spv.TakeImm(imms)
		out = append(out, formatWords(s.Kind(kind), words))
	}
	return out
}

func formatWords(desc *spec.OperandKindDesc, words []uint32) string {
	if len(words) > 1 {
		var b strings.Builder
		b.WriteString("0x")
		for i := len(words) - 1; i >= 0; i-- {
			fmt.Fprintf(&b, "%08x", words[i])
		}
		return b.String()
	}
	v := words[0]
	if desc == nil {
		return strconv.FormatUint(uint64(v), 10)
	}
	switch desc.Category {
	case spec.CategoryValueEnum:
		if e, ok := desc.Enumerant(v); ok {
			return e.Name
		}
	case spec.CategoryBitEnum:
		return formatBits(desc, v)
	}
	return strconv.FormatUint(uint64(v), 10)
}

// formatBits names each set bit of a BitEnum value, falling back to hex
// for bits the grammar does not know.
func formatBits(desc *spec.OperandKindDesc, v uint32) string {
	if v == 0 {
		if e, ok := desc.Enumerant(0); ok {
			return e.Name
		}
		return "0"
	}
	var parts []string
	for bit := uint32(1); bit != 0; bit <<= 1 {
		if v&bit == 0 {
			continue
		}
		if e, ok := desc.Enumerant(bit); ok {
			parts = append(parts, e.Name)
		} else {
			parts = append(parts, fmt.Sprintf("0x%x", bit))
		}
	}
	return strings.Join(parts, "|")
}

// enumName names value v of an enum kind.
func enumName(kind spec.OperandKind, v uint32) string {
	return formatWords(spec.Get().Kind(kind), []uint32{v})
}
