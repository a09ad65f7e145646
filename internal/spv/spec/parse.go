package spec

import (
	"errors"
	"fmt"
	"reflect"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"
)

type rawGrammar struct {
	OperandKinds []rawOperandKind `toml:"operand_kinds"`
	Instructions []rawInstruction `toml:"instructions"`
}

type rawOperandKind struct {
	Kind       string         `toml:"kind"`
	Category   string         `toml:"category"`
	Bases      []string       `toml:"bases"`
	Enumerants []rawEnumerant `toml:"enumerants"`
}

type rawEnumerant struct {
	Name       string   `toml:"name"`
	Value      int64    `toml:"value"`
	Parameters []string `toml:"parameters"`
}

type rawInstruction struct {
	OpName   string       `toml:"opname"`
	Opcode   int64        `toml:"opcode"`
	Operands []rawOperand `toml:"operands"`
}

type rawOperand struct {
	Kind       string `toml:"kind"`
	Quantifier string `toml:"quantifier"`
	Name       string `toml:"name"`
}

var errGrammar = errors.New("malformed grammar")

// Parse decodes a grammar document. Get should be preferred; Parse exists
// for tests and tools that ship their own grammar.
func Parse(doc string) (*Spec, error) {
	var raw rawGrammar
	meta, err := toml.Decode(doc, &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errGrammar, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown key %q", errGrammar, undecoded[0].String())
	}

	s := &Spec{
		instructions: make(map[Opcode]*InstructionDesc, len(raw.Instructions)),
		kinds:        make([]OperandKindDesc, 0, len(raw.OperandKinds)),
		kindByName:   make(map[string]OperandKind, len(raw.OperandKinds)),
	}

	// Names first so that enumerant parameters and bases can refer forward.
	for _, rk := range raw.OperandKinds {
		if _, dup := s.kindByName[rk.Kind]; dup {
			return nil, fmt.Errorf("%w: duplicate operand kind %q", errGrammar, rk.Kind)
		}
		cat, ok := categoryNames[rk.Category]
		if !ok {
			return nil, fmt.Errorf("%w: operand kind %q: unknown category %q", errGrammar, rk.Kind, rk.Category)
		}
		s.kinds = append(s.kinds, OperandKindDesc{Name: rk.Kind, Category: cat})
		idx, err := safecast.Conv[uint16](len(s.kinds))
		if err != nil {
			return nil, fmt.Errorf("%w: too many operand kinds", errGrammar)
		}
		s.kindByName[rk.Kind] = OperandKind(idx)
	}

	for i, rk := range raw.OperandKinds {
		d := &s.kinds[i]
		for _, b := range rk.Bases {
			k, ok := s.kindByName[b]
			if !ok {
				return nil, fmt.Errorf("%w: operand kind %q: unknown base %q", errGrammar, rk.Kind, b)
			}
			d.Bases = append(d.Bases, k)
		}
		if len(rk.Enumerants) == 0 {
			continue
		}
		d.byValue = make(map[uint32]int, len(rk.Enumerants))
		for _, re := range rk.Enumerants {
			v, err := safecast.Conv[uint32](re.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: enumerant %s.%s: %w", errGrammar, rk.Kind, re.Name, err)
			}
			e := Enumerant{Name: re.Name, Value: v}
			for _, p := range re.Parameters {
				k, ok := s.kindByName[p]
				if !ok {
					return nil, fmt.Errorf("%w: enumerant %s.%s: unknown parameter kind %q", errGrammar, rk.Kind, re.Name, p)
				}
				e.Params = append(e.Params, k)
			}
			d.byValue[v] = len(d.Enumerants)
			d.Enumerants = append(d.Enumerants, e)
		}
	}

	for _, ri := range raw.Instructions {
		code, err := safecast.Conv[uint16](ri.Opcode)
		if err != nil {
			return nil, fmt.Errorf("%w: instruction %s: %w", errGrammar, ri.OpName, err)
		}
		op := Opcode(code)
		if _, dup := s.instructions[op]; dup {
			return nil, fmt.Errorf("%w: duplicate opcode %d", errGrammar, code)
		}
		desc := &InstructionDesc{Name: ri.OpName, Opcode: op}
		for pos, ro := range ri.Operands {
			switch ro.Kind {
			case "IdResultType":
				if pos != 0 {
					return nil, fmt.Errorf("%w: %s: IdResultType must come first", errGrammar, ri.OpName)
				}
				desc.HasResultType = true
				continue
			case "IdResult":
				if pos > 1 || (pos == 1 && !desc.HasResultType) {
					return nil, fmt.Errorf("%w: %s: misplaced IdResult", errGrammar, ri.OpName)
				}
				desc.HasResultID = true
				continue
			}
			k, ok := s.kindByName[ro.Kind]
			if !ok {
				return nil, fmt.Errorf("%w: %s: unknown operand kind %q", errGrammar, ri.OpName, ro.Kind)
			}
			var q Quantifier
			switch ro.Quantifier {
			case "":
				q = One
			case "?":
				q = Optional
			case "*":
				q = Rest
			default:
				return nil, fmt.Errorf("%w: %s: unknown quantifier %q", errGrammar, ri.OpName, ro.Quantifier)
			}
			desc.Operands = append(desc.Operands, OperandDesc{Kind: k, Quantifier: q, Name: ro.Name})
		}
		s.instructions[op] = desc
	}

	if err := s.resolveWellKnown(); err != nil {
		return nil, err
	}
	return s, nil
}

// resolveWellKnown fills every WellKnown field from the kind with the
// matching name. Field names spell the grammar name with "ID" for "Id".
func (s *Spec) resolveWellKnown() error {
	rv := reflect.ValueOf(&s.WellKnown).Elem()
	rt := rv.Type()
	for i := range rt.NumField() {
		name := rt.Field(i).Name
		grammarName := name
		if len(name) > 2 && name[:2] == "ID" {
			grammarName = "Id" + name[2:]
		}
		k, ok := s.kindByName[grammarName]
		if !ok {
			return fmt.Errorf("%w: missing well-known operand kind %q", errGrammar, grammarName)
		}
		rv.Field(i).SetUint(uint64(k))
	}
	return nil
}
