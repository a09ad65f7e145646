package testkit

import (
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"

	"spvir/internal/spv"
	"spvir/internal/spv/spec"
)

// Inst encodes one instruction. Parts may be uint32, int, spv.ID or string;
// strings are packed as nul-terminated literals.
func Inst(op spec.Opcode, parts ...any) []uint32 {
	words := []uint32{0}
	for _, p := range parts {
		switch v := p.(type) {
		case uint32:
			words = append(words, v)
		case int:
			w, err := safecast.Conv[uint32](v)
			if err != nil {
				panic(fmt.Sprintf("testkit: operand %d: %v", v, err))
			}
			words = append(words, w)
		case spv.ID:
			words = append(words, uint32(v))
		case string:
			words = append(words, spv.EncodeString(v)...)
		default:
			panic(fmt.Sprintf("testkit: unsupported operand %T", p))
		}
	}
	words[0] = uint32(len(words))<<16 | uint32(op)
	return words
}

// Assemble builds a little-endian module from a header and instructions.
func Assemble(version, generator, bound uint32, insts ...[]uint32) []byte {
	words := []uint32{spec.Magic, version, generator, bound, 0}
	for _, in := range insts {
		words = append(words, in...)
	}
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return buf
}

// Sample header values.
const (
	SampleVersion   uint32 = 0x00010500
	SampleGenerator uint32 = 0x00080001
	SampleBound     uint32 = 40
)

// SampleModule is a small linkable compute module that exercises forward
// references, linkage imports and exports, entry point interfaces, debug
// lines, an extended instruction set and a 64-bit literal.
func SampleModule() []byte {
	return Assemble(SampleVersion, SampleGenerator, SampleBound, SampleInsts()...)
}

// SampleInsts returns the instructions of SampleModule.
func SampleInsts() [][]uint32 {
	return [][]uint32{
		Inst(spec.OpCapability, 1),  // Shader
		Inst(spec.OpCapability, 5),  // Linkage
		Inst(spec.OpCapability, 10), // Float64
		Inst(spec.OpExtension, "SPV_KHR_storage_buffer_storage_class"),
		Inst(spec.OpExtInstImport, 1, "GLSL.std.450"),
		Inst(spec.OpMemoryModel, 0, 1),
		Inst(spec.OpEntryPoint, 5, 10, "main", 8),
		Inst(spec.OpExecutionMode, 10, 17, 1, 1, 1),
		Inst(spec.OpString, 2, "shader.comp"),
		Inst(spec.OpSource, 2, 450, 2),
		Inst(spec.OpSourceExtension, "GL_GOOGLE_cpp_style_line_directive"),
		Inst(spec.OpName, 10, "main"),
		Inst(spec.OpName, 8, "counter"),
		Inst(spec.OpDecorate, 8, 30, 0),
		Inst(spec.OpDecorate, 12, 41, "ext_helper", 1),
		Inst(spec.OpDecorate, 14, 41, "exported_fn", 0),
		Inst(spec.OpTypeVoid, 3),
		Inst(spec.OpTypeFunction, 4, 3),
		Inst(spec.OpTypeInt, 5, 32, 0),
		Inst(spec.OpConstant, 5, 6, 7),
		Inst(spec.OpTypePointer, 7, 3, 5),
		Inst(spec.OpVariable, 7, 8, 3, 6),
		Inst(spec.OpTypeFunction, 9, 5, 5),
		Inst(spec.OpTypeFloat, 11, 64),
		Inst(spec.OpConstant, 11, 13, 0, 0x40140000), // 5.0

		Inst(spec.OpFunction, 5, 12, 0, 9),
		Inst(spec.OpFunctionParameter, 5, 15),
		Inst(spec.OpFunctionEnd),

		Inst(spec.OpFunction, 3, 10, 0, 4),
		Inst(spec.OpLabel, 16),
		Inst(spec.OpLine, 2, 3, 1),
		Inst(spec.OpFunctionCall, 5, 17, 14, 6),
		Inst(109, 5, 23, 13), // OpConvertFToU
		Inst(spec.OpIAdd, 5, 18, 17, 23),
		Inst(spec.OpStore, 8, 18),
		Inst(spec.OpNoLine),
		Inst(spec.OpBranch, 19),
		Inst(spec.OpLabel, 19),
		Inst(spec.OpReturn),
		Inst(spec.OpFunctionEnd),

		Inst(spec.OpFunction, 5, 14, 2, 9),
		Inst(spec.OpFunctionParameter, 5, 20),
		Inst(spec.OpLabel, 21),
		Inst(spec.OpFunctionCall, 5, 24, 12, 20),
		Inst(spec.OpExtInst, 5, 22, 1, 38, 24, 6), // UMin
		Inst(spec.OpReturnValue, 22),
		Inst(spec.OpFunctionEnd),
	}
}
