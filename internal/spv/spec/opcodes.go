package spec

// Opcodes spvir handles by role. Everything else is carried generically and
// named through the grammar.
const (
	OpNop                  Opcode = 0
	OpUndef                Opcode = 1
	OpSourceContinued      Opcode = 2
	OpSource               Opcode = 3
	OpSourceExtension      Opcode = 4
	OpName                 Opcode = 5
	OpMemberName           Opcode = 6
	OpString               Opcode = 7
	OpLine                 Opcode = 8
	OpExtension            Opcode = 10
	OpExtInstImport        Opcode = 11
	OpExtInst              Opcode = 12
	OpMemoryModel          Opcode = 14
	OpEntryPoint           Opcode = 15
	OpExecutionMode        Opcode = 16
	OpCapability           Opcode = 17
	OpTypeVoid             Opcode = 19
	OpTypeBool             Opcode = 20
	OpTypeInt              Opcode = 21
	OpTypeFloat            Opcode = 22
	OpTypeVector           Opcode = 23
	OpTypeMatrix           Opcode = 24
	OpTypeImage            Opcode = 25
	OpTypeSampler          Opcode = 26
	OpTypeSampledImage     Opcode = 27
	OpTypeArray            Opcode = 28
	OpTypeRuntimeArray     Opcode = 29
	OpTypeStruct           Opcode = 30
	OpTypeOpaque           Opcode = 31
	OpTypePointer          Opcode = 32
	OpTypeFunction         Opcode = 33
	OpTypeForwardPointer   Opcode = 39
	OpConstantTrue         Opcode = 41
	OpConstantFalse        Opcode = 42
	OpConstant             Opcode = 43
	OpConstantComposite    Opcode = 44
	OpConstantSampler      Opcode = 45
	OpConstantNull         Opcode = 46
	OpSpecConstantTrue     Opcode = 48
	OpSpecConstantFalse    Opcode = 49
	OpSpecConstant         Opcode = 50
	OpSpecConstantComp     Opcode = 51
	OpSpecConstantOp       Opcode = 52
	OpFunction             Opcode = 54
	OpFunctionParameter    Opcode = 55
	OpFunctionEnd          Opcode = 56
	OpFunctionCall         Opcode = 57
	OpVariable             Opcode = 59
	OpLoad                 Opcode = 61
	OpStore                Opcode = 62
	OpAccessChain          Opcode = 65
	OpDecorate             Opcode = 71
	OpMemberDecorate       Opcode = 72
	OpDecorationGroup      Opcode = 73
	OpGroupDecorate        Opcode = 74
	OpGroupMemberDecorate  Opcode = 75
	OpIAdd                 Opcode = 128
	OpFAdd                 Opcode = 129
	OpLabel                Opcode = 248
	OpBranch               Opcode = 249
	OpReturn               Opcode = 253
	OpReturnValue          Opcode = 254
	OpNoLine               Opcode = 317
	OpModuleProcessed      Opcode = 330
	OpExecutionModeID      Opcode = 331
	OpDecorateID           Opcode = 332
	OpDecorateString       Opcode = 5632
	OpMemberDecorateString Opcode = 5633
)

// Decoration values lowering interprets.
const (
	DecorationLinkageAttributes uint32 = 41
)

// LinkageType values.
const (
	LinkageExport uint32 = 0
	LinkageImport uint32 = 1
)

// Capability values referenced directly.
const (
	CapabilityShader  uint32 = 1
	CapabilityLinkage uint32 = 5
)

// StorageClass values referenced directly.
const (
	StorageClassFunction uint32 = 7
)
