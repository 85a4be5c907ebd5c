// Package decoder implements the execution-trace decoder of the Vybium
// STARKs VM: the control-flow state machine that walks a program's block
// tree and emits the cycle-accurate rows later consumed by the AIR
// evaluator.
package decoder

// Layout constants for a single decoder trace row. Naming follows the
// range/index constants named by the original trace_state module
// (CF_OP_BITS_RANGE, LD_OP_BITS_RANGE, HD_OP_BITS_RANGE, MIN_CONTEXT_DEPTH,
// MIN_LOOP_DEPTH, MIN_STACK_DEPTH, NUM_CF_OP_BITS, NUM_LD_OP_BITS,
// NUM_HD_OP_BITS, OP_COUNTER_IDX, OP_SPONGE_RANGE, PROGRAM_DIGEST_SIZE,
// SPONGE_WIDTH) re-expressed as Go constants.
const (
	// OpCounterIdx is the column index of the operation counter.
	OpCounterIdx = 0

	// SpongeWidth is the width of the sponge/child-hash region: one Word
	// (4 field elements). Forced by spec.md §8 scenarios 1 and 2 — both
	// give a literal row and a stated width, and subtracting the other four
	// fixed-width regions (op_counter=1, cf=3, ld=5, hd=2) from each leaves
	// exactly 4 for the sponge in both cases independently. See DESIGN.md
	// for how this reconciles with append_row's two-Word (child1, child2)
	// signature.
	SpongeWidth = 4

	// ProgramDigestSize is the number of leading sponge cells that make up
	// a block's digest (one Word).
	ProgramDigestSize = 4

	// NumCFOpBits is the width of the control-flow op-bits region.
	NumCFOpBits = 3
	// NumLDOpBits is the width of the low-level decode op-bits region.
	NumLDOpBits = 5
	// NumHDOpBits is the width of the high-level decode op-bits region.
	NumHDOpBits = 2

	// MinContextDepth, MinLoopDepth and MinStackDepth are the enforced
	// minimum lengths TraceState pads the corresponding stack regions to.
	MinContextDepth = 1
	MinLoopDepth     = 1
	MinStackDepth    = 8

	// HasherCycleLen is the fixed 8-row window during which the hash
	// coprocessor absorbs one 12-element input and emits a digest. Each
	// op-batch occupies exactly one such cycle.
	HasherCycleLen = 8

	// OpBitsPerOpcode is the width (in bits) of a single packed opcode
	// within an op-group (collaborator Operation.OP_BITS).
	OpBitsPerOpcode = 7

	// OpsPerGroup is the number of opcodes packed into one op-group.
	OpsPerGroup = 9

	// MaxGroupsPerBatch is the maximum number of op-groups in one op-batch.
	MaxGroupsPerBatch = 8

	// MinTraceLen is the minimum power-of-two trace length the decoder
	// will finalize into (I-C1).
	MinTraceLen = 16
)

// Column ranges, derived from the widths above; [Start, End) semantics.
const (
	OpSpongeStart = OpCounterIdx + 1
	OpSpongeEnd   = OpSpongeStart + SpongeWidth

	CFOpBitsStart = OpSpongeEnd
	CFOpBitsEnd   = CFOpBitsStart + NumCFOpBits

	LDOpBitsStart = CFOpBitsEnd
	LDOpBitsEnd   = LDOpBitsStart + NumLDOpBits

	HDOpBitsStart = LDOpBitsEnd
	HDOpBitsEnd   = HDOpBitsStart + NumHDOpBits

	// ConstWidth is the portion of row width that does not depend on the
	// configured context/loop/stack depths.
	ConstWidth = HDOpBitsEnd
)

// ComputeDecoderWidth mirrors TraceState::compute_decoder_width(ctx_depth,
// loop_depth): the width of the decoder-owned portion of a trace row,
// excluding the user stack (which a downstream consumer appends).
func ComputeDecoderWidth(ctxDepth, loopDepth int) int {
	return ConstWidth + ctxDepth + loopDepth
}
