package decoder

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// control-flow op-bit tags (3 bits). VOID (111) is reserved for the idle
// row and must never collide with a real event tag (GLOSSARY: VOID).
const (
	cfJoin   = 0
	cfSplit  = 1
	cfLoop   = 2
	cfSpan   = 3
	cfRespan = 4
	cfEnd    = 5
	cfUserOp = 6
	cfVoid   = 7
)

// TraceBuffer is the append-only column store of Component C. Each public
// AppendX method writes exactly one row across every column, matching the
// per-column AddRow convention of ProcessorTableImpl/JumpStackTableImpl: one
// resizable slice per column, validated on append.
//
// Columns, in production order: addr, parentAddr (decoder bookkeeping, not
// part of the TraceState-viewed row), then the TraceState-compatible
// suffix: op_counter, sponge (width SpongeWidth, reused per row kind — see
// DESIGN.md), cf/ld/hd op-bits, ctx_stack (width ctxDepth), loop_stack
// (width loopDepth). The user stack is not owned by this buffer (§6:
// appended by the consumer).
type TraceBuffer struct {
	ctxDepth  int
	loopDepth int

	addr       []field.Element
	parentAddr []field.Element
	opCounter  []field.Element
	sponge     [SpongeWidth][]field.Element
	cfOpBits   [NumCFOpBits][]field.Element
	ldOpBits   [NumLDOpBits][]field.Element
	hdOpBits   [NumHDOpBits][]field.Element
	ctxStack   [][]field.Element
	loopStack  [][]field.Element

	height    int
	finalized bool
}

// NewTraceBuffer creates an empty buffer for the given configured context
// and loop stack depths.
func NewTraceBuffer(ctxDepth, loopDepth int) *TraceBuffer {
	b := &TraceBuffer{ctxDepth: ctxDepth, loopDepth: loopDepth}
	b.ctxStack = make([][]field.Element, ctxDepth)
	for i := range b.ctxStack {
		b.ctxStack[i] = make([]field.Element, 0)
	}
	b.loopStack = make([][]field.Element, loopDepth)
	for i := range b.loopStack {
		b.loopStack[i] = make([]field.Element, 0)
	}
	return b
}

// Height returns the number of rows appended so far.
func (b *TraceBuffer) Height() int { return b.height }

func (b *TraceBuffer) checkNotFinalized() {
	if b.finalized {
		Raise(FaultAppendAfterFinalize, "append after the trace buffer was finalized")
	}
}

// pushCommon appends the shared column set every row has: addr, parentAddr,
// op_counter (auto-incrementing), and the three op-bit groups decoded from
// cfCode/opcode. sponge must already hold the row-kind-specific payload.
func (b *TraceBuffer) pushCommon(addr, parentAddr field.Element, cfCode int, opcode uint8, sponge [SpongeWidth]field.Element) {
	b.checkNotFinalized()

	b.addr = append(b.addr, addr)
	b.parentAddr = append(b.parentAddr, parentAddr)

	counter := uint64(0)
	if b.height > 0 {
		counter = b.opCounter[b.height-1].Value() + 1
	}
	b.opCounter = append(b.opCounter, field.New(counter))

	for i := 0; i < SpongeWidth; i++ {
		b.sponge[i] = append(b.sponge[i], sponge[i])
	}

	for i := 0; i < NumCFOpBits; i++ {
		bit := (cfCode >> uint(i)) & 1
		b.cfOpBits[i] = append(b.cfOpBits[i], field.New(uint64(bit)))
	}
	for i := 0; i < NumLDOpBits; i++ {
		bit := (opcode >> uint(i)) & 1
		b.ldOpBits[i] = append(b.ldOpBits[i], field.New(uint64(bit)))
	}
	for i := 0; i < NumHDOpBits; i++ {
		bit := (opcode >> uint(NumLDOpBits+i)) & 1
		b.hdOpBits[i] = append(b.hdOpBits[i], field.New(uint64(bit)))
	}

	for i := 0; i < b.ctxDepth; i++ {
		b.ctxStack[i] = append(b.ctxStack[i], field.Zero)
	}
	for i := 0; i < b.loopDepth; i++ {
		b.loopStack[i] = append(b.loopStack[i], field.Zero)
	}

	b.height++
}

// zeroSponge returns an all-zero sponge payload, explicit about using
// field.Zero rather than a Go zero-valued array (field.Element's
// zero-value representation is not a contract this package relies on).
func zeroSponge() [SpongeWidth]field.Element {
	var s [SpongeWidth]field.Element
	for i := range s {
		s[i] = field.Zero
	}
	return s
}

// wordToSponge copies a single Word into the (now word-sized) sponge
// region.
func wordToSponge(w Word) [SpongeWidth]field.Element {
	var s [SpongeWidth]field.Element
	copy(s[:], w[:])
	return s
}

// AppendJoinRow appends a JOIN row. append_row's signature (§4.C) takes
// both children as Words, but SpongeWidth holds only one Word: the decoder
// does not consume either child's digest itself (only the hasher's
// returned addr matters — "the digest is validated elsewhere", §4.D), so
// only the first child is retained in the row; the second still feeds the
// hasher's 12-element input upstream in the state machine. child2 is kept
// as a parameter for signature fidelity with the spec.
func (b *TraceBuffer) AppendJoinRow(addr, parentAddr field.Element, left, right Word) {
	b.pushCommon(addr, parentAddr, cfJoin, 0, wordToSponge(left))
}

// AppendSplitRow appends a SPLIT row; see AppendJoinRow for why only
// onTrue is retained in the row.
func (b *TraceBuffer) AppendSplitRow(addr, parentAddr field.Element, onTrue, onFalse Word) {
	b.pushCommon(addr, parentAddr, cfSplit, 0, wordToSponge(onTrue))
}

// AppendLoopRow appends a LOOP row. Reserved for when LOOP semantics are
// resolved (§9 Open Question 1); the state machine currently never calls
// this (LoopUnsupported is raised first).
func (b *TraceBuffer) AppendLoopRow(addr, parentAddr field.Element, body Word) {
	b.pushCommon(addr, parentAddr, cfLoop, 0, wordToSponge(body))
}

// AppendSpanStartRow appends a SPAN row per append_span_start(parent_addr,
// first_group, num_groups): the sponge region holds the new batch's first
// op-group and its group count, not the full packed batch (that only ever
// fed the hasher's 12-element input, computed upstream).
func (b *TraceBuffer) AppendSpanStartRow(addr, parentAddr, firstGroup field.Element, numGroups int) {
	s := zeroSponge()
	s[0] = firstGroup
	s[1] = field.New(uint64(numGroups))
	b.pushCommon(addr, parentAddr, cfSpan, 0, s)
}

// AppendRespanRow appends a RESPAN row per append_respan(new_groups),
// mirroring AppendSpanStartRow's layout for the new batch.
func (b *TraceBuffer) AppendRespanRow(addr, parentAddr, firstGroup field.Element, numGroups int) {
	s := zeroSponge()
	s[0] = firstGroup
	s[1] = field.New(uint64(numGroups))
	b.pushCommon(addr, parentAddr, cfRespan, 0, s)
}

// AppendEndRow appends the terminating END row of any block kind; the
// sponge region holds the block's own hash.
func (b *TraceBuffer) AppendEndRow(addr, parentAddr field.Element, blockHash Word) {
	b.pushCommon(addr, parentAddr, cfEnd, 0, wordToSponge(blockHash))
}

// AppendUserOpRow appends one row per executed user opcode. The sponge
// region is otherwise unused during a user op (no hashing happens), so it
// carries the span context's two counters instead, satisfying the
// parent-address propagation requirement (addr/parentAddr are the dedicated
// bookkeeping columns every row already carries).
func (b *TraceBuffer) AppendUserOpRow(addr, parentAddr field.Element, op Operation, numGroupsLeft, groupOpsLeft field.Element) {
	s := zeroSponge()
	s[0] = numGroupsLeft
	s[1] = groupOpsLeft
	b.pushCommon(addr, parentAddr, cfUserOp, op.OpCode(), s)
}

// appendIdleRow appends the canonical padding row: VOID control-flow tag,
// op_counter held at the previous row's value, everything else zero. Every
// padding row up to the randomness window is an identical
// copy of this row (P5).
func (b *TraceBuffer) appendIdleRow() {
	b.pushCommon(field.Zero, field.Zero, cfVoid, 0, zeroSponge())
	// op_counter on idle rows is frozen, not incrementing: overwrite the
	// auto-incremented value pushCommon just wrote.
	last := b.height - 1
	frozen := field.Zero
	if last > 0 {
		frozen = b.opCounter[last-1]
	}
	b.opCounter[last] = frozen
}

// fillRandomRow appends an idle row, then overwrites its randomness
// columns (§9 DESIGN NOTES): the sponge region, chosen because it is
// already scratch space outside of active hashing or user-op rows and so
// can absorb noise without being mistaken for decoded state.
func (b *TraceBuffer) fillRandomRow(rng func() field.Element) {
	b.appendIdleRow()
	last := b.height - 1
	for i := 0; i < SpongeWidth; i++ {
		b.sponge[i][last] = rng()
	}
}

// IntoMatrix finalizes the trace (§4.C): pads with the canonical idle row
// up to traceLen-numRandRows, appends numRandRows rows of random field
// elements in the sponge (randomness) columns only, and freezes the buffer.
// Fatal if traceLen isn't a power of two, is smaller than the rows already
// used plus numRandRows, or if the buffer was already finalized.
func (b *TraceBuffer) IntoMatrix(traceLen, numRandRows int) (*Matrix, error) {
	b.checkNotFinalized()

	if traceLen <= 0 || traceLen&(traceLen-1) != 0 {
		Raise(FaultTraceLenTooSmall, "trace_len %d is not a power of two", traceLen)
	}
	if traceLen < MinTraceLen {
		Raise(FaultTraceLenTooSmall, "trace_len %d is below MinTraceLen %d", traceLen, MinTraceLen)
	}
	if traceLen < b.height+numRandRows {
		Raise(FaultTraceLenTooSmall, "trace_len %d cannot hold %d used rows plus %d random rows", traceLen, b.height, numRandRows)
	}
	if b.addr == nil {
		Raise(FaultEmptyColumn, "trace buffer has no rows")
	}

	for b.height < traceLen-numRandRows {
		b.appendIdleRow()
	}
	for b.height < traceLen {
		b.fillRandomRow(randomFieldElement)
	}

	b.finalized = true

	return &Matrix{
		ctxDepth:    b.ctxDepth,
		loopDepth:   b.loopDepth,
		traceLen:    traceLen,
		numRandRows: numRandRows,
		addr:        b.addr,
		parentAddr:  b.parentAddr,
		opCounter:   b.opCounter,
		sponge:      b.sponge,
		cfOpBits:    b.cfOpBits,
		ldOpBits:    b.ldOpBits,
		hdOpBits:    b.hdOpBits,
		ctxStack:    b.ctxStack,
		loopStack:   b.loopStack,
	}, nil
}

// randomFieldElement samples a uniformly random field element via
// crypto/rand, mirroring core/field.go's rand.Int(rand.Reader, modulus)
// sampling convention.
func randomFieldElement() field.Element {
	// field.Element's canonical representation fits comfortably in 63
	// bits for this VM's modulus; sample a random uint64 below 2^63 and
	// let field.New reduce it.
	max := new(big.Int).Lsh(big.NewInt(1), 63)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		// crypto/rand failure is an unrecoverable environment fault, not a
		// decoder contract violation; match the teacher's panic-on-entropy-
		// failure posture (core/field.go has no fallback either).
		panic(fmt.Errorf("decoder: failed to sample random field element: %w", err))
	}
	return field.New(n.Uint64())
}

// Matrix is the immutable, finalized trace. No column is mutated after
// construction (§5 Shared-resource policy).
type Matrix struct {
	ctxDepth    int
	loopDepth   int
	traceLen    int
	numRandRows int

	addr       []field.Element
	parentAddr []field.Element
	opCounter  []field.Element
	sponge     [SpongeWidth][]field.Element
	cfOpBits   [NumCFOpBits][]field.Element
	ldOpBits   [NumLDOpBits][]field.Element
	hdOpBits   [NumHDOpBits][]field.Element
	ctxStack   [][]field.Element
	loopStack  [][]field.Element
}

// Len returns the number of rows (a power of two, I-C1).
func (m *Matrix) Len() int { return m.traceLen }

// NumRandRows returns the configured trailing randomness-row count.
func (m *Matrix) NumRandRows() int { return m.numRandRows }

// Width returns the width of the TraceState-compatible row, i.e. the result
// DecoderRow would return for any row index.
func (m *Matrix) Width() int {
	return ComputeDecoderWidth(m.ctxDepth, m.loopDepth)
}

// Addr and ParentAddr expose the decoder's bookkeeping columns, which sit
// outside the TraceState-viewed row (used by the hasher cross-table
// argument, not by TraceState).
func (m *Matrix) Addr(row int) field.Element       { return m.addr[row] }
func (m *Matrix) ParentAddr(row int) field.Element { return m.parentAddr[row] }

// DecoderRow returns row `i` in TraceState layout order: op_counter, sponge,
// cf_op_bits, ld_op_bits, hd_op_bits, ctx_stack, loop_stack. It does not
// include a user stack; callers that need one append it themselves (§6).
func (m *Matrix) DecoderRow(i int) []field.Element {
	row := make([]field.Element, 0, m.Width())
	row = append(row, m.opCounter[i])
	for c := 0; c < SpongeWidth; c++ {
		row = append(row, m.sponge[c][i])
	}
	for c := 0; c < NumCFOpBits; c++ {
		row = append(row, m.cfOpBits[c][i])
	}
	for c := 0; c < NumLDOpBits; c++ {
		row = append(row, m.ldOpBits[c][i])
	}
	for c := 0; c < NumHDOpBits; c++ {
		row = append(row, m.hdOpBits[c][i])
	}
	for c := 0; c < m.ctxDepth; c++ {
		row = append(row, m.ctxStack[c][i])
	}
	for c := 0; c < m.loopDepth; c++ {
		row = append(row, m.loopStack[c][i])
	}
	return row
}
