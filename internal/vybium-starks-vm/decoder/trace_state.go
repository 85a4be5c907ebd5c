package decoder

import "github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

// TraceState is Component E: a read-only view over one flattened decoder
// row, slicing it into the seven named regions §3/§4.E list in order:
// operation counter, sponge, control-flow op-bits, low/high decode
// op-bits, context stack, loop stack, user stack. Grounded on
// original_source's trace_state.rs range constants and on
// ProcessorTableImpl's GetMainColumns-style flattening for ToVec.
//
// TraceState owns no mutable state beyond the current row slice: Update
// replaces it wholesale, matching the "recompute every region from scratch"
// contract of P6 (round-trip fidelity).
//
// Width (the row length Update/ToVec expect) uses the three depths
// unpadded: ConstWidth + ctxDepth + loopDepth + stackDepth (§8 scenario 1:
// depths (0,0,2) on a 17-element row with ConstWidth 15). The
// CtxStack/LoopStack/UserStack accessors,
// by contrast, zero-pad their returned region up to MinContextDepth/
// MinLoopDepth/MinStackDepth even when the configured depth is smaller —
// §4.E: "padded with zeros up to enforced minima" — so a depth-0 context
// stack still reads back as a single zero, and a 2-element user stack
// reads back as 8 elements with 6 trailing zeros.
type TraceState struct {
	ctxDepth   int
	loopDepth  int
	stackDepth int
	row        []field.Element
}

// NewTraceState returns a view sized for the given context/loop/user stack
// depths, with no row loaded yet.
func NewTraceState(ctxDepth, loopDepth, stackDepth int) *TraceState {
	return &TraceState{ctxDepth: ctxDepth, loopDepth: loopDepth, stackDepth: stackDepth}
}

// Width returns the exact row length Update expects and ToVec returns:
// ComputeDecoderWidth(ctxDepth, loopDepth) + stackDepth.
func (s *TraceState) Width() int {
	return ComputeDecoderWidth(s.ctxDepth, s.loopDepth) + s.stackDepth
}

// Update loads a new row. Fatal if its length doesn't match Width (a
// contract violation, not a data error: the caller sliced the matrix
// wrong).
func (s *TraceState) Update(row []field.Element) {
	if len(row) != s.Width() {
		Raise(FaultEmptyColumn, "trace state row width %d does not match configured width %d", len(row), s.Width())
	}
	s.row = row
}

// ToVec returns the loaded row unchanged (P6: TraceState.from(x).ToVec()
// == x for any row x of the correct width).
func (s *TraceState) ToVec() []field.Element {
	out := make([]field.Element, len(s.row))
	copy(out, s.row)
	return out
}

func (s *TraceState) opCounterIdx() int { return OpCounterIdx }
func (s *TraceState) spongeStart() int  { return OpSpongeStart }
func (s *TraceState) cfStart() int      { return CFOpBitsStart }
func (s *TraceState) ldStart() int      { return LDOpBitsStart }
func (s *TraceState) hdStart() int      { return HDOpBitsStart }
func (s *TraceState) ctxStart() int     { return ConstWidth }
func (s *TraceState) loopStart() int    { return ConstWidth + s.ctxDepth }
func (s *TraceState) stackStart() int   { return ConstWidth + s.ctxDepth + s.loopDepth }

// OpCounter returns the operation-counter region (width 1).
func (s *TraceState) OpCounter() field.Element {
	return s.row[s.opCounterIdx()]
}

// Sponge returns the sponge region (width SpongeWidth). Its meaning is
// row-kind dependent: the first child's hash Word for JOIN/SPLIT, the body
// hash for LOOP, the block's own hash for END, the new batch's first op-group and group count for SPAN/RESPAN, or the
// span context's two counters for USER-OP rows (see TraceBuffer).
func (s *TraceState) Sponge() []field.Element {
	return s.row[s.spongeStart() : s.spongeStart()+SpongeWidth]
}

// ProgramHash returns the first ProgramDigestSize sponge elements as a
// Word, the convention used for a block's hash on its END row.
func (s *TraceState) ProgramHash() Word {
	sp := s.Sponge()
	var w Word
	copy(w[:], sp[0:ProgramDigestSize])
	return w
}

// CFOpBits returns the control-flow op-bits region (width NumCFOpBits).
func (s *TraceState) CFOpBits() []field.Element {
	return s.row[s.cfStart() : s.cfStart()+NumCFOpBits]
}

// LDOpBits returns the low-level decode op-bits region (width
// NumLDOpBits).
func (s *TraceState) LDOpBits() []field.Element {
	return s.row[s.ldStart() : s.ldStart()+NumLDOpBits]
}

// HDOpBits returns the high-level decode op-bits region (width
// NumHDOpBits).
func (s *TraceState) HDOpBits() []field.Element {
	return s.row[s.hdStart() : s.hdStart()+NumHDOpBits]
}

// padded copies src and appends zero elements until the result has at
// least minLen elements.
func padded(src []field.Element, minLen int) []field.Element {
	out := make([]field.Element, len(src), maxInt(len(src), minLen))
	copy(out, src)
	for len(out) < minLen {
		out = append(out, field.Zero)
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// CtxStack returns the context-stack region, zero-padded up to
// MinContextDepth.
func (s *TraceState) CtxStack() []field.Element {
	raw := s.row[s.ctxStart() : s.ctxStart()+s.ctxDepth]
	return padded(raw, MinContextDepth)
}

// LoopStack returns the loop-stack region, zero-padded up to
// MinLoopDepth.
func (s *TraceState) LoopStack() []field.Element {
	raw := s.row[s.loopStart() : s.loopStart()+s.loopDepth]
	return padded(raw, MinLoopDepth)
}

// UserStack returns the user-stack region, zero-padded up to
// MinStackDepth.
func (s *TraceState) UserStack() []field.Element {
	raw := s.row[s.stackStart() : s.stackStart()+s.stackDepth]
	return padded(raw, MinStackDepth)
}

// VoidOpFlag reports whether this row is the canonical idle/padding row:
// all three control-flow op-bits are 1 (cf_op_bits == [1,1,1], the VOID
// tag reserved so it never collides with a real event).
func (s *TraceState) VoidOpFlag() bool {
	for _, b := range s.CFOpBits() {
		if b.Value() != 1 {
			return false
		}
	}
	return true
}

// OpCode reconstructs the 7-bit user opcode from the low/high decode
// op-bits (P7): ld0 + 2*ld1 + 4*ld2 + 8*ld3 + 16*ld4 + 32*hd0 + 64*hd1.
// Only meaningful on a USER-OP row; on any other row kind the op-bits are
// zero and this returns 0.
func (s *TraceState) OpCode() uint8 {
	ld := s.LDOpBits()
	hd := s.HDOpBits()
	var code uint64
	for i, b := range ld {
		code += b.Value() << uint(i)
	}
	for i, b := range hd {
		code += b.Value() << uint(NumLDOpBits+i)
	}
	return uint8(code)
}
