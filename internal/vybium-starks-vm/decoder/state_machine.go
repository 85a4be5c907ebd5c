package decoder

import "github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

// Decoder is Component D: the state machine that drives a BlockStack, a
// SpanContext, and a TraceBuffer in lockstep as it walks a program's code
// blocks, consulting the Hasher and StackMachine collaborators at block
// boundaries. Modeled on SimpleTraceRecorder's single-threaded "record one
// thing per step, then hand the finished trace to the caller" shape, with
// AlgebraicExecutionTrace's role of owning and sequencing the sub-components.
type Decoder struct {
	blockStack *BlockStack
	span       spanContextHolder
	buf        *TraceBuffer
	hasher     Hasher
	stack      StackMachine
}

// NewDecoder wires a fresh Decoder over the given collaborators. ctxDepth
// and loopDepth size the trace buffer's context/loop stack columns.
func NewDecoder(hasher Hasher, stack StackMachine, ctxDepth, loopDepth int) *Decoder {
	return &Decoder{
		blockStack: NewBlockStack(),
		buf:        NewTraceBuffer(ctxDepth, loopDepth),
		hasher:     hasher,
		stack:      stack,
	}
}

// UsedLength returns the number of rows produced so far (§9 Open Question
// 3: callers that want to self-derive trace_len can read this rather than
// supply it externally).
func (d *Decoder) UsedLength() int { return d.buf.Height() }

func zeroHasherInput() [12]field.Element {
	var in [12]field.Element
	for i := range in {
		in[i] = field.Zero
	}
	return in
}

func (d *Decoder) hashChildren(left, right Word) (field.Element, Word) {
	in := zeroHasherInput()
	copy(in[0:4], left[:])
	copy(in[4:8], right[:])
	return d.hasher.Hash(in)
}

func (d *Decoder) hashSingle(body Word) (field.Element, Word) {
	in := zeroHasherInput()
	copy(in[0:4], body[:])
	return d.hasher.Hash(in)
}

func (d *Decoder) hashBatch(batch OpBatch) (field.Element, Word) {
	in := zeroHasherInput()
	groups := batch.Groups()
	copy(in[0:8], groups[:])
	return d.hasher.Hash(in)
}

// StartJoin begins a JOIN block: hashes the two children to allocate an
// address, pushes it onto the block stack, appends a JOIN row, and issues a
// Noop to the stack machine (every block boundary touches the stack per
// §6.2).
func (d *Decoder) StartJoin(block *JoinBlock) error {
	addr, _ := d.hashChildren(block.First.Hash(), block.Second.Hash())
	parentAddr := d.blockStack.Push(addr)
	d.buf.AppendJoinRow(addr, parentAddr, block.First.Hash(), block.Second.Hash())
	return d.stack.ExecuteOp(StackOpNoop)
}

// EndJoin closes the current JOIN block: pops the block stack and appends
// the terminal END row.
func (d *Decoder) EndJoin(block *JoinBlock) error {
	top := d.blockStack.Pop()
	d.buf.AppendEndRow(top.Addr, top.ParentAddr, block.Hash())
	return d.stack.ExecuteOp(StackOpNoop)
}

// StartSplit begins a SPLIT block: reads the conditional off the user
// stack (not recorded in the row; §9 Open Question 2), hashes the two
// branches to allocate an address, pushes it, appends a SPLIT row, and
// drops the consumed condition from the stack.
func (d *Decoder) StartSplit(block *SplitBlock) (field.Element, error) {
	cond, err := d.stack.Peek()
	if err != nil {
		return field.Zero, err
	}
	addr, _ := d.hashChildren(block.OnTrue.Hash(), block.OnFalse.Hash())
	parentAddr := d.blockStack.Push(addr)
	d.buf.AppendSplitRow(addr, parentAddr, block.OnTrue.Hash(), block.OnFalse.Hash())
	if err := d.stack.ExecuteOp(StackOpDrop); err != nil {
		return field.Zero, err
	}
	return cond, nil
}

// EndSplit closes the current SPLIT block.
func (d *Decoder) EndSplit(block *SplitBlock) error {
	top := d.blockStack.Pop()
	d.buf.AppendEndRow(top.Addr, top.ParentAddr, block.Hash())
	return d.stack.ExecuteOp(StackOpNoop)
}

// StartLoop begins a LOOP block. LOOP semantics are an unresolved open
// question (§9 Open Question 1: does a false loop condition still append a
// row?); rather than guess, this raises a capability fault so callers fail
// loudly instead of silently getting behavior nobody decided on.
func (d *Decoder) StartLoop(block *LoopBlock) error {
	Raise(FaultLoopUnsupported, "LOOP block semantics are not implemented pending resolution of the loop-row open question")
	return nil
}

// StartSpan begins a SPAN block: hashes the first op-batch (up to 8
// groups) to allocate an address, pushes it, appends the SPAN row, and
// starts the span context over that first batch's first group.
func (d *Decoder) StartSpan(block *SpanBlock) error {
	if len(block.Batches) == 0 {
		Raise(FaultEmptyColumn, "span block has no op-batches")
	}
	first := block.Batches[0]
	addr, _ := d.hashBatch(first)
	parentAddr := d.blockStack.Push(addr)
	groups := first.Groups()
	d.buf.AppendSpanStartRow(addr, parentAddr, groups[0], first.NumGroups())
	d.span.Start(groups[0], first.NumGroups())
	return d.stack.ExecuteOp(StackOpNoop)
}

// Respan advances to the next op-batch within the current SPAN: the block
// stack's top address moves forward by one hasher cycle (BlockStack.Respan),
// a RESPAN row is appended, and the span context restarts over the new
// batch.
func (d *Decoder) Respan(batch OpBatch) {
	d.blockStack.Respan()
	top := d.blockStack.Peek()
	groups := batch.Groups()
	d.buf.AppendRespanRow(top.Addr, top.ParentAddr, groups[0], batch.NumGroups())
	d.span.Respan(groups[0], batch.NumGroups())
}

// ExecuteUserOp records one decoded opcode: appends a USER-OP row carrying
// the current span context's two counters, then advances the context.
// Loading the next op group (StartOpGroup) and accounting for an immediate
// held in the next group (ConsumeImmediate) are the caller's responsibility;
// this method only performs the per-op GroupOpsLeft update (P4).
func (d *Decoder) ExecuteUserOp(op Operation) error {
	ctx := d.span.require()
	top := d.blockStack.Peek()
	d.buf.AppendUserOpRow(top.Addr, top.ParentAddr, op, ctx.NumGroupsLeft, ctx.GroupOpsLeft)
	d.span.ExecuteUserOp(op)
	return d.stack.ExecuteOp(StackOpNoop)
}

// StartOpGroup loads the next packed op-group into the span context
// (without appending a row itself; the next ExecuteUserOp call records it).
func (d *Decoder) StartOpGroup(nextGroup field.Element) {
	d.span.StartOpGroup(nextGroup)
}

// ConsumeImmediate accounts for an operation that consumed the next group
// as a literal immediate rather than as packed opcodes.
func (d *Decoder) ConsumeImmediate() {
	d.span.ConsumeImmediate()
}

// EndSpan closes the current SPAN block.
func (d *Decoder) EndSpan(block *SpanBlock) error {
	d.span.End()
	top := d.blockStack.Pop()
	d.buf.AppendEndRow(top.Addr, top.ParentAddr, block.Hash())
	return d.stack.ExecuteOp(StackOpNoop)
}

// InSpan reports whether a span context is currently active (I-B1).
func (d *Decoder) InSpan() bool { return d.span.Active() }

// BlockDepth returns the current block stack depth.
func (d *Decoder) BlockDepth() int { return d.blockStack.Len() }

// IntoMatrix finalizes the trace buffer (§4.C); see TraceBuffer.IntoMatrix.
func (d *Decoder) IntoMatrix(traceLen, numRandRows int) (*Matrix, error) {
	return d.buf.IntoMatrix(traceLen, numRandRows)
}
