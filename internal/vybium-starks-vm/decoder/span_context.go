package decoder

import "github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

// SpanContext tracks, while inside a SPAN, how many operation groups remain
// in the current batch and which opcodes remain in the current 9-opcode
// group (Component B). It exists iff the state machine is inside a span
// (I-B1); every operation here except Start is preconditioned on that and
// fatal otherwise, while Start is fatal if a context is already active.
type SpanContext struct {
	GroupOpsLeft  field.Element
	NumGroupsLeft field.Element
}

// spanContextHolder is embedded by the state machine; kept separate so the
// "currently in span" precondition can be checked uniformly.
type spanContextHolder struct {
	ctx *SpanContext
}

func (h *spanContextHolder) require() *SpanContext {
	if h.ctx == nil {
		Raise(FaultSpanContextMissing, "operation requires an active span context")
	}
	return h.ctx
}

// Start initializes a fresh SpanContext for a batch: the first group is
// already "in progress", so NumGroupsLeft is numGroups-1.
func (h *spanContextHolder) Start(firstGroup field.Element, numGroups int) {
	if h.ctx != nil {
		Raise(FaultSpanContextAlreadyActive, "start called while a span context is already active")
	}
	h.ctx = &SpanContext{
		GroupOpsLeft:  firstGroup,
		NumGroupsLeft: field.New(uint64(numGroups - 1)),
	}
}

// ConsumeImmediate decrements NumGroupsLeft by 1: used when the previously
// executed opcode pushes a literal that occupies the next group.
func (h *spanContextHolder) ConsumeImmediate() {
	ctx := h.require()
	ctx.NumGroupsLeft = field.New(ctx.NumGroupsLeft.Value() - 1)
}

// StartOpGroup loads the next group's packed opcodes and decrements
// NumGroupsLeft.
func (h *spanContextHolder) StartOpGroup(nextGroup field.Element) {
	ctx := h.require()
	ctx.GroupOpsLeft = nextGroup
	ctx.NumGroupsLeft = field.New(ctx.NumGroupsLeft.Value() - 1)
}

// ExecuteUserOp replaces GroupOpsLeft with (GroupOpsLeft - op.Opcode) / 2^7
// (P4). Decorators must never reach here: this method raises
// FaultDecoratorInUserOp for one, in every build.
func (h *spanContextHolder) ExecuteUserOp(op Operation) {
	if op.IsDecorator() {
		Raise(FaultDecoratorInUserOp, "decorator operation reached ExecuteUserOp")
	}
	ctx := h.require()
	ctx.GroupOpsLeft = removeOpcodeFromGroup(ctx.GroupOpsLeft, op)
}

// removeOpcodeFromGroup implements the opcode-removal arithmetic the AIR
// verifies algebraically: (g - op.opcode) / 2^7, division being integer
// division on the field element's canonical integer representation.
func removeOpcodeFromGroup(g field.Element, op Operation) field.Element {
	return field.New((g.Value() - uint64(op.OpCode())) / (1 << OpBitsPerOpcode))
}

// Respan replaces the entire context with the new batch's first group and
// groupCount-1.
func (h *spanContextHolder) Respan(firstGroup field.Element, groupCount int) {
	h.require()
	h.ctx = &SpanContext{
		GroupOpsLeft:  firstGroup,
		NumGroupsLeft: field.New(uint64(groupCount - 1)),
	}
}

// End drops the context.
func (h *spanContextHolder) End() {
	h.require()
	h.ctx = nil
}

// Active reports whether a span context currently exists (I-B1).
func (h *spanContextHolder) Active() bool { return h.ctx != nil }

// Context returns the live context, or nil if none is active.
func (h *spanContextHolder) Context() *SpanContext { return h.ctx }
