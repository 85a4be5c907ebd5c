package decoder

import "github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

// Word is a fixed-width tuple of four field elements, used for hash digests
// and for child hashes. A control-flow row stores only one Word (the first
// child's hash); the second child's hash is not written into the row.
type Word [4]field.Element

// ZeroWord is the all-zero Word, used to pad hasher inputs and terminal rows.
var ZeroWord = Word{field.Zero, field.Zero, field.Zero, field.Zero}

// BlockKind discriminates the four CodeBlock variants.
type BlockKind int

const (
	// KindJoin is sequential composition of two blocks.
	KindJoin BlockKind = iota
	// KindSplit is a conditional on the top of the user stack.
	KindSplit
	// KindLoop is a while-nonzero over the top of the user stack.
	KindLoop
	// KindSpan is straight-line code grouped into op-batches.
	KindSpan
)

func (k BlockKind) String() string {
	switch k {
	case KindJoin:
		return "Join"
	case KindSplit:
		return "Split"
	case KindLoop:
		return "Loop"
	case KindSpan:
		return "Span"
	default:
		return "Unknown"
	}
}

// CodeBlock is the external, opaque program-tree node the decoder consumes.
// It is pure data: the decoder is driven through typed per-kind entry points
// (StartJoin, StartSplit, StartSpan, ...) and never recurses into the tree
// itself (§9 DESIGN NOTES: No recursion).
type CodeBlock interface {
	Kind() BlockKind
	Hash() Word
}

// JoinBlock is sequential composition: First then Second.
type JoinBlock struct {
	First, Second CodeBlock
	BlockHash     Word
}

func (b *JoinBlock) Kind() BlockKind { return KindJoin }
func (b *JoinBlock) Hash() Word      { return b.BlockHash }

// SplitBlock is a conditional on the top-of-stack: OnTrue or OnFalse.
type SplitBlock struct {
	OnTrue, OnFalse CodeBlock
	BlockHash       Word
}

func (b *SplitBlock) Kind() BlockKind { return KindSplit }
func (b *SplitBlock) Hash() Word      { return b.BlockHash }

// LoopBlock is a while-nonzero loop over Body.
type LoopBlock struct {
	Body      CodeBlock
	BlockHash Word
}

func (b *LoopBlock) Kind() BlockKind { return KindLoop }
func (b *LoopBlock) Hash() Word      { return b.BlockHash }

// SpanBlock is straight-line code, grouped into op-batches.
type SpanBlock struct {
	Batches   []OpBatch
	BlockHash Word
}

func (b *SpanBlock) Kind() BlockKind { return KindSpan }
func (b *SpanBlock) Hash() Word      { return b.BlockHash }

// OpBatch is a unit of up to MaxGroupsPerBatch op-groups that fits a single
// hasher cycle.
type OpBatch struct {
	groups    [MaxGroupsPerBatch]field.Element
	numGroups int
}

// NewOpBatch builds an OpBatch from the groups actually used (1..8); the
// remainder of the fixed-size array is zero-padded, matching the padding a
// SPAN hash input requires.
func NewOpBatch(groups []field.Element) OpBatch {
	if len(groups) == 0 || len(groups) > MaxGroupsPerBatch {
		panic("decoder: op-batch must contain between 1 and 8 op-groups")
	}
	var b OpBatch
	for i := range b.groups {
		b.groups[i] = field.Zero
	}
	copy(b.groups[:], groups)
	b.numGroups = len(groups)
	return b
}

// Groups returns the batch's 8 group slots (zero-padded beyond NumGroups).
func (b OpBatch) Groups() [MaxGroupsPerBatch]field.Element { return b.groups }

// NumGroups returns the number of op-groups actually populated in the batch.
func (b OpBatch) NumGroups() int { return b.numGroups }

// Operation is a single VM instruction as seen by the decoder: a 7-bit
// opcode plus a decorator flag. Decorators are assembler hints with no
// algebraic effect and must never reach ExecuteUserOp (§4.B).
type Operation struct {
	Opcode    uint8
	Decorator bool
}

// OpCode returns the operation's packed opcode.
func (op Operation) OpCode() uint8 { return op.Opcode }

// IsDecorator reports whether this operation is a decorator.
func (op Operation) IsDecorator() bool { return op.Decorator }

// Hasher is the hash-coprocessor collaborator (§6.1). The decoder consumes
// only the returned address; the digest is validated elsewhere.
type Hasher interface {
	Hash(state [12]field.Element) (addr field.Element, digest Word)
}

// StackOp enumerates the stack-machine operations the decoder drives
// directly (§6.2): Noop at every block boundary, Drop at start_split.
type StackOp int

const (
	StackOpNoop StackOp = iota
	StackOpDrop
)

// StackMachine is the operand-stack collaborator (§6.2). ExecuteOp errors
// are execution errors (§7 category 1) and propagate unchanged.
type StackMachine interface {
	Peek() (field.Element, error)
	ExecuteOp(op StackOp) error
}
