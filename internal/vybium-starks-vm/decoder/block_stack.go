package decoder

import "github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

// BlockInfo is a single block-stack entry: the hasher-assigned base address
// of the block's hashing cycle, and the address inherited from whatever was
// on top of the stack at push time (zero at the root). I-A2.
type BlockInfo struct {
	Addr       field.Element
	ParentAddr field.Element
}

// BlockStack maintains the currently open chain of code blocks with their
// allocated trace addresses and parent addresses (Component A). At any
// instant its contents equal the path from the program root to the block
// currently executing (I-A1).
//
// Modeled on the jump-stack discipline in the VM's JumpStack/JumpStackEntry:
// a plain LIFO of small value-typed frames, no arena required.
type BlockStack struct {
	entries []BlockInfo
}

// NewBlockStack returns an empty block stack.
func NewBlockStack() *BlockStack {
	return &BlockStack{entries: make([]BlockInfo, 0, 8)}
}

// Push returns the current top's Addr (or zero when the stack is empty),
// then appends a new entry (addr, parentAddr=that returned value).
func (s *BlockStack) Push(addr field.Element) field.Element {
	parentAddr := field.Zero
	if len(s.entries) > 0 {
		parentAddr = s.entries[len(s.entries)-1].Addr
	}
	s.entries = append(s.entries, BlockInfo{Addr: addr, ParentAddr: parentAddr})
	return parentAddr
}

// Pop removes and returns the top entry. Fatal if empty (I-A1).
func (s *BlockStack) Pop() BlockInfo {
	if len(s.entries) == 0 {
		Raise(FaultBlockStackUnderflow, "pop on empty block stack")
	}
	top := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return top
}

// Peek returns the top entry without consuming it. Fatal if empty.
func (s *BlockStack) Peek() *BlockInfo {
	if len(s.entries) == 0 {
		Raise(FaultBlockStackUnderflow, "peek on empty block stack")
	}
	return &s.entries[len(s.entries)-1]
}

// Len returns the current stack depth.
func (s *BlockStack) Len() int { return len(s.entries) }

// Respan pops the current span entry and re-pushes it with addr advanced by
// one hasher cycle (HasherCycleLen rows): batch k of a span lives at
// base + HasherCycleLen*k.
func (s *BlockStack) Respan() {
	top := s.Pop()
	newAddr := field.New(top.Addr.Value() + HasherCycleLen)
	s.entries = append(s.entries, BlockInfo{Addr: newAddr, ParentAddr: top.ParentAddr})
}
