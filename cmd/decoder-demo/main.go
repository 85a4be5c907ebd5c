package main

import (
	"fmt"
	"log"

	"golang.org/x/crypto/sha3"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-trace-decoder/internal/vybium-starks-vm/decoder"
)

// Demonstrates driving the decoder state machine over a small program tree
// (a JOIN of two SPANs) and finalizing the resulting trace.

func main() {
	fmt.Println("=== Decoder Demo: JOIN(SPAN, SPAN) ===")

	hasher := newSHA3Hasher()
	stack := &noopStack{}
	cfg := decoder.DefaultDecoderConfig().WithTraceLen(decoder.MinTraceLen).WithNumRandRows(2)
	d := cfg.NewDecoder(hasher, stack)

	left := spanOf(1, 2, 3)
	right := spanOf(4, 5)
	join := &decoder.JoinBlock{First: left, Second: right, BlockHash: combine(left.BlockHash, right.BlockHash)}

	if err := d.StartJoin(join); err != nil {
		log.Fatalf("StartJoin failed: %v", err)
	}
	fmt.Printf("✓ JOIN row appended, block depth %d\n", d.BlockDepth())

	runSpan(d, left)
	runSpan(d, right)

	if err := d.EndJoin(join); err != nil {
		log.Fatalf("EndJoin failed: %v", err)
	}
	fmt.Printf("✓ END row appended, block depth %d\n", d.BlockDepth())

	fmt.Printf("\nRows appended: %d\n", d.UsedLength())

	cfg.TraceLen = nextPowerOfTwo(d.UsedLength() + cfg.NumRandRows)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid decoder config: %v", err)
	}
	matrix, err := d.IntoMatrix(cfg.TraceLen, cfg.NumRandRows)
	if err != nil {
		log.Fatalf("IntoMatrix failed: %v", err)
	}

	fmt.Printf("Trace finalized: %d rows (width %d)\n", matrix.Len(), matrix.Width())
	fmt.Printf("Trace commitment fingerprint: %s\n", fingerprint(matrix))
}

func runSpan(d *decoder.Decoder, b *decoder.SpanBlock) {
	if err := d.StartSpan(b); err != nil {
		log.Fatalf("StartSpan failed: %v", err)
	}
	for _, batch := range b.Batches {
		groups := batch.Groups()
		for i := 0; i < batch.NumGroups(); i++ {
			op := decoder.Operation{Opcode: uint8(groups[i].Value())}
			if err := d.ExecuteUserOp(op); err != nil {
				log.Fatalf("ExecuteUserOp failed: %v", err)
			}
		}
	}
	if err := d.EndSpan(b); err != nil {
		log.Fatalf("EndSpan failed: %v", err)
	}
	fmt.Printf("✓ SPAN of %d op(s) recorded\n", b.Batches[0].NumGroups())
}

func spanOf(opcodes ...uint64) *decoder.SpanBlock {
	groups := make([]field.Element, len(opcodes))
	for i, op := range opcodes {
		groups[i] = field.New(op)
	}
	batch := decoder.NewOpBatch(groups)
	return &decoder.SpanBlock{
		Batches:   []decoder.OpBatch{batch},
		BlockHash: hashGroups(groups),
	}
}

func hashGroups(groups []field.Element) decoder.Word {
	h := sha3.New256()
	for _, g := range groups {
		fmt.Fprintf(h, "%d", g.Value())
	}
	sum := h.Sum(nil)
	var w decoder.Word
	for i := 0; i < 4; i++ {
		w[i] = field.New(uint64(sum[i]))
	}
	return w
}

func combine(a, b decoder.Word) decoder.Word {
	h := sha3.New256()
	for _, e := range a {
		fmt.Fprintf(h, "%d", e.Value())
	}
	for _, e := range b {
		fmt.Fprintf(h, "%d", e.Value())
	}
	sum := h.Sum(nil)
	var w decoder.Word
	for i := 0; i < 4; i++ {
		w[i] = field.New(uint64(sum[i]))
	}
	return w
}

// sha3Hasher allocates trace addresses sequentially, one HasherCycleLen
// apart, and derives a digest by hashing the 12-element input with SHA3.
// A real hash coprocessor performs this over a dedicated AIR-friendly
// permutation; this demo only needs a stand-in that satisfies the
// decoder.Hasher contract.
type sha3Hasher struct {
	next uint64
}

func newSHA3Hasher() *sha3Hasher { return &sha3Hasher{} }

func (h *sha3Hasher) Hash(state [12]field.Element) (field.Element, decoder.Word) {
	hasher := sha3.New256()
	for _, e := range state {
		fmt.Fprintf(hasher, "%d", e.Value())
	}
	sum := hasher.Sum(nil)

	addr := field.New(h.next)
	h.next += decoder.HasherCycleLen

	var digest decoder.Word
	for i := 0; i < 4; i++ {
		digest[i] = field.New(uint64(sum[i]))
	}
	return addr, digest
}

// noopStack satisfies decoder.StackMachine with no real operand stack;
// this demo drives the decoder's own events, not a VM.
type noopStack struct{}

func (s *noopStack) Peek() (field.Element, error)       { return field.Zero, nil }
func (s *noopStack) ExecuteOp(op decoder.StackOp) error { return nil }

func nextPowerOfTwo(n int) int {
	p := decoder.MinTraceLen
	for p < n {
		p *= 2
	}
	return p
}

func fingerprint(m *decoder.Matrix) string {
	h := sha3.New256()
	for i := 0; i < m.Len(); i++ {
		for _, e := range m.DecoderRow(i) {
			fmt.Fprintf(h, "%d", e.Value())
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}
