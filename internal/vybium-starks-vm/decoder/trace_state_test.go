package decoder

import (
	"testing"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

func elems(vals ...uint64) []field.Element {
	out := make([]field.Element, len(vals))
	for i, v := range vals {
		out[i] = field.New(v)
	}
	return out
}

func zeros(n int) []field.Element {
	out := make([]field.Element, n)
	for i := range out {
		out[i] = field.Zero
	}
	return out
}

func requireEqual(t *testing.T, got []field.Element, want []uint64, label string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s length = %d, want %d", label, len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(field.New(want[i])) {
			t.Errorf("%s[%d] = %v, want %d", label, i, got[i], want[i])
		}
	}
}

// TestTraceStateEmptyDepths is §8 scenario 1, verbatim: a TraceState with
// depths (0,0,2) built from the literal row
// [101,1,2,3,4,5,6,7,8,9,10,11,12,13,14,15,16].
func TestTraceStateEmptyDepths(t *testing.T) {
	row := elems(101, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16)

	s := NewTraceState(0, 0, 2)
	if s.Width() != 17 {
		t.Fatalf("Width() = %d, want 17", s.Width())
	}
	s.Update(row)

	if !s.OpCounter().Equal(field.New(101)) {
		t.Errorf("OpCounter() = %v, want 101", s.OpCounter())
	}
	requireEqual(t, s.Sponge(), []uint64{1, 2, 3, 4}, "Sponge()")
	requireEqual(t, s.CFOpBits(), []uint64{5, 6, 7}, "CFOpBits()")
	requireEqual(t, s.LDOpBits(), []uint64{8, 9, 10, 11, 12}, "LDOpBits()")
	requireEqual(t, s.HDOpBits(), []uint64{13, 14}, "HDOpBits()")
	requireEqual(t, s.CtxStack(), []uint64{0}, "CtxStack()")
	requireEqual(t, s.LoopStack(), []uint64{0}, "LoopStack()")
	requireEqual(t, s.UserStack(), []uint64{15, 16, 0, 0, 0, 0, 0, 0}, "UserStack()")

	// P6: view round-trip.
	got := s.ToVec()
	requireEqual(t, got, []uint64{101, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}, "ToVec()")
}

// TestTraceStateNonEmptyDepths is §8 scenario 2, verbatim: depths (2,1,9),
// row [101,1..4, 5..7, 8..12, 13..14, 15..26].
func TestTraceStateNonEmptyDepths(t *testing.T) {
	row := elems(
		101,
		1, 2, 3, 4, // sponge (4)
		5, 6, 7, // cf (3)
		8, 9, 10, 11, 12, // ld (5)
		13, 14, // hd (2)
		15, 16, // ctx_stack (2)
		17,                             // loop_stack (1)
		18, 19, 20, 21, 22, 23, 24, 25, 26, // user_stack (9)
	)

	s := NewTraceState(2, 1, 9)
	if s.Width() != 27 {
		t.Fatalf("Width() = %d, want 27", s.Width())
	}
	s.Update(row)

	requireEqual(t, s.CtxStack(), []uint64{15, 16}, "CtxStack()")
	requireEqual(t, s.LoopStack(), []uint64{17}, "LoopStack()")
	requireEqual(t, s.UserStack(), []uint64{18, 19, 20, 21, 22, 23, 24, 25, 26}, "UserStack()")
}

// TestOpCodeReconstruction is §8 scenario 3 (P7), trusting the stated
// formula over its third literal result — see DESIGN.md.
func TestOpCodeReconstruction(t *testing.T) {
	cases := []struct {
		ld, hd []uint64
		want   uint8
	}{
		{[]uint64{1, 1, 1, 1, 1}, []uint64{1, 1}, 127},
		{[]uint64{1, 1, 1, 1, 1}, []uint64{1, 0}, 63},
		{[]uint64{1, 0, 0, 0, 1}, []uint64{1, 1}, 113},
	}
	for _, c := range cases {
		row := make([]field.Element, 0, ConstWidth)
		row = append(row, field.Zero)            // op_counter
		row = append(row, zeros(SpongeWidth)...)  // sponge
		row = append(row, zeros(NumCFOpBits)...) // cf
		row = append(row, elems(c.ld...)...)
		row = append(row, elems(c.hd...)...)

		s := NewTraceState(0, 0, 0)
		s.Update(row)
		if got := s.OpCode(); got != c.want {
			t.Errorf("OpCode() with ld=%v hd=%v = %d, want %d", c.ld, c.hd, got, c.want)
		}
	}
}

// TestVoidOpFlag is P8.
func TestVoidOpFlag(t *testing.T) {
	row := zeros(ConstWidth)
	for i := CFOpBitsStart; i < CFOpBitsEnd; i++ {
		row[i] = field.One
	}
	s := NewTraceState(0, 0, 0)
	s.Update(row)
	if !s.VoidOpFlag() {
		t.Errorf("VoidOpFlag() = false for cf_op_bits=[1,1,1]")
	}

	row[CFOpBitsStart] = field.Zero
	s.Update(row)
	if s.VoidOpFlag() {
		t.Errorf("VoidOpFlag() = true for cf_op_bits=[0,1,1]")
	}
}
