package decoder

import (
	"testing"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

func wordOf(vals ...uint64) Word {
	var w Word
	for i, v := range vals {
		w[i] = field.New(v)
	}
	return w
}

// TestTraceBufferColumnsStayInLockstep is I-C2: every column has the same
// length after any sequence of appends.
func TestTraceBufferColumnsStayInLockstep(t *testing.T) {
	b := NewTraceBuffer(1, 1)
	b.AppendJoinRow(field.New(8), field.Zero, wordOf(1, 2, 3, 4), wordOf(5, 6, 7, 8))
	b.AppendUserOpRow(field.New(8), field.Zero, Operation{Opcode: 3}, field.New(2), field.New(9))
	b.AppendEndRow(field.New(8), field.Zero, wordOf(1, 1, 1, 1))

	m, err := b.IntoMatrix(MinTraceLen, 1)
	if err != nil {
		t.Fatalf("IntoMatrix failed: %v", err)
	}
	if m.Len() != MinTraceLen {
		t.Fatalf("Len() = %d, want %d", m.Len(), MinTraceLen)
	}
	for i := 0; i < m.Len(); i++ {
		row := m.DecoderRow(i)
		if len(row) != m.Width() {
			t.Errorf("row %d width = %d, want %d", i, len(row), m.Width())
		}
	}
}

// TestTraceBufferPaddingIsCanonical is P5: between the used rows and the
// randomness window, every row is an identical copy of the idle row.
func TestTraceBufferPaddingIsCanonical(t *testing.T) {
	b := NewTraceBuffer(0, 0)
	b.AppendJoinRow(field.New(8), field.Zero, wordOf(1, 2, 3, 4), wordOf(5, 6, 7, 8))

	numRandRows := 2
	m, err := b.IntoMatrix(MinTraceLen, numRandRows)
	if err != nil {
		t.Fatalf("IntoMatrix failed: %v", err)
	}

	idleStart := 1
	idleEnd := MinTraceLen - numRandRows
	var reference []field.Element
	for i := idleStart; i < idleEnd; i++ {
		row := m.DecoderRow(i)
		if reference == nil {
			reference = row
			continue
		}
		for j := range row {
			if !row[j].Equal(reference[j]) {
				t.Fatalf("idle row %d differs from row %d at column %d: %v vs %v", i, idleStart, j, row[j], reference[j])
			}
		}
	}

	for i := idleStart; i < idleEnd; i++ {
		state := NewTraceState(0, 0, 0)
		state.Update(m.DecoderRow(i))
		if !state.VoidOpFlag() {
			t.Errorf("row %d is not VOID", i)
		}
	}
}

// TestTraceBufferRandomRowsDifferOnlyInSponge: the randomness columns
// (sponge region) are the only region allowed to differ from the idle row
// in the trailing num_rand_rows.
func TestTraceBufferRandomRowsDifferOnlyInSponge(t *testing.T) {
	b := NewTraceBuffer(0, 0)
	b.AppendJoinRow(field.New(8), field.Zero, wordOf(1, 2, 3, 4), wordOf(5, 6, 7, 8))

	numRandRows := 2
	m, err := b.IntoMatrix(MinTraceLen, numRandRows)
	if err != nil {
		t.Fatalf("IntoMatrix failed: %v", err)
	}

	idle := m.DecoderRow(1)
	for i := MinTraceLen - numRandRows; i < MinTraceLen; i++ {
		row := m.DecoderRow(i)
		state := NewTraceState(0, 0, 0)
		state.Update(row)
		if !state.VoidOpFlag() {
			t.Errorf("random row %d lost its VOID cf_op_bits", i)
		}
		for j := range row {
			inSponge := j >= OpSpongeStart && j < OpSpongeEnd
			if !inSponge && !row[j].Equal(idle[j]) {
				t.Errorf("random row %d column %d (outside sponge) differs from idle: %v vs %v", i, j, row[j], idle[j])
			}
		}
	}
}

func TestTraceBufferFailConditions(t *testing.T) {
	t.Run("trace_len not a power of two", func(t *testing.T) {
		b := NewTraceBuffer(0, 0)
		b.AppendJoinRow(field.Zero, field.Zero, ZeroWord, ZeroWord)
		fault := RecoverDecoderFault(func() { b.IntoMatrix(17, 0) })
		if fault == nil || fault.Kind != FaultTraceLenTooSmall {
			t.Fatalf("expected FaultTraceLenTooSmall, got %v", fault)
		}
	})

	t.Run("trace_len smaller than used+rand rows", func(t *testing.T) {
		b := NewTraceBuffer(0, 0)
		for i := 0; i < 20; i++ {
			b.AppendJoinRow(field.Zero, field.Zero, ZeroWord, ZeroWord)
		}
		fault := RecoverDecoderFault(func() { b.IntoMatrix(MinTraceLen, 0) })
		if fault == nil || fault.Kind != FaultTraceLenTooSmall {
			t.Fatalf("expected FaultTraceLenTooSmall, got %v", fault)
		}
	})

	t.Run("append after finalize", func(t *testing.T) {
		b := NewTraceBuffer(0, 0)
		b.AppendJoinRow(field.Zero, field.Zero, ZeroWord, ZeroWord)
		if _, err := b.IntoMatrix(MinTraceLen, 0); err != nil {
			t.Fatalf("IntoMatrix failed: %v", err)
		}
		fault := RecoverDecoderFault(func() {
			b.AppendJoinRow(field.Zero, field.Zero, ZeroWord, ZeroWord)
		})
		if fault == nil || fault.Kind != FaultAppendAfterFinalize {
			t.Fatalf("expected FaultAppendAfterFinalize, got %v", fault)
		}
	})

	t.Run("finalize with no rows", func(t *testing.T) {
		b := NewTraceBuffer(0, 0)
		fault := RecoverDecoderFault(func() { b.IntoMatrix(MinTraceLen, 0) })
		if fault == nil || fault.Kind != FaultEmptyColumn {
			t.Fatalf("expected FaultEmptyColumn, got %v", fault)
		}
	})
}
