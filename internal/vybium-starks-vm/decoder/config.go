package decoder

import "fmt"

// DecoderConfig bundles the sizing and finalization policy a Decoder needs:
// the three stack depths TraceState requires (§4.E) plus the trace_len/
// num_rand_rows pair IntoMatrix consumes. Modeled on utils.Config's
// Config/DefaultConfig/Validate triad.
type DecoderConfig struct {
	CtxDepth    int
	LoopDepth   int
	StackDepth  int
	TraceLen    int
	NumRandRows int
}

// DefaultDecoderConfig returns a configuration sized for the smallest legal
// trace: minimum enforced depths, MinTraceLen rows, no randomness padding.
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		CtxDepth:    MinContextDepth,
		LoopDepth:   MinLoopDepth,
		StackDepth:  MinStackDepth,
		TraceLen:    MinTraceLen,
		NumRandRows: 0,
	}
}

// Validate checks the configuration against the decoder's structural
// invariants (I-C1, fatal conditions IntoMatrix would otherwise raise).
func (c *DecoderConfig) Validate() error {
	if c.CtxDepth < 0 || c.LoopDepth < 0 || c.StackDepth < 0 {
		return fmt.Errorf("decoder config: stack depths must be non-negative, got ctx=%d loop=%d stack=%d", c.CtxDepth, c.LoopDepth, c.StackDepth)
	}
	if c.TraceLen <= 0 || c.TraceLen&(c.TraceLen-1) != 0 {
		return fmt.Errorf("decoder config: trace_len %d is not a power of two", c.TraceLen)
	}
	if c.TraceLen < MinTraceLen {
		return fmt.Errorf("decoder config: trace_len %d is below MinTraceLen %d", c.TraceLen, MinTraceLen)
	}
	if c.NumRandRows < 0 {
		return fmt.Errorf("decoder config: num_rand_rows must be non-negative, got %d", c.NumRandRows)
	}
	return nil
}

// WithTraceLen sets the target trace length.
func (c *DecoderConfig) WithTraceLen(traceLen int) *DecoderConfig {
	c.TraceLen = traceLen
	return c
}

// WithNumRandRows sets the trailing randomness row count.
func (c *DecoderConfig) WithNumRandRows(n int) *DecoderConfig {
	c.NumRandRows = n
	return c
}

// NewDecoder builds a Decoder sized per this configuration's stack depths.
func (c *DecoderConfig) NewDecoder(hasher Hasher, stack StackMachine) *Decoder {
	return NewDecoder(hasher, stack, c.CtxDepth, c.LoopDepth)
}
