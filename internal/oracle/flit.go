package oracle

import (
	"fmt"

	"protofuzz/internal/flit"
)

// MaxFlitInput bounds the input handed to the decoders, keeping decode cost
// and generated corpus files small.
const MaxFlitInput = 16

// DecodeFunc decodes one value from the start of src and reports how many
// bytes it consumed. A safe decoder reports 0 when src is too short.
type DecodeFunc func(src []byte) (value uint64, n int)

// Decoders is the pair under differential test. Fast may assume FastSlack
// readable bytes past its start; Safe must stay within the slice it gets.
type Decoders struct {
	Fast      DecodeFunc
	Safe      DecodeFunc
	FastSlack int
}

func DefaultDecoders() Decoders {
	return Decoders{
		Fast:      flit.Parse64Fast,
		Safe:      flit.Parse64Safe,
		FastSlack: flit.FastSlack,
	}
}

// Outcome holds what both decoders made of one input.
type Outcome struct {
	FastValue uint64
	FastLen   int
	SafeValue uint64
	SafeLen   int
}

// Agrees reports whether a successful safe decode is confirmed by the fast decoder.
func (o Outcome) Agrees() bool {
	if o.SafeLen == 0 {
		return true
	}
	return o.FastValue == o.SafeValue && o.FastLen == o.SafeLen
}

// DivergenceError is raised (as a panic) when the decoders disagree, so the
// fuzzing engine records the input as a crash.
type DivergenceError struct {
	Input   []byte
	Outcome Outcome
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("flit decoders diverge on %x: safe=(%d, %d bytes) fast=(%d, %d bytes)",
		e.Input, e.Outcome.SafeValue, e.Outcome.SafeLen, e.Outcome.FastValue, e.Outcome.FastLen)
}

// FlitOracle runs the fast and the bounds-checked FLIT decoders on the same
// input. Reads past the end of the input by the safe decoder panic with an
// index error; disagreement on a successful decode panics with *DivergenceError.
type FlitOracle struct {
	decoders Decoders
}

func NewFlitOracle(decoders Decoders) *FlitOracle {
	if decoders.FastSlack <= 0 {
		decoders.FastSlack = flit.FastSlack
	}
	return &FlitOracle{decoders: decoders}
}

func (o *FlitOracle) Name() string { return "flit" }

func (o *FlitOracle) MaxInput() int { return MaxFlitInput }

// Classify returns the number of bytes the safe decoder consumed (0 on failure).
func (o *FlitOracle) Classify(data []byte) Result {
	outcome := o.Decode(data)
	if !outcome.Agrees() {
		panic(&DivergenceError{Input: append([]byte(nil), truncate(data)...), Outcome: outcome})
	}
	return Result{Code: outcome.SafeLen}
}

// Decode runs both decoders on the first MaxFlitInput bytes of data.
func (o *FlitOracle) Decode(data []byte) Outcome {
	data = truncate(data)
	if len(data) == 0 {
		return Outcome{}
	}

	padded := make([]byte, len(data)+o.decoders.FastSlack)
	copy(padded, data)
	fastValue, fastLen := o.decoders.Fast(padded)

	exact := make([]byte, len(data))
	copy(exact, data)
	safeValue, safeLen := o.decoders.Safe(exact[:len(exact):len(exact)])

	return Outcome{
		FastValue: fastValue,
		FastLen:   fastLen,
		SafeValue: safeValue,
		SafeLen:   safeLen,
	}
}

func truncate(data []byte) []byte {
	if len(data) > MaxFlitInput {
		return data[:MaxFlitInput]
	}
	return data
}
