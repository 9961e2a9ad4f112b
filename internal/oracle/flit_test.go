package oracle

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protofuzz/internal/flit"
)

// recordingDecoders wraps the real decoders and keeps the buffers they saw.
type recordingDecoders struct {
	fastInputs [][]byte
	safeInputs [][]byte
}

func (r *recordingDecoders) decoders() Decoders {
	return Decoders{
		Fast: func(src []byte) (uint64, int) {
			r.fastInputs = append(r.fastInputs, append([]byte(nil), src...))
			return flit.Parse64Fast(src)
		},
		Safe: func(src []byte) (uint64, int) {
			r.safeInputs = append(r.safeInputs, append([]byte(nil), src...))
			return flit.Parse64Safe(src)
		},
		FastSlack: flit.FastSlack,
	}
}

func TestFlitOracleTruncatesTo16Bytes(t *testing.T) {
	prefix := bytes.Repeat([]byte{0x80}, MaxFlitInput)
	a := append(append([]byte(nil), prefix...), 0x01, 0x02, 0x03)
	b := append(append([]byte(nil), prefix...), 0xff)

	rec := &recordingDecoders{}
	o := NewFlitOracle(rec.decoders())
	outA := o.Decode(a)
	outB := o.Decode(b)

	assert.Equal(t, outA, outB)
	require.Len(t, rec.safeInputs, 2)
	assert.Equal(t, prefix, rec.safeInputs[0])
	assert.Equal(t, prefix, rec.safeInputs[1])
	assert.Equal(t, rec.fastInputs[0], rec.fastInputs[1])
	assert.Equal(t, prefix, rec.fastInputs[0][:MaxFlitInput])
	assert.Equal(t, 16, o.MaxInput())
}

func TestFlitOracleShortInputsPassedWhole(t *testing.T) {
	rec := &recordingDecoders{}
	o := NewFlitOracle(rec.decoders())
	o.Decode([]byte{0x02, 0x02})

	require.Len(t, rec.safeInputs, 1)
	assert.Equal(t, []byte{0x02, 0x02}, rec.safeInputs[0])
	assert.Len(t, rec.fastInputs[0], 2+flit.FastSlack)
}

func TestFlitOracleCodes(t *testing.T) {
	o := NewFlitOracle(DefaultDecoders())
	assert.Equal(t, 0, o.Classify(nil).Code)
	assert.Equal(t, 1, o.Classify([]byte{0x0b}).Code)
	assert.Equal(t, 2, o.Classify([]byte{0x02, 0x02, 0xaa}).Code)
	assert.Equal(t, 0, o.Classify([]byte{0x00, 0x01}).Code, "truncated 9-byte form")
	assert.Equal(t, 9, o.Classify(flit.Append(nil, 1<<60)).Code)
	assert.Empty(t, o.Classify([]byte{0x0b}).LogLine)
}

func TestFlitOracleDetectsDivergence(t *testing.T) {
	broken := DefaultDecoders()
	broken.Fast = func(src []byte) (uint64, int) {
		v, n := flit.Parse64Fast(src)
		return v + 1, n
	}
	o := NewFlitOracle(broken)

	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(*DivergenceError)
		require.True(t, ok, "panic value %T", r)
		assert.Equal(t, []byte{0x0b}, err.Input)
		assert.Equal(t, uint64(5), err.Outcome.SafeValue)
		assert.Equal(t, uint64(6), err.Outcome.FastValue)
		assert.Contains(t, err.Error(), "diverge on 0b")
	}()
	o.Classify([]byte{0x0b})
}

func TestFlitOracleBoundsViolationPanics(t *testing.T) {
	overreading := DefaultDecoders()
	overreading.Safe = func(src []byte) (uint64, int) {
		// reads one byte too many on purpose
		return uint64(src[len(src)]), 1
	}
	o := NewFlitOracle(overreading)
	assert.Panics(t, func() { o.Classify([]byte{0x0b}) })
}

func TestFlitOracleIgnoresFailedSafeDecode(t *testing.T) {
	outcome := Outcome{FastValue: 42, FastLen: 9}
	assert.True(t, outcome.Agrees())
}

func FuzzFlitOracle(f *testing.F) {
	f.Add([]byte{0x0b})
	f.Add(flit.Append(nil, 1<<40))
	f.Add(bytes.Repeat([]byte{0xff}, 20))
	o := NewFlitOracle(DefaultDecoders())
	f.Fuzz(func(t *testing.T, data []byte) {
		res := o.Classify(data)
		if res.Code < 0 || res.Code > flit.MaxLen {
			t.Fatalf("unexpected code %d", res.Code)
		}
	})
}
