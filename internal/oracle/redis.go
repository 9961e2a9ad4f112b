package oracle

import "fmt"

const redisMinInput = 2

// RESP type tags and the codes reported for them.
const (
	CodeRedisUnknown = iota
	CodeRedisArray
	CodeRedisSimpleString
	CodeRedisError
	CodeRedisInteger
	CodeRedisBulkString
)

var redisTags = map[byte]int{
	'*': CodeRedisArray,
	'+': CodeRedisSimpleString,
	'-': CodeRedisError,
	':': CodeRedisInteger,
	'$': CodeRedisBulkString,
}

// RedisOracle classifies a RESP frame by its leading type byte only.
type RedisOracle struct {
	sink LogSink
}

func NewRedisOracle(sink LogSink) *RedisOracle {
	return &RedisOracle{sink: sink}
}

func (o *RedisOracle) Name() string { return "redis" }

// Classify logs every input of at least two bytes, whatever its code.
func (o *RedisOracle) Classify(data []byte) Result {
	if len(data) < redisMinInput {
		return Result{}
	}
	code := redisTags[data[0]]
	return emit(o.sink, Result{
		Code:    code,
		LogLine: fmt.Sprintf("Result code: %d, Input size: %d", code, len(data)),
	})
}
