package drcbe

import "fmt"

// Category classifies a generation-time error. Adapted from xyproto/c67's errors.go (ErrorLevel/
// ErrorCategory/SourceLocation) but narrowed to the three categories the
// back-end's own error contract actually distinguishes.
type Category int

const (
	CategoryInternal  Category = iota // generator-internal invariant violation: bad opcode index, unrecognized condition, disallowed size/flag combination
	CategoryAssembler                 // the asm package reported an encoding error (out-of-range immediate, bad register, unresolved label)
	CategoryCache                     // the cache reported begin_codegen() == nil; NOT fatal, see GenError.Retryable
)

func (c Category) String() string {
	switch c {
	case CategoryInternal:
		return "internal"
	case CategoryAssembler:
		return "assembler"
	case CategoryCache:
		return "cache"
	default:
		return "unknown"
	}
}

// GenError is the error type Generate propagates. Generator-internal
// and assembler errors are fatal and must abort
// generation entirely (Retryable=false); cache exhaustion asks the
// caller to flush and retry (Retryable=true) rather than signaling
// failure.
type GenError struct {
	Category  Category
	Message   string
	Retryable bool
}

func (e *GenError) Error() string {
	return fmt.Sprintf("drcbe: %s: %s", e.Category, e.Message)
}

func internalError(format string, args ...interface{}) *GenError {
	return &GenError{Category: CategoryInternal, Message: fmt.Sprintf(format, args...)}
}

func assemblerError(err error) *GenError {
	return &GenError{Category: CategoryAssembler, Message: err.Error()}
}

func cacheFullError() *GenError {
	return &GenError{Category: CategoryCache, Message: "code cache exhausted", Retryable: true}
}

// panicGen raises a GenError through a panic, the mechanism Generate's
// deferred recover turns back into a returned error at the API boundary:
// recover() runs before EndCodegen is ever called, so the bump pointer
// never advances over the bad bytes.
func panicGen(e *GenError) { panic(e) }
