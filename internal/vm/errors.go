// Package vm executes the flat ISA instruction stream: scope frames,
// storage backends with per-location locks, queue backends with a worker
// pool, deferred-call contexts, and the instruction dispatch loop.
package vm

import (
	"fmt"

	"github.com/swarmlang/swarm/internal/diag"
)

// RuntimeExCode is the closed enum of runtime failure codes.
type RuntimeExCode int

const (
	ExInvalidArgumentType                   RuntimeExCode = 5
	ExTypeError                             RuntimeExCode = 6
	ExInvalidReferenceImplementation        RuntimeExCode = 7
	ExDivisionByZero                        RuntimeExCode = 8
	ExWhileCallbackTypeInvalid              RuntimeExCode = 9
	ExWithCallbackTypeInvalid               RuntimeExCode = 10
	ExEnumIndexOutOfBounds                  RuntimeExCode = 11
	ExEnumerateCallbackTypeInvalid          RuntimeExCode = 12
	ExFnParamOutsideCall                    RuntimeExCode = 13
	ExReturnOutsideCall                     RuntimeExCode = 14
	ExInvalidMapKey                         RuntimeExCode = 15
	ExInvalidAssignEval                     RuntimeExCode = 16
	ExStreamNotOpen                         RuntimeExCode = 17
	ExStreamEmpty                           RuntimeExCode = 18
	ExResumeOutsideExHandler                RuntimeExCode = 19
	ExAttemptedCloneOfNonReplicableResource RuntimeExCode = 20
	ExInvalidValueTypeForEnum               RuntimeExCode = 21
	ExInvalidPrivilegedResourceOperation    RuntimeExCode = 22
	ExRepublishExistingResource             RuntimeExCode = 23
	ExInvalidOrMissingFilePath              RuntimeExCode = 24
	ExInvalidExceptionHandlerType           RuntimeExCode = 25
	ExAcquireLockMaxAttemptsExceeded        RuntimeExCode = 26
)

var exCodeNames = map[RuntimeExCode]string{
	ExInvalidArgumentType:                   "InvalidArgumentType",
	ExTypeError:                             "TypeError",
	ExInvalidReferenceImplementation:        "InvalidReferenceImplementation",
	ExDivisionByZero:                        "DivisionByZero",
	ExWhileCallbackTypeInvalid:              "WhileCallbackTypeInvalid",
	ExWithCallbackTypeInvalid:               "WithCallbackTypeInvalid",
	ExEnumIndexOutOfBounds:                  "EnumIndexOutOfBounds",
	ExEnumerateCallbackTypeInvalid:          "EnumerateCallbackTypeInvalid",
	ExFnParamOutsideCall:                    "FnParamOutsideCall",
	ExReturnOutsideCall:                     "ReturnOutsideCall",
	ExInvalidMapKey:                         "InvalidMapKey",
	ExInvalidAssignEval:                     "InvalidAssignEval",
	ExStreamNotOpen:                         "StreamNotOpen",
	ExStreamEmpty:                           "StreamEmpty",
	ExResumeOutsideExHandler:                "ResumeOutsideExHandler",
	ExAttemptedCloneOfNonReplicableResource: "AttemptedCloneOfNonReplicableResource",
	ExInvalidValueTypeForEnum:               "InvalidValueTypeForEnum",
	ExInvalidPrivilegedResourceOperation:    "InvalidPrivilegedResourceOperation",
	ExRepublishExistingResource:             "RepublishExistingResource",
	ExInvalidOrMissingFilePath:              "InvalidOrMissingFilePath",
	ExInvalidExceptionHandlerType:           "InvalidExceptionHandlerType",
	ExAcquireLockMaxAttemptsExceeded:        "AcquireLockMaxAttemptsExceeded",
}

func (c RuntimeExCode) String() string {
	if n, ok := exCodeNames[c]; ok {
		return fmt.Sprintf("RuntimeExCode(%s, code: %d)", n, int(c))
	}
	return fmt.Sprintf("RuntimeExCode(UNKNOWN, code: %d)", int(c))
}

// RuntimeError is a typed runtime failure raised by the execution loop or
// a storage/queue backend.
type RuntimeError struct {
	Code    RuntimeExCode
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("Runtime error: %s (%s)", e.Message, e.Code)
}

// Errf builds a RuntimeError with a formatted message.
func Errf(code RuntimeExCode, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// TracedError carries the VM call stack captured at the point a runtime
// error surfaced, frame names matching the lowered function regions.
type TracedError struct {
	Err   error
	Trace diag.StackTrace
}

func (e *TracedError) Error() string {
	if e.Trace.Depth() == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v\n%s", e.Err, e.Trace.String())
}

func (e *TracedError) Unwrap() error { return e.Err }

// QueueExecutionError wraps a runtime error that occurred while a worker
// executed a queued job, tagging it with the offending job id. It is surfaced on Drain.
type QueueExecutionError struct {
	JobID string
	Err   error
}

func (e *QueueExecutionError) Error() string {
	return fmt.Sprintf("job %s failed: %v", e.JobID, e.Err)
}

func (e *QueueExecutionError) Unwrap() error { return e.Err }

// EmptyCallStackError is the fatal condition of a Return executing with no
// call in flight.
type EmptyCallStackError struct{}

func (e *EmptyCallStackError) Error() string {
	return "attempted to return from an empty call stack"
}

// ClearLockedReferencesError is the fatal condition of a storage being
// torn down while one of its locations is still locked.
type ClearLockedReferencesError struct {
	Location string
}

func (e *ClearLockedReferencesError) Error() string {
	return fmt.Sprintf("storage cleared while location %s is still locked", e.Location)
}
