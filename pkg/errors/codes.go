package errors

import (
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal       ErrorCode = "COMMON_001"
	ErrCodeBadRequest     ErrorCode = "COMMON_002"
	ErrCodeNotFound       ErrorCode = "COMMON_005"
	ErrCodeConflict       ErrorCode = "COMMON_006"
	ErrCodeTimeout        ErrorCode = "COMMON_009"
	ErrCodeValidation     ErrorCode = "COMMON_010"
	ErrCodeSerialization  ErrorCode = "COMMON_011"
	ErrCodeDatabaseError  ErrorCode = "COMMON_012"
	ErrCodeCacheError     ErrorCode = "COMMON_013"
	ErrCodeNotImplemented ErrorCode = "COMMON_016"
	ErrCodeUnknown        ErrorCode = "COMMON_999"
)

// Aliases used at call sites that only care about the broad category.
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeNotImplemented = ErrCodeNotImplemented
	CodeUnknown        = ErrCodeUnknown
	CodeOK             = ErrorCode("OK")
)

// Query Engine Error Codes
const (
	ErrCodeQueryInvalidConfig   ErrorCode = "QRY_001"
	ErrCodeQueryRuntime         ErrorCode = "QRY_002"
	ErrCodeQueryNotConverging   ErrorCode = "QRY_003"
	ErrCodeQueryUndefinedSymbol ErrorCode = "QRY_004"
	ErrCodeQueryNoContext       ErrorCode = "QRY_005"
	ErrCodeQueryUnknownStruct   ErrorCode = "QRY_006"
	ErrCodeQueryCacheInvariant  ErrorCode = "QRY_007"
	ErrCodeQueryCancelled       ErrorCode = "QRY_008"
	ErrCodeQueryTypeMismatch    ErrorCode = "QRY_009"
	ErrCodeQueryDecode          ErrorCode = "QRY_010"
)

// Structure Model Error Codes
const (
	ErrCodeStructureParse   ErrorCode = "STR_001"
	ErrCodeStructureInvalid ErrorCode = "STR_002"
	ErrCodeStructureFormat  ErrorCode = "STR_003"
)

// Batch Runner Error Codes
const (
	ErrCodeBatchEmpty  ErrorCode = "BAT_001"
	ErrCodeBatchFailed ErrorCode = "BAT_002"
)

// ErrorCodeExitStatus maps error codes to the process exit status used by the CLI.
var ErrorCodeExitStatus = map[ErrorCode]int{
	ErrCodeInternal:       1,
	ErrCodeBadRequest:     2,
	ErrCodeValidation:     2,
	ErrCodeNotFound:       3,
	ErrCodeTimeout:        4,
	ErrCodeQueryCancelled: 4,

	ErrCodeQueryInvalidConfig:   10,
	ErrCodeQueryDecode:          10,
	ErrCodeQueryTypeMismatch:    10,
	ErrCodeQueryRuntime:         11,
	ErrCodeQueryUndefinedSymbol: 11,
	ErrCodeQueryNoContext:       11,
	ErrCodeQueryUnknownStruct:   11,
	ErrCodeQueryNotConverging:   12,
	ErrCodeQueryCacheInvariant:  13,

	ErrCodeStructureParse:   20,
	ErrCodeStructureInvalid: 20,
	ErrCodeStructureFormat:  20,

	ErrCodeBatchEmpty:  30,
	ErrCodeBatchFailed: 31,
}

// ErrorCodeMessage holds the default message for each code.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:       "internal error",
	ErrCodeBadRequest:     "bad request",
	ErrCodeNotFound:       "resource not found",
	ErrCodeConflict:       "conflict",
	ErrCodeTimeout:        "operation timed out",
	ErrCodeValidation:     "validation failed",
	ErrCodeSerialization:  "serialization failed",
	ErrCodeDatabaseError:  "database error",
	ErrCodeCacheError:     "cache error",
	ErrCodeNotImplemented: "not implemented",
	ErrCodeUnknown:        "unknown error",

	ErrCodeQueryInvalidConfig:   "invalid query configuration",
	ErrCodeQueryRuntime:         "query evaluation failed",
	ErrCodeQueryNotConverging:   "numerical method did not converge",
	ErrCodeQueryUndefinedSymbol: "undefined symbol",
	ErrCodeQueryNoContext:       "no current motive context",
	ErrCodeQueryUnknownStruct:   "unknown structure",
	ErrCodeQueryCacheInvariant:  "motive cache invariant violated",
	ErrCodeQueryCancelled:       "evaluation cancelled",
	ErrCodeQueryTypeMismatch:    "unexpected value type",
	ErrCodeQueryDecode:          "query tree could not be decoded",

	ErrCodeStructureParse:   "structure could not be parsed",
	ErrCodeStructureInvalid: "structure is invalid",
	ErrCodeStructureFormat:  "unsupported structure format",

	ErrCodeBatchEmpty:  "batch has no structures",
	ErrCodeBatchFailed: "batch run failed",
}

// ExitStatusForCode returns the CLI exit status for an ErrorCode.
func ExitStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeExitStatus[code]; ok {
		return status
	}
	return 1
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsQueryError returns true if the code belongs to the query engine module.
func IsQueryError(code ErrorCode) bool {
	return ModuleForCode(code) == "QRY"
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
