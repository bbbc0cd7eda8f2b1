package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes are namespaced by module: "<MODULE>_<NNN>".
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	CodeOK             ErrorCode = "OK"
	CodeUnknown        ErrorCode = "COMMON_000"
	CodeInternal       ErrorCode = "COMMON_001"
	CodeInvalidParam   ErrorCode = "COMMON_002"
	CodeNotFound       ErrorCode = "COMMON_005"
	CodeUnavailable    ErrorCode = "COMMON_008"
	CodeTimeout        ErrorCode = "COMMON_009"
	CodeSerialization  ErrorCode = "COMMON_011"
	CodeNotImplemented ErrorCode = "COMMON_016"
)

// Corpus store error codes.
const (
	CodeCorpusLoad     ErrorCode = "CORPUS_001"
	CodePatentNotFound ErrorCode = "CORPUS_002"
	CodeDataFileAbsent ErrorCode = "CORPUS_003"
)

// Embedding and vector index error codes.
const (
	CodeEmbeddingUnavailable ErrorCode = "EMB_001"
	CodeEmbeddingFailed      ErrorCode = "EMB_002"
	CodeIndexCorrupt         ErrorCode = "IDX_001"
	CodeIndexPersist         ErrorCode = "IDX_002"
	CodeIndexBuild           ErrorCode = "IDX_003"
)

// Infrastructure error codes.
const (
	CodeStorage         ErrorCode = "INFRA_001"
	CodeLockNotAcquired ErrorCode = "INFRA_002"
	CodeCache           ErrorCode = "INFRA_003"
	CodeConfigInvalid   ErrorCode = "INFRA_004"
	CodeExternalService ErrorCode = "INFRA_005"
	CodeCircuitOpen     ErrorCode = "INFRA_006"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	CodeOK:             http.StatusOK,
	CodeUnknown:        http.StatusInternalServerError,
	CodeInternal:       http.StatusInternalServerError,
	CodeInvalidParam:   http.StatusUnprocessableEntity,
	CodeNotFound:       http.StatusNotFound,
	CodeUnavailable:    http.StatusServiceUnavailable,
	CodeTimeout:        http.StatusGatewayTimeout,
	CodeSerialization:  http.StatusInternalServerError,
	CodeNotImplemented: http.StatusNotImplemented,

	CodeCorpusLoad:     http.StatusServiceUnavailable,
	CodePatentNotFound: http.StatusNotFound,
	CodeDataFileAbsent: http.StatusServiceUnavailable,

	CodeEmbeddingUnavailable: http.StatusServiceUnavailable,
	CodeEmbeddingFailed:      http.StatusInternalServerError,
	CodeIndexCorrupt:         http.StatusInternalServerError,
	CodeIndexPersist:         http.StatusInternalServerError,
	CodeIndexBuild:           http.StatusInternalServerError,

	CodeStorage:         http.StatusInternalServerError,
	CodeLockNotAcquired: http.StatusConflict,
	CodeCache:           http.StatusInternalServerError,
	CodeConfigInvalid:   http.StatusInternalServerError,
	CodeExternalService: http.StatusBadGateway,
	CodeCircuitOpen:     http.StatusServiceUnavailable,
}

// ErrorCodeMessage holds the default user-facing message per code.
var ErrorCodeMessage = map[ErrorCode]string{
	CodeUnknown:        "unknown error",
	CodeInternal:       "internal server error",
	CodeInvalidParam:   "invalid parameter",
	CodeNotFound:       "resource not found",
	CodeUnavailable:    "service unavailable",
	CodeTimeout:        "request timeout",
	CodeSerialization:  "serialization error",
	CodeNotImplemented: "not implemented",

	CodeCorpusLoad:     "failed to load patent corpus",
	CodePatentNotFound: "patent not found",
	CodeDataFileAbsent: "no patent data file found",

	CodeEmbeddingUnavailable: "embedding model not available",
	CodeEmbeddingFailed:      "embedding inference failed",
	CodeIndexCorrupt:         "vector index is corrupt",
	CodeIndexPersist:         "failed to persist vector index",
	CodeIndexBuild:           "failed to build vector index",

	CodeStorage:         "object storage error",
	CodeLockNotAcquired: "lock not acquired",
	CodeCache:           "cache error",
	CodeConfigInvalid:   "invalid configuration",
	CodeExternalService: "external service error",
	CodeCircuitOpen:     "circuit breaker open",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
