package errors_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/whoiskiwi/PatentSearch/pkg/errors"
)

func TestHTTPStatusForCode(t *testing.T) {
	cases := map[errors.ErrorCode]int{
		errors.CodeInvalidParam:         http.StatusUnprocessableEntity,
		errors.CodeNotFound:             http.StatusNotFound,
		errors.CodeEmbeddingUnavailable: http.StatusServiceUnavailable,
		errors.CodeCorpusLoad:           http.StatusServiceUnavailable,
		errors.CodeInternal:             http.StatusInternalServerError,
		errors.ErrorCode("NOPE_999"):    http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, errors.HTTPStatusForCode(code), code)
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "embedding model not available", errors.DefaultMessageForCode(errors.CodeEmbeddingUnavailable))
	assert.Equal(t, "unknown error", errors.DefaultMessageForCode("X_1"))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, errors.IsClientError(errors.CodeInvalidParam))
	assert.True(t, errors.IsClientError(errors.CodePatentNotFound))
	assert.False(t, errors.IsClientError(errors.CodeIndexCorrupt))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "CORPUS", errors.ModuleForCode(errors.CodeCorpusLoad))
	assert.Equal(t, "EMB", errors.ModuleForCode(errors.CodeEmbeddingFailed))
	assert.Equal(t, "UNKNOWN", errors.ModuleForCode("OK"))
}

func TestEveryCodeHasStatusAndMessage(t *testing.T) {
	for code := range errors.ErrorCodeMessage {
		_, ok := errors.ErrorCodeHTTPStatus[code]
		assert.True(t, ok, "missing HTTP status for %s", code)
	}
}
