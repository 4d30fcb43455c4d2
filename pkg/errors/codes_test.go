package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatusForCode(ErrCodeRunNotFound))
	assert.Equal(t, http.StatusUnsupportedMediaType, HTTPStatusForCode(ErrCodeTableUnsupportedFormat))
	assert.Equal(t, http.StatusFailedDependency, HTTPStatusForCode(ErrCodeToolkitUnavailable))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusForCode(ErrorCode("BOGUS_999")))
}

func TestClientServerClassification(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeBadRequest))
	assert.True(t, IsClientError(ErrCodeParetoObjectiveInvalid))
	assert.False(t, IsClientError(ErrCodeLookupIndexFailed))

	assert.True(t, IsServerError(ErrCodePlotWriteFailed))
	assert.False(t, IsServerError(ErrCodeColumnNotFound))
}

func TestModuleForCode(t *testing.T) {
	cases := map[ErrorCode]string{
		ErrCodeTableEmpty:         "TBL",
		ErrCodeInvalidSMILES:      "MOL",
		ErrCodeProjectionFailed:   "VIZ",
		ErrCodeParetoNoObjectives: "PAR",
		ErrCodeMMPNoPairs:         "MMP",
		ErrCodeSARNoScaffolds:     "SAR",
		ErrCodeLookupIndexFailed:  "LKP",
		ErrCodeBioisostereNoMatch: "BIO",
		ErrCodeRunNotFound:        "RUN",
	}
	for code, module := range cases {
		assert.Equal(t, module, ModuleForCode(code), code)
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "no matched molecular pairs found", DefaultMessageForCode(ErrCodeMMPNoPairs))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("BOGUS_999")))
}

// Every code that has an HTTP status should also have a default message, so
// the API error mapper never emits "unknown error" for a known code.
func TestCodeTablesAligned(t *testing.T) {
	for code := range ErrorCodeHTTPStatus {
		_, ok := ErrorCodeMessage[code]
		assert.True(t, ok, "code %s missing default message", code)
	}
}
