package twilio

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAuthToken = "12345"

func TestComputeSignature_SortsParams(t *testing.T) {
	form := url.Values{}
	form.Set("Zeta", "2")
	form.Set("Alpha", "1")

	// Signature over url + "Alpha1" + "Zeta2", key order must not matter.
	a := ComputeSignature(testAuthToken, "https://example.com/webhook", form)

	reversed := url.Values{}
	reversed.Set("Alpha", "1")
	reversed.Set("Zeta", "2")
	b := ComputeSignature(testAuthToken, "https://example.com/webhook", reversed)

	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
}

func TestValidateRequest_Valid(t *testing.T) {
	form := url.Values{}
	form.Set("Body", "hello")
	form.Set("From", "+15551234567")

	req := httptest.NewRequest("POST", "http://example.com/webhooks/twilio", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.NoError(t, req.ParseForm())

	// The signed URL always uses https even though the request came in
	// over plain http.
	sig := ComputeSignature(testAuthToken, "https://example.com/webhooks/twilio", form)
	req.Header.Set(SignatureHeader, sig)

	assert.True(t, ValidateRequest(req, testAuthToken))
}

func TestValidateRequest_MissingHeader(t *testing.T) {
	req := httptest.NewRequest("POST", "http://example.com/webhooks/twilio", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.NoError(t, req.ParseForm())

	assert.False(t, ValidateRequest(req, testAuthToken))
}

func TestValidateRequest_WrongSecret(t *testing.T) {
	form := url.Values{}
	form.Set("Body", "hello")

	req := httptest.NewRequest("POST", "http://example.com/webhooks/twilio", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.NoError(t, req.ParseForm())
	req.Header.Set(SignatureHeader, ComputeSignature("other-token", "https://example.com/webhooks/twilio", form))

	assert.False(t, ValidateRequest(req, testAuthToken))
}

func TestValidateRequest_TamperedBody(t *testing.T) {
	form := url.Values{}
	form.Set("Body", "hello")
	sig := ComputeSignature(testAuthToken, "https://example.com/webhooks/twilio", form)

	tampered := url.Values{}
	tampered.Set("Body", "payload changed")

	req := httptest.NewRequest("POST", "http://example.com/webhooks/twilio", strings.NewReader(tampered.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.NoError(t, req.ParseForm())
	req.Header.Set(SignatureHeader, sig)

	assert.False(t, ValidateRequest(req, testAuthToken))
}

func TestSafeEqual(t *testing.T) {
	assert.True(t, safeEqual("abc", "abc"))
	assert.False(t, safeEqual("abc", "abd"))
	assert.False(t, safeEqual("abc", "abcd"))
	assert.True(t, safeEqual("", ""))
}
