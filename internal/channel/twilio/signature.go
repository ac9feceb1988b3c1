package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// SignatureHeader carries the carrier's request signature.
const SignatureHeader = "X-Twilio-Signature"

// ComputeSignature returns the base64 HMAC-SHA1 signature over the full
// request URL followed by every POST parameter, sorted alphabetically by
// name, each appended as name+value. This is the carrier's documented
// request-signing scheme.
func ComputeSignature(authToken, requestURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString(requestURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ValidateRequest checks the signature header against the signature
// computed from the reconstructed request URL and the parsed form body.
// The URL is rebuilt with the https scheme unconditionally: the carrier
// always signs the https URL even when an edge proxy terminates TLS
// upstream of this service. Returns false on any mismatch or when the
// header is missing. ParseForm must have been called on the request.
func ValidateRequest(r *http.Request, authToken string) bool {
	sig := r.Header.Get(SignatureHeader)
	if sig == "" {
		return false
	}
	requestURL := "https://" + r.Host + r.URL.RequestURI()
	expected := ComputeSignature(authToken, requestURL, r.PostForm)
	return safeEqual(sig, expected)
}

// safeEqual performs a constant-time string comparison to prevent timing
// attacks on the signature check.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}
