package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"time"
)

// EmptyPayloadHash is the SHA-256 of the empty string, used for bodyless
// requests.
const EmptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

const (
	signAlgorithm = "AWS4-HMAC-SHA256"
	signService   = "s3"
	amzDateFormat = "20060102T150405Z"
)

// Credentials is a long-term access/secret key pair. No session tokens.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// Sign computes SigV4 authentication headers for one request. It is a pure
// function of its inputs: no I/O, no clock reads. The headers map must
// already contain the Host header; the returned map is a copy extended with
// x-amz-date, x-amz-content-sha256 and Authorization.
func Sign(method, path string, query url.Values, headers map[string]string, payloadHash string, creds Credentials, region string, t time.Time) map[string]string {
	amzDate := t.UTC().Format(amzDateFormat)
	date := t.UTC().Format("20060102")

	signed := make(map[string]string, len(headers)+3)
	for k, v := range headers {
		signed[k] = v
	}
	signed["x-amz-date"] = amzDate
	signed["x-amz-content-sha256"] = payloadHash

	canonicalHeaders, signedHeaders := canonicalizeHeaders(signed)

	canonicalRequest := strings.Join([]string{
		method,
		encodePath(path),
		canonicalQuery(query),
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := strings.Join([]string{date, region, signService, "aws4_request"}, "/")

	stringToSign := strings.Join([]string{
		signAlgorithm,
		amzDate,
		scope,
		hexSHA256([]byte(canonicalRequest)),
	}, "\n")

	signature := hex.EncodeToString(hmacSHA256(signingKey(creds.SecretKey, date, region), stringToSign))

	signed["Authorization"] = signAlgorithm +
		" Credential=" + creds.AccessKey + "/" + scope +
		", SignedHeaders=" + signedHeaders +
		", Signature=" + signature

	return signed
}

// signingKey derives the per-date signing key through the 4-level HMAC chain.
func signingKey(secret, date, region string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), date)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, signService)
	return hmacSHA256(kService, "aws4_request")
}

// canonicalizeHeaders returns the canonical header block (lower-cased names,
// sorted, trimmed values, newline-joined with a trailing newline) and the
// semicolon-joined signed-header list. The Authorization header itself is
// never signed.
func canonicalizeHeaders(headers map[string]string) (string, string) {
	names := make([]string, 0, len(headers))
	byName := make(map[string]string, len(headers))
	for k, v := range headers {
		name := strings.ToLower(k)
		if name == "authorization" {
			continue
		}
		names = append(names, name)
		byName[name] = strings.TrimSpace(v)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(byName[name])
		b.WriteByte('\n')
	}
	return b.String(), strings.Join(names, ";")
}

// canonicalQuery renders the query string with keys and values URI-encoded
// per RFC 3986 and sorted by key.
func canonicalQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(query))
	for _, k := range keys {
		vals := append([]string(nil), query[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			parts = append(parts, uriEncode(k)+"="+uriEncode(v))
		}
	}
	return strings.Join(parts, "&")
}

// encodePath URI-encodes each path segment, preserving separators.
func encodePath(path string) string {
	if path == "" {
		return "/"
	}
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = uriEncode(s)
	}
	return strings.Join(segments, "/")
}

// uriEncode is the strict RFC 3986 encoding the signature scheme requires:
// unreserved characters pass through, everything else becomes %XX with
// uppercase hex. Space is %20, never "+".
func uriEncode(s string) string {
	const upperhex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xf])
		}
	}
	return b.String()
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func hexSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
