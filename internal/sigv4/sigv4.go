// Package sigv4 implements AWS Signature Version 4 request signing for
// S3-compatible object stores.
//
// A signature binds the exact method, path, query, signed headers, payload
// hash and timestamp of one request; any deviation when the request is sent
// invalidates it. Signing happens entirely locally: the secret key never
// leaves the process, only the derived signature does.
package sigv4

import (
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kazeochan/tempbin/internal/digest"
)

// Signature scheme constants.
const (
	// Algorithm is the SigV4 signing algorithm identifier.
	Algorithm = "AWS4-HMAC-SHA256"

	// UnsignedPayload is the payload-hash sentinel for requests whose body is
	// not known at signing time, such as presigned GET URLs.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// TimeFormat is the layout of the X-Amz-Date header and query parameter.
	TimeFormat = "20060102T150405Z"

	// DateFormat is the date-only layout used in the credential scope.
	DateFormat = "20060102"

	// DefaultRegion is the signing region for stores that accept any.
	DefaultRegion = "auto"

	// ServiceS3 is the signing service name for object storage.
	ServiceS3 = "s3"

	requestSuffix = "aws4_request"
)

// Signer derives SigV4 authorization values and presigned query parameters
// from long-lived credentials. The zero Region and Service default at
// construction; a Signer is immutable and safe for concurrent use.
type Signer struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Service         string
}

// New returns a Signer for the "auto" region and "s3" service, the pairing
// accepted by R2-style stores. Callers targeting providers that require an
// explicit region set Region directly.
func New(accessKeyID, secretAccessKey string) *Signer {
	return &Signer{
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
		Region:          DefaultRegion,
		Service:         ServiceS3,
	}
}

// SignHeaders computes the Authorization header value for a request. The
// headers must already contain every header that will be sent byte-identical
// on the wire, including host and x-amz-date; the x-amz-date value must be
// now formatted with TimeFormat. payloadHash is the hex SHA-256 of the exact
// body, or digest.EmptyPayloadHash for bodyless requests.
func (s *Signer) SignHeaders(
	method, path string,
	query url.Values,
	headers http.Header,
	payloadHash string,
	now time.Time,
) string {
	amzDate := now.UTC().Format(TimeFormat)
	date := now.UTC().Format(DateFormat)

	headerBlock, signedHeaders := canonicalHeaders(headers)
	creq := canonicalRequest(method, path, CanonicalQuery(query), headerBlock, signedHeaders, payloadHash)
	signature := s.signature(creq, amzDate, date)

	return Algorithm +
		" Credential=" + s.AccessKeyID + "/" + s.scope(date) +
		", SignedHeaders=" + signedHeaders +
		", Signature=" + signature
}

// Presign returns the query parameters of a presigned URL for the given
// method, host and path, valid for expires counted from now. Only the host
// header is signed and the payload hash is the unsigned-payload sentinel, so
// the URL works without any additional headers (for example when opened in a
// browser). The returned values include the input query plus the X-Amz-*
// authentication parameters.
func (s *Signer) Presign(
	method, host, path string,
	query url.Values,
	expires time.Duration,
	now time.Time,
) url.Values {
	amzDate := now.UTC().Format(TimeFormat)
	date := now.UTC().Format(DateFormat)

	q := url.Values{}
	for k, vs := range query {
		q[k] = append([]string(nil), vs...)
	}
	q.Set("X-Amz-Algorithm", Algorithm)
	q.Set("X-Amz-Credential", s.AccessKeyID+"/"+s.scope(date))
	q.Set("X-Amz-Date", amzDate)
	q.Set("X-Amz-Expires", strconv.Itoa(int(expires/time.Second)))
	q.Set("X-Amz-SignedHeaders", "host")

	headerBlock := "host:" + host + "\n"
	creq := canonicalRequest(method, path, CanonicalQuery(q), headerBlock, "host", UnsignedPayload)
	q.Set("X-Amz-Signature", s.signature(creq, amzDate, date))

	return q
}

// scope returns the credential scope for the given date.
func (s *Signer) scope(date string) string {
	return date + "/" + s.Region + "/" + s.Service + "/" + requestSuffix
}

// signature hashes the canonical request into the string-to-sign and signs it
// with the date-scoped derived key.
func (s *Signer) signature(canonicalReq, amzDate, date string) string {
	stringToSign := Algorithm + "\n" +
		amzDate + "\n" +
		s.scope(date) + "\n" +
		digest.SHA256Hex([]byte(canonicalReq))
	return digest.HMACSHA256Hex(s.signingKey(date), stringToSign)
}

// signingKey derives the 32-byte signing key by the 4-step HMAC chain over
// "AWS4"+secret, folding in date, region, service and the request suffix.
// The key is valid only for that exact date/region/service triple.
func (s *Signer) signingKey(date string) []byte {
	k := digest.HMACSHA256([]byte("AWS4"+s.SecretAccessKey), date)
	k = digest.HMACSHA256(k, s.Region)
	k = digest.HMACSHA256(k, s.Service)
	return digest.HMACSHA256(k, requestSuffix)
}

// canonicalRequest assembles the order-normalized serialization of a request.
// headerBlock ends with a newline, which produces the blank line separating
// the header block from the signed-header list.
func canonicalRequest(method, path, query, headerBlock, signedHeaders, payloadHash string) string {
	return strings.Join([]string{
		method,
		path,
		query,
		headerBlock,
		signedHeaders,
		payloadHash,
	}, "\n")
}

// canonicalHeaders lower-cases and sorts the headers, returning the canonical
// "name:value\n" block and the ";"-joined signed-header list. Multi-valued
// headers are folded with commas; values are trimmed.
func canonicalHeaders(headers http.Header) (block, signedHeaders string) {
	names := make([]string, 0, len(headers))
	values := make(map[string]string, len(headers))
	for name, vs := range headers {
		lower := strings.ToLower(name)
		trimmed := make([]string, len(vs))
		for i, v := range vs {
			trimmed[i] = strings.TrimSpace(v)
		}
		names = append(names, lower)
		values[lower] = strings.Join(trimmed, ",")
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(values[name])
		b.WriteByte('\n')
	}
	return b.String(), strings.Join(names, ";")
}

// CanonicalQuery percent-encodes and sorts query parameters by key (values
// sorted within a key), joined as key=value&... . The same serialization is
// used for signing and for the URL actually sent, keeping both byte-identical.
func CanonicalQuery(query url.Values) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		vs := append([]string(nil), query[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(escape(k))
			b.WriteByte('=')
			b.WriteString(escape(v))
		}
	}
	return b.String()
}

// EncodePath percent-encodes each segment of an unescaped object path,
// preserving the "/" separators.
func EncodePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = escape(seg)
	}
	return strings.Join(segments, "/")
}

const upperhex = "0123456789ABCDEF"

// escape percent-encodes s per RFC 3986: unreserved characters pass through,
// everything else (including space, as %20) is encoded.
func escape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
		}
	}
	return b.String()
}
