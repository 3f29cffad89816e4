// Package digest provides the hashing primitives used by request signing and
// by the client-side content fingerprint.
package digest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// EmptyPayloadHash is the hex SHA-256 of the empty byte sequence, used as the
// payload hash for bodyless requests.
const EmptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

const (
	// fingerprintThreshold is the size above which the sampling fingerprint
	// replaces the full-content digest.
	fingerprintThreshold = 50 * 1024 * 1024

	// fingerprintChunk is the size of each sampled region.
	fingerprintChunk = 1024 * 1024
)

// SHA256Hex returns the hex-encoded SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HMACSHA256 returns the raw HMAC-SHA256 of message under key. Used for the
// signing-key derivation chain, where each step's output keys the next.
func HMACSHA256(key []byte, message string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return mac.Sum(nil)
}

// HMACSHA256Hex returns the hex-encoded HMAC-SHA256 of message under key.
func HMACSHA256Hex(key []byte, message string) string {
	return hex.EncodeToString(HMACSHA256(key, message))
}

// Fingerprint returns a content identifier for client-side de-duplication.
// Small content is digested whole; above the sampling threshold only the
// first, middle and last regions are digested together with "{name}-{size}",
// trading collision resistance for speed. The result is never used for
// request signing.
func Fingerprint(name string, data []byte) string {
	if int64(len(data)) <= fingerprintThreshold {
		return SHA256Hex(data)
	}
	return sampledFingerprint(name, data, fingerprintChunk)
}

// sampledFingerprint digests the first chunk, a middle chunk and the last
// chunk (middle and last only when the content is more than twice the chunk
// size), concatenated with the UTF-8 bytes of "{name}-{size}".
func sampledFingerprint(name string, data []byte, chunk int64) string {
	size := int64(len(data))
	h := sha256.New()

	end := chunk
	if end > size {
		end = size
	}
	h.Write(data[:end])

	if size > 2*chunk {
		mid := size / 2
		h.Write(data[mid : mid+chunk])
		h.Write(data[size-chunk:])
	}

	fmt.Fprintf(h, "%s-%d", name, size)
	return hex.EncodeToString(h.Sum(nil))
}
