// Package validation checks user-supplied keys and metadata before they
// reach the wire. Keys travel inside signed URLs, so control characters and
// traversal sequences are rejected outright rather than escaped.
package validation

import (
	"strings"
	"unicode"

	"github.com/kazeochan/tempbin/errors"
)

// maxKeyLength is the longest object key the store accepts, in bytes.
const maxKeyLength = 1024

// Key validates an object key.
func Key(key string) error {
	switch {
	case key == "":
		return keyError(key, "key is empty")
	case len(key) > maxKeyLength:
		return keyError(key, "key exceeds 1024 bytes")
	case hasTraversal(key):
		return keyError(key, "key contains a path traversal sequence")
	case hasControl(key):
		return keyError(key, "key contains control characters")
	case strings.HasPrefix(key, "/"):
		return keyError(key, "key starts with a slash")
	}
	return nil
}

// Metadata validates user metadata destined for x-amz-meta-* headers. Keys
// must be non-empty printable ASCII without spaces; values printable ASCII.
func Metadata(md map[string]string) error {
	for k, v := range md {
		if k == "" {
			return metaError("metadata key is empty")
		}
		for _, r := range k {
			if r <= ' ' || r > unicode.MaxASCII {
				return metaError("metadata key " + k + " contains invalid characters")
			}
		}
		for _, r := range v {
			if r < ' ' || r > unicode.MaxASCII {
				return metaError("metadata value for " + k + " contains invalid characters")
			}
		}
	}
	return nil
}

func hasTraversal(key string) bool {
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

func hasControl(key string) bool {
	for _, r := range key {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}

func keyError(key, msg string) error {
	return errors.NewError("ValidateKey", errors.ErrInvalidInput).
		WithKey(key).
		WithMessage(msg)
}

func metaError(msg string) error {
	return errors.NewError("ValidateMetadata", errors.ErrInvalidInput).
		WithMessage(msg)
}
