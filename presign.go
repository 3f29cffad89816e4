package tempbin

import (
	"net/http"
	"strings"

	"github.com/kazeochan/tempbin/errors"
	"github.com/kazeochan/tempbin/internal/sigv4"
	"github.com/kazeochan/tempbin/internal/validation"
	"github.com/kazeochan/tempbin/tbtypes"
)

// ShareURL returns a download link for key. When the credentials carry a
// public URL the link is {publicURL}/{key} with no signature; otherwise a
// presigned GET URL is generated, valid for the configured expiry (default
// 10 minutes) counted from now. No request is made: the URL is computed
// entirely locally.
func (c *Client) ShareURL(key string, opts ...tbtypes.PresignOption) (string, error) {
	if err := validation.Key(key); err != nil {
		var e *errors.Error
		if errors.As(err, &e) {
			return "", e.WithBucket(c.creds.Bucket)
		}
		return "", err
	}

	if c.creds.PublicURL != "" {
		return strings.TrimSuffix(c.creds.PublicURL, "/") + sigv4.EncodePath("/"+key), nil
	}

	cfg := tbtypes.PresignConfig{Expiry: tbtypes.DefaultShareExpiry}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = tbtypes.DefaultShareExpiry
	}

	path := c.bucketPath(key)
	query := c.signer.Presign(http.MethodGet, c.host, path, nil, cfg.Expiry, c.now().UTC())
	return "https://" + c.host + path + "?" + sigv4.CanonicalQuery(query), nil
}
