package tempbin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kazeochan/tempbin/errors"
	"github.com/kazeochan/tempbin/internal/validation"
)

// Delete removes the object stored under key. Deleting an object that does
// not exist is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := validation.Key(key); err != nil {
		var e *errors.Error
		if errors.As(err, &e) {
			return e.WithBucket(c.creds.Bucket)
		}
		return err
	}

	err := c.withRetry(ctx, "delete_object", func() error {
		_, err := c.do(ctx, "delete_object", http.MethodDelete, key, nil, nil, nil, nil, true)
		return err
	})
	if err != nil {
		return errors.NewError("Delete", err).
			WithBucket(c.creds.Bucket).
			WithKey(key)
	}

	c.logger.DebugContext(ctx, "object deleted",
		slog.String("key", key))
	return nil
}
