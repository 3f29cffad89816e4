package tempbin

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/xml"
	"net/http"
	"net/url"

	"github.com/kazeochan/tempbin/errors"
	"github.com/kazeochan/tempbin/tbtypes"
)

type corsConfiguration struct {
	XMLName xml.Name   `xml:"CORSConfiguration"`
	Rules   []corsRule `xml:"CORSRule"`
}

type corsRule struct {
	AllowedOrigins []string `xml:"AllowedOrigin"`
	AllowedMethods []string `xml:"AllowedMethod"`
	AllowedHeaders []string `xml:"AllowedHeader,omitempty"`
	MaxAgeSeconds  int      `xml:"MaxAgeSeconds,omitempty"`
}

type lifecycleConfiguration struct {
	XMLName xml.Name        `xml:"LifecycleConfiguration"`
	Rules   []lifecycleRule `xml:"Rule"`
}

type lifecycleRule struct {
	ID         string              `xml:"ID,omitempty"`
	Filter     lifecycleFilter     `xml:"Filter"`
	Status     string              `xml:"Status"`
	Expiration lifecycleExpiration `xml:"Expiration"`
}

type lifecycleFilter struct {
	Prefix string `xml:"Prefix"`
}

type lifecycleExpiration struct {
	Days int `xml:"Days"`
}

// PutCORS replaces the bucket CORS configuration with rules. At least one
// rule is required; browsers cannot upload directly to the bucket until a
// configuration allowing their origin is in place.
func (c *Client) PutCORS(ctx context.Context, rules []tbtypes.CORSRule) error {
	if len(rules) == 0 {
		return errors.NewError("PutCORS", errors.ErrInvalidInput).
			WithBucket(c.creds.Bucket).
			WithMessage("no rules given")
	}

	doc := corsConfiguration{}
	for _, r := range rules {
		doc.Rules = append(doc.Rules, corsRule{
			AllowedOrigins: r.AllowedOrigins,
			AllowedMethods: r.AllowedMethods,
			AllowedHeaders: r.AllowedHeaders,
			MaxAgeSeconds:  r.MaxAgeSeconds,
		})
	}
	return c.putBucketConfig(ctx, "put_cors", "PutCORS", url.Values{"cors": {""}}, doc)
}

// GetCORS reports whether the bucket has any CORS configuration. A 404 from
// the store means none is set; any other failure is returned as an error.
func (c *Client) GetCORS(ctx context.Context) (bool, error) {
	var configured bool
	err := c.withRetry(ctx, "get_cors", func() error {
		res, err := c.do(ctx, "get_cors", http.MethodGet, "", url.Values{"cors": {""}}, nil, nil, nil, true)
		if err != nil {
			return err
		}
		configured = res.Status != http.StatusNotFound
		return nil
	})
	if err != nil {
		return false, errors.NewError("GetCORS", err).WithBucket(c.creds.Bucket)
	}
	return configured, nil
}

// PutLifecycle replaces the bucket lifecycle configuration with rules,
// typically one expiring uploaded objects after a number of days.
func (c *Client) PutLifecycle(ctx context.Context, rules []tbtypes.LifecycleRule) error {
	if len(rules) == 0 {
		return errors.NewError("PutLifecycle", errors.ErrInvalidInput).
			WithBucket(c.creds.Bucket).
			WithMessage("no rules given")
	}

	doc := lifecycleConfiguration{}
	for _, r := range rules {
		doc.Rules = append(doc.Rules, lifecycleRule{
			ID:         r.ID,
			Filter:     lifecycleFilter{Prefix: r.Prefix},
			Status:     "Enabled",
			Expiration: lifecycleExpiration{Days: r.ExpireAfterDays},
		})
	}
	return c.putBucketConfig(ctx, "put_lifecycle", "PutLifecycle", url.Values{"lifecycle": {""}}, doc)
}

// putBucketConfig marshals doc and PUTs it at the bucket subresource named by
// query. The store requires a Content-MD5 over the body for these calls.
func (c *Client) putBucketConfig(ctx context.Context, op, errOp string, query url.Values, doc any) error {
	body, err := xml.Marshal(doc)
	if err != nil {
		return errors.NewError(errOp, err).WithBucket(c.creds.Bucket)
	}

	sum := md5.Sum(body)
	header := http.Header{}
	header.Set("Content-MD5", base64.StdEncoding.EncodeToString(sum[:]))
	header.Set("Content-Type", "application/xml")

	err = c.withRetry(ctx, op, func() error {
		_, err := c.do(ctx, op, http.MethodPut, "", query, header, body, nil, false)
		return err
	})
	if err != nil {
		return errors.NewError(errOp, err).WithBucket(c.creds.Bucket)
	}
	return nil
}
