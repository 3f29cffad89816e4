package tempbin

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazeochan/tempbin/errors"
	"github.com/kazeochan/tempbin/internal/testutil"
	"github.com/kazeochan/tempbin/tbtypes"
)

func testCreds() tbtypes.Credentials {
	return tbtypes.Credentials{
		AccountID:       "acct123",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret-key-value",
		Bucket:          "files",
	}
}

func fastRetry() tbtypes.RetryPolicy {
	return tbtypes.RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2}
}

// testClient builds a client over the scripted transport with a frozen clock
// and millisecond retries.
func testClient(t *testing.T, script *testutil.ScriptedTransport, opts ...tbtypes.Option) *Client {
	t.Helper()
	base := []tbtypes.Option{
		WithHTTPClient(testutil.HTTPClient(script.RoundTrip)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRetryPolicy(fastRetry()),
		WithClock(func() time.Time {
			return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
		}),
	}
	c, err := New(testCreds(), append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func TestNew_MissingCredentials(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*tbtypes.Credentials)
		missing string
	}{
		{
			name:    "account id",
			mutate:  func(c *tbtypes.Credentials) { c.AccountID = "" },
			missing: "account ID",
		},
		{
			name:    "access key id",
			mutate:  func(c *tbtypes.Credentials) { c.AccessKeyID = "" },
			missing: "access key ID",
		},
		{
			name:    "secret",
			mutate:  func(c *tbtypes.Credentials) { c.SecretAccessKey = "" },
			missing: "secret access key",
		},
		{
			name:    "bucket",
			mutate:  func(c *tbtypes.Credentials) { c.Bucket = "" },
			missing: "bucket",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := testCreds()
			tt.mutate(&creds)
			_, err := New(creds)
			require.Error(t, err)
			assert.True(t, errors.IsConfigMissing(err))
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}

func TestNew_EndpointStandsInForAccountID(t *testing.T) {
	creds := testCreds()
	creds.AccountID = ""
	c, err := New(creds, WithEndpoint("minio.internal:9000"))
	require.NoError(t, err)
	assert.Equal(t, "minio.internal:9000", c.host)
}

func TestNew_DerivesEndpointHost(t *testing.T) {
	c, err := New(testCreds())
	require.NoError(t, err)
	assert.Equal(t, "acct123.r2.cloudflarestorage.com", c.host)
}

func TestNew_PolicyOptions(t *testing.T) {
	c, err := New(testCreds(),
		WithMultipartThreshold(64),
		WithPartSize(16),
		WithConcurrency(2),
	)
	require.NoError(t, err)
	assert.Equal(t, int64(64), c.policy.MultipartThreshold)
	assert.Equal(t, int64(16), c.policy.PartSize)
	assert.Equal(t, 2, c.policy.Concurrency)
	// Unset fields keep their defaults.
	assert.Equal(t, 3, c.policy.Retry.MaxAttempts)
}

func TestNew_DefaultPolicy(t *testing.T) {
	c, err := New(testCreds())
	require.NoError(t, err)
	assert.Equal(t, tbtypes.DefaultMultipartThreshold, c.policy.MultipartThreshold)
	assert.Equal(t, tbtypes.DefaultPartSize, c.policy.PartSize)
	assert.Equal(t, tbtypes.DefaultConcurrency, c.policy.Concurrency)
}
