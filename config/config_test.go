package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazeochan/tempbin/tbtypes"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
account_id: acct123
access_key_id: key123
secret_access_key: secret123
bucket: files
public_url: https://files.example.com
upload:
  multipart_threshold_mb: 50
  part_size_mb: 5
  concurrency: 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	creds := cfg.Credentials()
	assert.Equal(t, "acct123", creds.AccountID)
	assert.Equal(t, "key123", creds.AccessKeyID)
	assert.Equal(t, "secret123", creds.SecretAccessKey)
	assert.Equal(t, "files", creds.Bucket)
	assert.Equal(t, "https://files.example.com", creds.PublicURL)

	policy := cfg.Policy()
	assert.Equal(t, int64(50<<20), policy.MultipartThreshold)
	assert.Equal(t, int64(5<<20), policy.PartSize)
	assert.Equal(t, 4, policy.Concurrency)
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("TEMPBIN_ACCOUNT_ID", "env-acct")
	t.Setenv("TEMPBIN_ACCESS_KEY_ID", "env-key")
	t.Setenv("TEMPBIN_SECRET_ACCESS_KEY", "env-secret")
	t.Setenv("TEMPBIN_BUCKET", "env-bucket")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	creds := cfg.Credentials()
	assert.Equal(t, "env-acct", creds.AccountID)
	assert.Equal(t, "env-bucket", creds.Bucket)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "account_id: file-acct\nbucket: file-bucket\n")
	t.Setenv("TEMPBIN_ACCOUNT_ID", "env-acct")
	t.Setenv("TEMPBIN_CONCURRENCY", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-acct", cfg.AccountID)
	assert.Equal(t, "file-bucket", cfg.Bucket)
	assert.Equal(t, 7, cfg.Policy().Concurrency)
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeConfig(t, "account_id: [unclosed\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestPolicy_Defaults(t *testing.T) {
	cfg := &Config{}
	policy := cfg.Policy()
	assert.Equal(t, int64(tbtypes.DefaultMultipartThreshold), policy.MultipartThreshold)
	assert.Equal(t, int64(tbtypes.DefaultPartSize), policy.PartSize)
	assert.Equal(t, tbtypes.DefaultConcurrency, policy.Concurrency)
}
