// Package internal holds the private implementation of the tempbin client.
// These packages may change without notice.
//
// The internal packages are organized as follows:
//   - digest: content hashing, HMAC chain, dedup fingerprint
//   - sigv4: canonical request construction and signing
//   - transport: single-request HTTP execution
//   - retry: bounded exponential-backoff retry
//   - pool: bounded-concurrency work scheduling
//   - multipart: multipart upload orchestration
//   - validation: key and metadata checks
//   - testutil: shared test doubles
package internal
