// Package core holds the OPS client: domain records, the error taxonomy, the
// retry executor, payload normalizers, the validator and the Client that
// orchestrates them. Adapters for transport, authentication and rate limiting
// depend on this package; core never imports them.
package core
