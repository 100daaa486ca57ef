// Package fetch resolves payload references into bytes.
//
// A Router dispatches on the reference scheme: file:// (and bare paths),
// http:// and https://, and gs:// for Google Cloud Storage objects. Every
// fetch is bounded by a byte ceiling. Failures are classified so the
// caller can tell a missing object (permanent) from a flaky network
// (transient) or a throttled endpoint (rate limited).
package fetch
