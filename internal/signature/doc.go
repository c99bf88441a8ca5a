// Package signature implements the request-signing protocol used between
// client sites and this server.
//
// A signed request carries a header of the form
//
//	X-EagleChat-Signature: hmac-sha256=<hex digest>
//
// together with a unix-seconds timestamp header. The signed payload is the
// timestamp, a newline, and the raw request body. When the caller binds the
// signature to a domain, the payload is the timestamp, a newline, the domain,
// a newline, and the body. The two forms are distinct modes chosen by the
// caller up front; the validator never tries both.
//
// Supported algorithms are HMAC-SHA256 (default) and HMAC-SHA512, always
// hex-encoded. Comparison uses hmac.Equal. Timestamps are checked against a
// symmetric tolerance window before any digest work happens.
package signature
