package signature

import (
	"crypto/hmac"

	"eaglechat-server/internal/common/logging"
)

// Validator checks inbound signature headers against a shared secret
type Validator struct {
	codec  *Codec
	guard  *ClockGuard
	logger logging.Logger
}

// NewValidator creates a validator from a codec and a clock guard
func NewValidator(codec *Codec, guard *ClockGuard, logger logging.Logger) *Validator {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Validator{
		codec:  codec,
		guard:  guard,
		logger: logger,
	}
}

// Validate reports whether the signature header authenticates the request.
// Checks run cheapest-first: clock window, header shape, then the HMAC
// recomputation and constant-time compare. A non-empty domain selects the
// domain-bound payload form; empty selects the legacy form. The two are
// never cross-tried. Secrets and digests are not logged.
func (v *Validator) Validate(header string, timestamp int64, body []byte, secret, domain string) (valid bool) {
	// Anything unexpected during recomputation means the request does not
	// authenticate. It must never take the server down.
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("signature validation panicked", nil,
				logging.Field{"recovered", r},
			)
			valid = false
		}
	}()

	if !v.guard.Valid(timestamp) {
		v.logger.Debug("signature rejected: timestamp outside tolerance",
			logging.Field{"timestamp", timestamp},
			logging.Field{"tolerance", v.guard.Tolerance().String()},
		)
		return false
	}

	algorithm, _, err := ParseHeader(header)
	if err != nil {
		v.logger.Debug("signature rejected: malformed header")
		return false
	}
	if algorithm != v.codec.Algorithm() {
		v.logger.Debug("signature rejected: algorithm mismatch",
			logging.Field{"got", string(algorithm)},
			logging.Field{"want", string(v.codec.Algorithm())},
		)
		return false
	}

	var expected string
	if domain != "" {
		expected = v.codec.SignWithDomain(timestamp, body, domain, secret)
	} else {
		expected = v.codec.Sign(timestamp, body, secret)
	}

	if !hmac.Equal([]byte(header), []byte(expected)) {
		v.logger.Debug("signature rejected: digest mismatch",
			logging.Field{"domain_bound", domain != ""},
		)
		return false
	}

	return true
}
