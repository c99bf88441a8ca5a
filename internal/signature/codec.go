package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"regexp"
	"strconv"
	"strings"
)

// Algorithm identifies the HMAC hash used for signing
type Algorithm string

const (
	// AlgorithmSHA256 is the default signing algorithm
	AlgorithmSHA256 Algorithm = "sha256"
	// AlgorithmSHA512 is the stronger alternative
	AlgorithmSHA512 Algorithm = "sha512"
)

// headerPattern matches exactly "hmac-<alg>=<hex>"; any deviation in prefix,
// algorithm name, separator or digest characters rejects the header.
var headerPattern = regexp.MustCompile(`^hmac-(sha256|sha512)=([0-9a-f]+)$`)

// hexDigestLen returns the expected hex digest length for the algorithm
func (a Algorithm) hexDigestLen() int {
	if a == AlgorithmSHA512 {
		return sha512.Size * 2
	}
	return sha256.Size * 2
}

func (a Algorithm) hashFunc() func() hash.Hash {
	if a == AlgorithmSHA512 {
		return sha512.New
	}
	return sha256.New
}

// ParseAlgorithm validates an algorithm name from configuration
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(name)) {
	case AlgorithmSHA256:
		return AlgorithmSHA256, nil
	case AlgorithmSHA512:
		return AlgorithmSHA512, nil
	default:
		return "", NewVerificationError("", "unsupported algorithm: %s", name)
	}
}

// Codec signs payloads and parses signature headers for one algorithm
type Codec struct {
	algorithm Algorithm
}

// NewCodec creates a codec for the given algorithm
func NewCodec(algorithm Algorithm) (*Codec, error) {
	if algorithm != AlgorithmSHA256 && algorithm != AlgorithmSHA512 {
		return nil, NewVerificationError("", "unsupported algorithm: %s", algorithm)
	}
	return &Codec{algorithm: algorithm}, nil
}

// Algorithm returns the algorithm this codec signs with
func (c *Codec) Algorithm() Algorithm {
	return c.algorithm
}

// Sign produces a header value over the legacy payload "<ts>\n<body>"
func (c *Codec) Sign(timestamp int64, body []byte, secret string) string {
	return c.sign(c.payload(timestamp, "", body), secret)
}

// SignWithDomain produces a header value over the domain-bound payload
// "<ts>\n<domain>\n<body>"
func (c *Codec) SignWithDomain(timestamp int64, body []byte, domain, secret string) string {
	return c.sign(c.payload(timestamp, domain, body), secret)
}

func (c *Codec) payload(timestamp int64, domain string, body []byte) []byte {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteByte('\n')
	if domain != "" {
		b.WriteString(domain)
		b.WriteByte('\n')
	}
	b.Write(body)
	return []byte(b.String())
}

func (c *Codec) sign(payload []byte, secret string) string {
	mac := hmac.New(c.algorithm.hashFunc(), []byte(secret))
	mac.Write(payload)
	return fmt.Sprintf("hmac-%s=%s", c.algorithm, hex.EncodeToString(mac.Sum(nil)))
}

// ParseHeader extracts the algorithm and hex digest from a signature header.
// The header must match the wire format exactly, including a digest of the
// length the named algorithm produces.
func ParseHeader(header string) (Algorithm, string, error) {
	matches := headerPattern.FindStringSubmatch(header)
	if matches == nil {
		return "", "", NewVerificationError(header, "malformed signature header")
	}

	algorithm := Algorithm(matches[1])
	digest := matches[2]
	if len(digest) != algorithm.hexDigestLen() {
		return "", "", NewVerificationError(header, "digest length does not match algorithm")
	}

	return algorithm, digest, nil
}
