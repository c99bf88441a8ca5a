package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"eaglechat-server/internal/common/errors"
	"eaglechat-server/internal/common/logging"
	"eaglechat-server/internal/signature"
	"eaglechat-server/internal/vault"
)

// Headers carried on signed requests
const (
	HeaderSignature = "X-EagleChat-Signature"
	HeaderTimestamp = "X-EagleChat-Timestamp"
	HeaderVersion   = "X-EagleChat-Version"
	HeaderOrigin    = "X-EagleChat-Origin"
	HeaderSiteHash  = "X-EagleChat-Site-Hash"
)

// Headers stamped on responses that passed signature validation
const (
	HeaderSecurityVersion = "X-EagleChat-Security-Version"
	HeaderHMACValidated   = "X-EagleChat-HMAC-Validated"

	securityVersion = "1.0"

	// defaultProtocolVersion is assumed when a client omits HeaderVersion
	defaultProtocolVersion = "v1"
)

// hmacProtectedPaths require a valid signature
var hmacProtectedPaths = []string{
	"/api/v1/chat",
	"/api/v1/conversation-history",
}

// hmacExemptPaths never require a signature
var hmacExemptPaths = []string{
	"/api/v1/register",
	"/api/v1/health",
	"/api/v1/verify",
	"/swagger",
	"/docs",
}

type contextKey string

const (
	ctxKeyTenantID  contextKey = "hmac_tenant_id"
	ctxKeyTimestamp contextKey = "hmac_timestamp"
	ctxKeyValidated contextKey = "hmac_validated"
)

// TenantIDFromContext returns the tenant that signed the request, if the
// HMAC middleware validated it.
func TenantIDFromContext(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(ctxKeyTenantID).(string)
	return tenantID, ok
}

// SignatureValidated reports whether the request passed HMAC validation
func SignatureValidated(ctx context.Context) bool {
	validated, _ := ctx.Value(ctxKeyValidated).(bool)
	return validated
}

// HMACAuth validates request signatures on protected endpoints. The signing
// secret is tenant-scoped and fetched from the vault using the tenant_id
// carried in the request body.
type HMACAuth struct {
	vault            *vault.Vault
	validator        *signature.Validator
	guard            *signature.ClockGuard
	siteHashEnforced bool
	logger           logging.Logger
}

// NewHMACAuth creates the middleware. The guard must be the same one the
// validator uses so timestamp rejection is consistent.
func NewHMACAuth(v *vault.Vault, validator *signature.Validator, guard *signature.ClockGuard, siteHashEnforced bool, logger logging.Logger) *HMACAuth {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &HMACAuth{
		vault:            v,
		validator:        validator,
		guard:            guard,
		siteHashEnforced: siteHashEnforced,
		logger:           logger,
	}
}

// Handler wraps next with signature validation
func (h *HMACAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		for _, exempt := range hmacExemptPaths {
			if strings.HasPrefix(path, exempt) {
				next.ServeHTTP(w, r)
				return
			}
		}

		protected := false
		for _, prefix := range hmacProtectedPaths {
			if strings.HasPrefix(path, prefix) {
				protected = true
				break
			}
		}
		if !protected {
			next.ServeHTTP(w, r)
			return
		}

		signatureHeader := r.Header.Get(HeaderSignature)
		timestampHeader := r.Header.Get(HeaderTimestamp)
		origin := r.Header.Get(HeaderOrigin)
		siteHash := r.Header.Get(HeaderSiteHash)
		version := r.Header.Get(HeaderVersion)
		if version == "" {
			version = defaultProtocolVersion
		}

		if signatureHeader == "" || timestampHeader == "" {
			h.logger.Warn("HMAC authentication failed: missing headers",
				logging.Field{Key: "path", Value: path})
			h.reject(w, http.StatusUnauthorized, "HMAC authentication required")
			return
		}

		timestamp, err := strconv.ParseInt(timestampHeader, 10, 64)
		if err != nil {
			h.logger.Warn("HMAC authentication failed: invalid timestamp format")
			h.reject(w, http.StatusUnauthorized, "HMAC authentication failed")
			return
		}

		if !h.guard.Valid(timestamp) {
			h.logger.Warn("HMAC authentication failed: timestamp outside tolerance",
				logging.Field{Key: "timestamp", Value: timestamp})
			h.reject(w, http.StatusUnauthorized, "HMAC authentication failed")
			return
		}

		body, err := signature.PreserveRequestBody(r)
		if err != nil {
			h.logger.Error("Failed to read request body", err)
			h.reject(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		tenantID, err := tenantIDFromBody(body)
		if err != nil {
			h.reject(w, http.StatusBadRequest, "Invalid request body format")
			return
		}
		if tenantID == "" {
			h.logger.Warn("HMAC authentication failed: no tenant_id in request")
			h.reject(w, http.StatusUnauthorized, "HMAC authentication failed")
			return
		}

		secret, err := h.vault.GetSecret(r.Context(), tenantID, vault.PurposeHMAC)
		if err != nil {
			h.logger.Error("Failed to load signing secret", err,
				logging.Field{Key: "tenant_id", Value: tenantID})
			// A failed store lookup denies the request like a missing secret
			// does; only a decryption failure is the server's own fault.
			status := http.StatusUnauthorized
			if errors.IsType(err, errors.ErrTypeInternal) {
				status = http.StatusInternalServerError
			}
			h.reject(w, status, "HMAC authentication failed")
			return
		}
		if secret == nil {
			h.logger.Warn("HMAC authentication failed: no signing secret configured",
				logging.Field{Key: "tenant_id", Value: tenantID})
			h.reject(w, http.StatusUnauthorized, "HMAC authentication failed")
			return
		}

		if origin != "" && secret.Domain != "" && origin != secret.Domain {
			h.logger.Warn("HMAC authentication failed: origin domain mismatch",
				logging.Field{Key: "tenant_id", Value: tenantID},
				logging.Field{Key: "origin", Value: origin})
			h.reject(w, http.StatusUnauthorized, "HMAC authentication failed")
			return
		}

		if h.siteHashEnforced && origin != "" && siteHash != "" && secret.SiteHash != "" && siteHash != secret.SiteHash {
			h.logger.Warn("HMAC authentication failed: site hash mismatch",
				logging.Field{Key: "tenant_id", Value: tenantID})
			h.reject(w, http.StatusUnauthorized, "HMAC authentication failed")
			return
		}

		if !h.validator.Validate(signatureHeader, timestamp, body, secret.Value, origin) {
			h.logger.Warn("HMAC authentication failed: invalid signature",
				logging.Field{Key: "tenant_id", Value: tenantID})
			h.reject(w, http.StatusUnauthorized, "HMAC authentication failed")
			return
		}

		h.logger.Info("HMAC authentication successful",
			logging.Field{Key: "tenant_id", Value: tenantID},
			logging.Field{Key: "version", Value: version})

		ctx := r.Context()
		ctx = context.WithValue(ctx, ctxKeyTenantID, tenantID)
		ctx = context.WithValue(ctx, ctxKeyTimestamp, timestamp)
		ctx = context.WithValue(ctx, ctxKeyValidated, true)

		// The header map is shared with outer middleware, so the request
		// logger can pick the tenant up after the handler returns.
		r.Header.Set("X-Tenant-ID", tenantID)

		w.Header().Set(HeaderSecurityVersion, securityVersion)
		w.Header().Set(HeaderHMACValidated, "true")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// tenantIDFromBody pulls tenant_id out of the JSON request body. An empty
// body yields an empty tenant ID rather than a parse error.
func tenantIDFromBody(body []byte) (string, error) {
	if len(body) == 0 {
		return "", nil
	}

	var payload struct {
		TenantID string `json:"tenant_id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	return payload.TenantID, nil
}

func (h *HMACAuth) reject(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error": %q}`, message)
}
