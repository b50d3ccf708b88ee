package auth

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// Scheme names an HTTP authentication scheme on the wire.
type Scheme string

const (
	SchemeBasic  Scheme = "Basic"
	SchemeBearer Scheme = "Bearer"
)

// HeaderImpersonation attributes a service-account call to an end user.
// Requires admin permissions on Jira Server/Data Center; Jira Cloud ignores
// it.
const HeaderImpersonation = "X-Atlassian-User"

const headerAuthorization = "Authorization"

// SensitiveHeaders lists outbound header names whose values must be fully
// redacted by any logging collaborator. The impersonation header is not
// sensitive: it carries a username, not a secret.
func SensitiveHeaders() []string {
	return []string{headerAuthorization}
}

// IsSensitiveHeader reports whether a header value must never be logged or
// echoed. Comparison is case-insensitive.
func IsSensitiveHeader(name string) bool {
	for _, sensitive := range SensitiveHeaders() {
		if strings.EqualFold(name, sensitive) {
			return true
		}
	}
	return false
}

// Compose builds the exact outbound header set for a resolved decision.
// Deterministic with no failure path: every valid AuthDecision yields valid
// headers.
func Compose(decision AuthDecision) http.Header {
	headers := make(http.Header)
	headers.Set("Accept", "application/json")
	headers.Set("Content-Type", "application/json")

	switch decision.Mode {
	case ModePerRequest:
		if decision.Scheme == SchemeBearer {
			headers.Set(headerAuthorization, fmt.Sprintf("Bearer %s", decision.Secret))
		} else {
			headers.Set(headerAuthorization, EncodeBasic(decision.Username, decision.Secret))
		}
	case ModeServiceAccount:
		headers.Set(headerAuthorization, EncodeBasic(decision.Username, decision.Secret))
	case ModeImpersonated:
		headers.Set(headerAuthorization, EncodeBasic(decision.Username, decision.Secret))
		// Identity passes through verbatim, no re-encoding.
		headers.Set(HeaderImpersonation, decision.ImpersonatedUser)
	}

	return headers
}

// EncodeBasic builds a Basic Authorization header value from a username and
// secret.
func EncodeBasic(username, secret string) string {
	credentials := fmt.Sprintf("%s:%s", username, secret)
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials))
}

// DecodeBasic splits a Basic Authorization header into username and secret.
// The decoded pair is split on the first colon only, so secrets containing
// colons survive intact.
func DecodeBasic(authorization string) (string, string, error) {
	scheme, payload, ok := splitScheme(authorization)
	if !ok || scheme != SchemeBasic {
		return "", "", fmt.Errorf("not a Basic authorization header")
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return "", "", fmt.Errorf("invalid base64 in Basic credentials: %w", err)
	}

	username, secret, found := strings.Cut(string(decoded), ":")
	if !found {
		return "", "", fmt.Errorf("basic credentials missing colon separator")
	}
	return username, secret, nil
}
