// Package auth implements credential resolution and outbound header
// composition. Per request, exactly one authentication decision is produced:
// forward the caller's own credentials, authenticate as the configured
// service account, or authenticate as the service account while attributing
// the action to the caller via an impersonation header.
package auth

import (
	"strings"

	"github.com/issuebridge/issuebridge/pkg/domain"
)

// ServiceCredentials is the optional configured service-account pair. When
// both fields are set, every upstream call authenticates with them and
// inbound secrets are never forwarded.
type ServiceCredentials struct {
	Username string
	APIToken string
}

// Configured reports whether service-account mode is enabled.
func (c ServiceCredentials) Configured() bool {
	return c.Username != "" && c.APIToken != ""
}

// Mode tags the shape of an AuthDecision.
type Mode string

const (
	// ModePerRequest forwards the inbound credentials verbatim.
	ModePerRequest Mode = "per_request"
	// ModeServiceAccount authenticates with configured credentials only.
	ModeServiceAccount Mode = "service_account"
	// ModeImpersonated authenticates with configured credentials and
	// attributes the call to the extracted end user.
	ModeImpersonated Mode = "service_account_impersonated"
)

// AuthDecision is the single resolved authentication shape for one request.
// Username/Secret are the credentials presented upstream; ImpersonatedUser
// is populated only for ModeImpersonated.
type AuthDecision struct {
	Mode             Mode
	Scheme           Scheme
	Username         string
	Secret           string
	ImpersonatedUser string
}

// Resolve decides the upstream authentication mode from the configured
// service credentials and the inbound Authorization header. This is the only
// place auth-mode policy lives: the choice is a pure function of
// configuration presence plus the header.
func Resolve(creds ServiceCredentials, authorization string) (AuthDecision, error) {
	if creds.Configured() {
		if user := ExtractUsername(authorization); user != "" {
			return AuthDecision{
				Mode:             ModeImpersonated,
				Scheme:           SchemeBasic,
				Username:         creds.Username,
				Secret:           creds.APIToken,
				ImpersonatedUser: user,
			}, nil
		}
		return AuthDecision{
			Mode:     ModeServiceAccount,
			Scheme:   SchemeBasic,
			Username: creds.Username,
			Secret:   creds.APIToken,
		}, nil
	}

	// No service account: the inbound header is mandatory.
	if strings.TrimSpace(authorization) == "" {
		return AuthDecision{}, domain.NewClassifiedError(domain.KindMissingCredentials,
			"no service account configured and no Authorization header provided")
	}

	scheme, payload, ok := splitScheme(authorization)
	if !ok {
		return AuthDecision{}, domain.NewClassifiedError(domain.KindMissingCredentials,
			"Authorization header is neither Basic nor Bearer")
	}

	switch scheme {
	case SchemeBasic:
		username, secret, err := DecodeBasic(authorization)
		if err != nil {
			return AuthDecision{}, domain.NewClassifiedError(domain.KindMissingCredentials,
				"Authorization header could not be decoded as Basic credentials")
		}
		return AuthDecision{
			Mode:     ModePerRequest,
			Scheme:   SchemeBasic,
			Username: username,
			Secret:   secret,
		}, nil
	case SchemeBearer:
		token := strings.TrimSpace(payload)
		if token == "" {
			return AuthDecision{}, domain.NewClassifiedError(domain.KindMissingCredentials,
				"Bearer token is empty")
		}
		// Bearer tokens carry no username; the whole token is the secret.
		return AuthDecision{
			Mode:   ModePerRequest,
			Scheme: SchemeBearer,
			Secret: token,
		}, nil
	default:
		return AuthDecision{}, domain.NewClassifiedError(domain.KindMissingCredentials,
			"unsupported authorization scheme")
	}
}

// ExtractUsername pulls an end-user identity out of an inbound Authorization
// header for impersonation. Basic headers yield the username portion; Bearer
// tokens carry no extractable identity and yield "".
func ExtractUsername(authorization string) string {
	scheme, _, ok := splitScheme(authorization)
	if !ok || scheme != SchemeBasic {
		return ""
	}
	username, _, err := DecodeBasic(authorization)
	if err != nil {
		return ""
	}
	return username
}

func splitScheme(authorization string) (Scheme, string, bool) {
	trimmed := strings.TrimSpace(authorization)
	name, payload, found := strings.Cut(trimmed, " ")
	if !found {
		return "", "", false
	}
	switch {
	case strings.EqualFold(name, string(SchemeBasic)):
		return SchemeBasic, payload, true
	case strings.EqualFold(name, string(SchemeBearer)):
		return SchemeBearer, payload, true
	default:
		return "", "", false
	}
}
