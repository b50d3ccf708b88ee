package auth

import (
	"testing"

	"pgregory.net/rapid"
)

func TestComposePerRequestBasic(t *testing.T) {
	headers := Compose(AuthDecision{
		Mode:     ModePerRequest,
		Scheme:   SchemeBasic,
		Username: "alice",
		Secret:   "token123",
	})

	user, secret, err := DecodeBasic(headers.Get("Authorization"))
	if err != nil {
		t.Fatalf("decode composed header: %v", err)
	}
	if user != "alice" || secret != "token123" {
		t.Fatalf("composed header decodes to %q/%q", user, secret)
	}
	if headers.Get(HeaderImpersonation) != "" {
		t.Fatal("per-request headers must not carry impersonation")
	}
	if headers.Get("Accept") != "application/json" || headers.Get("Content-Type") != "application/json" {
		t.Fatal("content negotiation headers missing")
	}
}

func TestComposePerRequestBearer(t *testing.T) {
	headers := Compose(AuthDecision{
		Mode:   ModePerRequest,
		Scheme: SchemeBearer,
		Secret: "opaque-token",
	})

	if got := headers.Get("Authorization"); got != "Bearer opaque-token" {
		t.Fatalf("expected bearer scheme reproduced, got %q", got)
	}
}

func TestComposeServiceAccountOnly(t *testing.T) {
	headers := Compose(AuthDecision{
		Mode:     ModeServiceAccount,
		Scheme:   SchemeBasic,
		Username: "svc",
		Secret:   "svctoken",
	})

	if got := headers.Get("Authorization"); got != EncodeBasic("svc", "svctoken") {
		t.Fatalf("unexpected authorization header %q", got)
	}
	if _, present := headers[HeaderImpersonation]; present {
		t.Fatal("service-account-only headers must not carry impersonation")
	}
}

func TestComposeImpersonation(t *testing.T) {
	headers := Compose(AuthDecision{
		Mode:             ModeImpersonated,
		Scheme:           SchemeBasic,
		Username:         "svc",
		Secret:           "svctoken",
		ImpersonatedUser: "bob@example.com",
	})

	if got := headers.Get("Authorization"); got != EncodeBasic("svc", "svctoken") {
		t.Fatalf("unexpected authorization header %q", got)
	}
	if got := headers.Get(HeaderImpersonation); got != "bob@example.com" {
		t.Fatalf("expected impersonated user verbatim, got %q", got)
	}
}

func TestIsSensitiveHeader(t *testing.T) {
	if !IsSensitiveHeader("authorization") || !IsSensitiveHeader("Authorization") {
		t.Error("authorization must be sensitive regardless of case")
	}
	if IsSensitiveHeader(HeaderImpersonation) {
		t.Error("impersonation header carries a username, not a secret")
	}
}

// Decoding is the exact inverse of encoding, including secrets that contain
// colon characters: the split happens on the first colon only.
func TestBasicCodecRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		// Usernames cannot contain a colon in Basic credentials; secrets can.
		username := rapid.StringMatching(`[^:]{0,30}`).Draw(rt, "username")
		secret := rapid.String().Draw(rt, "secret")

		user, got, err := DecodeBasic(EncodeBasic(username, secret))
		if err != nil {
			rt.Fatalf("decode(encode(%q, %q)) failed: %v", username, secret, err)
		}
		if user != username || got != secret {
			rt.Fatalf("round trip mismatch: got %q/%q want %q/%q", user, got, username, secret)
		}
	})
}

func TestDecodeBasicColonInSecret(t *testing.T) {
	user, secret, err := DecodeBasic(EncodeBasic("alice", "se:cr:et"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if user != "alice" || secret != "se:cr:et" {
		t.Fatalf("colon in secret truncated: %q/%q", user, secret)
	}
}
