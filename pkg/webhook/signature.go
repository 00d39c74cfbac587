package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"log"
)

// SignatureHeader carries the HMAC-SHA1 digest of the delivery body.
const SignatureHeader = "X-Hub-Signature"

const signaturePrefix = "sha1="

// SecretResolver returns the webhook secret configured for a repository.
// An empty secret means the repository is unknown.
type SecretResolver interface {
	HookSecret(ctx context.Context, fullName string) (string, error)
}

// Verifier authenticates deliveries against per-repository secrets.
type Verifier struct {
	secrets SecretResolver
	logger  *log.Logger
}

// NewVerifier creates a Verifier.
func NewVerifier(secrets SecretResolver, logger *log.Logger) *Verifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Verifier{secrets: secrets, logger: logger}
}

// Verify reports whether header is the signature of body under the secret of
// repository fullName.
func (v *Verifier) Verify(ctx context.Context, fullName string, body []byte, header string) bool {
	if header == "" || fullName == "" {
		return false
	}
	secret, err := v.secrets.HookSecret(ctx, fullName)
	if err != nil {
		v.logger.Printf("hook secret lookup failed repo=%s: %v", fullName, err)
		return false
	}
	if secret == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, body)), []byte(header))
}

// Sign returns the X-Hub-Signature value for body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
