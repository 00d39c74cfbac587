package webhook

import (
	"context"
	"errors"
	"testing"
)

type staticSecrets map[string]string

func (s staticSecrets) HookSecret(ctx context.Context, fullName string) (string, error) {
	return s[fullName], nil
}

type failingSecrets struct{}

func (failingSecrets) HookSecret(ctx context.Context, fullName string) (string, error) {
	return "", errors.New("db down")
}

func TestVerifyRoundTrip(t *testing.T) {
	verifier := NewVerifier(staticSecrets{"acme/widgets": "s3cret"}, quietLogger())
	body := []byte(`{"action":"opened"}`)
	header := Sign("s3cret", body)

	if !verifier.Verify(context.Background(), "acme/widgets", body, header) {
		t.Fatalf("expected signature to verify")
	}
	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		if verifier.Verify(context.Background(), "acme/widgets", mutated, header) {
			t.Fatalf("expected mutation at byte %d to fail", i)
		}
	}
}

func TestVerifyRejects(t *testing.T) {
	body := []byte(`{}`)
	header := Sign("s3cret", body)
	cases := []struct {
		name     string
		secrets  SecretResolver
		fullName string
		header   string
	}{
		{name: "empty header", secrets: staticSecrets{"acme/widgets": "s3cret"}, fullName: "acme/widgets"},
		{name: "unknown repo", secrets: staticSecrets{}, fullName: "acme/widgets", header: header},
		{name: "empty secret", secrets: staticSecrets{"acme/widgets": ""}, fullName: "acme/widgets", header: header},
		{name: "wrong secret", secrets: staticSecrets{"acme/widgets": "other"}, fullName: "acme/widgets", header: header},
		{name: "resolver error", secrets: failingSecrets{}, fullName: "acme/widgets", header: header},
		{name: "sha256 prefix", secrets: staticSecrets{"acme/widgets": "s3cret"}, fullName: "acme/widgets", header: "sha256=" + header[len("sha1="):]},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verifier := NewVerifier(tc.secrets, quietLogger())
			if verifier.Verify(context.Background(), tc.fullName, body, tc.header) {
				t.Fatalf("expected rejection")
			}
		})
	}
}

func TestSignFormat(t *testing.T) {
	// HMAC-SHA1("key", "The quick brown fox jumps over the lazy dog")
	got := Sign("key", []byte("The quick brown fox jumps over the lazy dog"))
	want := "sha1=de7c9b85b8b78aa6bc8a7a36f70a90701c9db4d9"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
