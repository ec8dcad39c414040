package auth

import (
	"crypto/ed25519"
	"crypto/sha512"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/nacl/sign"

	"github.com/vaonis-tools/instrument-auth/interfaces"
)

// AuthContext carries the per-request values an authorized call is bound to.
// It is constructed fresh from a prior status response and never mutated.
type AuthContext struct {
	Challenge   string
	TelescopeID string
	BootCount   int
}

// BuildAuthorizationHeader computes the Authorization header value for the
// given context. Key material is resolved through src; explicit bytes take
// precedence over a base64 string, which takes precedence over a file path.
// The zero-value KeySource falls back to the conventional key file locations.
//
// The function performs no I/O beyond key resolution and is safe to call
// concurrently.
func BuildAuthorizationHeader(actx AuthContext, src KeySource) (string, error) {
	keyBytes, err := ResolveKeyMaterial(src)
	if err != nil {
		return "", err
	}
	payload, err := buildPayload(actx)
	if err != nil {
		return "", err
	}
	digest := sha512.Sum512(payload)
	signed, err := signEd25519(digest[:], keyBytes)
	if err != nil {
		return "", err
	}
	signatureB64 := base64.StdEncoding.EncodeToString(signed)
	return fmt.Sprintf("Basic android|%s|%s", actx.Challenge[:1], signatureB64), nil
}

// buildPayload decodes the challenge payload and appends the identity tail.
func buildPayload(actx AuthContext) ([]byte, error) {
	if len(actx.Challenge) < 2 {
		return nil, interfaces.ErrInvalidChallenge
	}
	challengeBytes, err := base64.StdEncoding.DecodeString(actx.Challenge[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidChallenge, err)
	}
	tail := fmt.Sprintf("|%s|%d", actx.TelescopeID, actx.BootCount)
	return append(challengeBytes, tail...), nil
}

// signEd25519 produces the NaCl signed-message format: the 64-byte signature
// prepended to the message. A 64-byte key is the raw expanded secret key; a
// 32-byte key is a seed and is expanded deterministically.
func signEd25519(message, keyBytes []byte) ([]byte, error) {
	switch len(keyBytes) {
	case 64:
		return sign.Sign(nil, message, (*[64]byte)(keyBytes)), nil
	case 32:
		priv := ed25519.NewKeyFromSeed(keyBytes)
		return sign.Sign(nil, message, (*[64]byte)(priv)), nil
	default:
		return nil, fmt.Errorf("%w: %d bytes", interfaces.ErrKeyFormat, len(keyBytes))
	}
}
