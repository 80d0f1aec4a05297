package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// verificationTokenLen is the hex length of registrant confirmation tokens.
// Long enough that collision with an outstanding token is never a concern.
const verificationTokenLen = 84

func randomHex(chars int) (string, error) {
	buf := make([]byte, chars/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// newVerificationToken generates an unguessable registrant confirmation token.
func newVerificationToken() (string, error) {
	return randomHex(verificationTokenLen)
}

// newAuthInfo generates a fresh domain authorization secret.
func newAuthInfo() (string, error) {
	return randomHex(24)
}

// newContactCode generates a public contact identifier under the given
// registrar code.
func newContactCode(registrarCode string) (string, error) {
	suffix, err := randomHex(8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CID:%s:%s", strings.ToUpper(registrarCode), suffix), nil
}
