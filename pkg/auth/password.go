package auth

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// PasswordLength is the length of a derived password (hex SHA-1).
const PasswordLength = sha1.Size * 2

// DerivePassword answers a login challenge: the lowercase hex HMAC-SHA1 of
// challenge keyed with secret.
func DerivePassword(secret, challenge string) (string, error) {
	mac := hmac.New(sha1.New, []byte(secret))
	if _, err := mac.Write([]byte(challenge)); err != nil {
		return "", fmt.Errorf("%w: derive password: %v", ErrInternal, err)
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}
