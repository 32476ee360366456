package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidateAddress checks that s is a well-formed base58 public key.
func ValidateAddress(s string) error {
	decoded, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid base58 address: %w", err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("invalid address length: %d bytes", len(decoded))
	}
	return nil
}

// IsOnCurve reports whether a 32-byte point lies on the ed25519 curve.
// Wallet keypairs are on-curve; program derived addresses are not.
func IsOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// IsOnCurveAddress reports whether addr decodes to an on-curve public key.
// The second result is false when addr is not a 32-byte base58 value, in
// which case the first result carries no meaning.
func IsOnCurveAddress(addr string) (onCurve, decoded bool) {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != 32 {
		return false, false
	}
	return IsOnCurve(raw), true
}
