package rank

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainComparison separates comparison fingerprints from any other hash
// computed over the same bytes. The version suffix allows a future change of
// the fingerprint inputs without colliding with old buttons still in chats.
const DomainComparison = "toplist/comparison/v1"

// FingerprintLen is the hex length of a fingerprint (128 bits). Chat
// transports cap callback payloads at 64 bytes, so the full digest is
// truncated.
const FingerprintLen = 32

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint identifies the question "left vs right" asked within window w of
// session sessionID. Changing any input yields a different fingerprint, so an
// answer pressed on an older question never matches the current one.
func Fingerprint(sessionID, leftID, rightID string, w Window) (string, error) {
	obj := map[string]any{
		"session_id": sessionID,
		"left":       leftID,
		"right":      rightID,
		"lo":         w.Lo,
		"hi":         w.Hi,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("fingerprint: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainComparison, canonical)[:FingerprintLen], nil
}

// MustFingerprint is like Fingerprint but panics on error.
// The inputs are strings and ints, so an error means a programming bug.
func MustFingerprint(sessionID, leftID, rightID string, w Window) string {
	fp, err := Fingerprint(sessionID, leftID, rightID, w)
	if err != nil {
		panic(err)
	}
	return fp
}
