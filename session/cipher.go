package session

import (
	"fmt"

	"github.com/flynn/noise"
)

// CipherState wraps a Noise cipher state derived from the key exchange,
// used to encrypt/decrypt control-plane payloads once the handshake
// completes (spec §4.10: "subsequent control messages are encrypted under
// the session key").
type CipherState struct {
	cs *noise.CipherState
}

// Encrypt appends the encrypted plaintext (with associated data ad) to
// out, returning the extended slice.
func (c CipherState) Encrypt(out, ad, plaintext []byte) []byte {
	return c.cs.Encrypt(out, ad, plaintext)
}

// Decrypt appends the decrypted ciphertext (with associated data ad) to
// out, returning the extended slice and an error if authentication fails.
func (c CipherState) Decrypt(out, ad, ciphertext []byte) ([]byte, error) {
	plaintext, err := c.cs.Decrypt(out, ad, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("cipher decrypt: %w", err)
	}
	return plaintext, nil
}
