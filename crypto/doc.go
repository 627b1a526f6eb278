// Package crypto implements the cryptographic primitives the streaming
// session layer builds on.
//
// It provides NaCl-based authenticated encryption, secure key management,
// and memory-safe handling of session key material. The Noise-IK
// handshake (package noise) and session key exchange (package session)
// both depend on the key pair primitives defined here; this package does
// not itself speak the wire protocol.
//
// # Core Types
//
// The package defines several core types for cryptographic operations:
//
//   - [KeyPair]: NaCl crypto_box key pair (Curve25519), the host's/client's
//     long-term static identity
//   - [Nonce]: 24-byte random nonce for encryption operations
//
// # Symmetric Encryption
//
// The package provides NaCl secretbox authenticated symmetric encryption,
// used by [EncryptedKeyStore] to protect identity material at rest:
//
//	nonce, _ := crypto.GenerateNonce()
//	ciphertext, _ := crypto.EncryptSymmetric(plaintext, nonce, sharedKey)
//	plaintext, _ := crypto.DecryptSymmetric(ciphertext, nonce, sharedKey)
//
// Session traffic protected by the Noise-IK handshake is encrypted and
// decrypted through session.CipherState instead, not through this package.
//
// # Key Generation
//
// Generate new cryptographic key pairs using secure random entropy:
//
//	keyPair, err := crypto.GenerateKeyPair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer crypto.WipeKeyPair(keyPair) // Secure cleanup
//
// # Key Management
//
// EncryptedKeyStore provides encrypted at-rest storage for the host's and
// client's long-term static keys (spec §4.10 "trust on first use"); see
// also session.LoadOrCreateIdentity, which wraps it to return a ready
// key pair on each process start:
//
//	store, _ := crypto.NewEncryptedKeyStore("/path/to/data", []byte("passphrase"))
//	_ = store.WriteEncrypted("identity.key", keyPair.Private[:])
//	priv, _ := store.ReadEncrypted("identity.key")
//
// NonceStore provides replay-attack protection for handshake nonces through
// persistent tracking across process restarts:
//
//	ns, _ := crypto.NewNonceStore("/path/to/data")
//	if ns.CheckAndStore(nonce, timestamp) {
//	    // Nonce is fresh, proceed with the handshake
//	} else {
//	    // Replay attack detected
//	}
//
// # Secure Memory Handling
//
// All sensitive data should be securely wiped after use to prevent memory disclosure:
//
//	defer crypto.SecureWipe(sensitiveData)
//	defer crypto.WipeKeyPair(keyPair)
//
// The [SecureWipe] function uses constant-time XOR operations that cannot be
// optimized away by the compiler, ensuring memory is actually zeroed.
//
// # Deterministic Testing
//
// For reproducible testing, time-dependent components support injectable time providers:
//
//	ns, _ := crypto.NewNonceStoreWithTimeProvider(dataDir, myClock)
//
// where myClock is any TimeProvider. The MockTimeProvider used by this
// package's own tests is defined in its _test.go files and is not
// available to other packages.
//
// # Security Considerations
//
// The package implements several security best practices:
//
//   - Constant-time operations via crypto/subtle to prevent timing attacks
//   - Proper Curve25519 key clamping per RFC 7748
//   - PBKDF2 with 100,000 iterations for key derivation (NIST recommendation)
//   - NaCl secretbox (XSalsa20-Poly1305) for at-rest encryption with unique nonces
//   - Automatic secure wiping of intermediate cryptographic material
//   - Input validation to prevent buffer overflows and DoS attacks
//
// # Thread Safety
//
// All exported types in this package are safe for concurrent use:
//
//   - NonceStore uses sync.RWMutex with a background cleanup goroutine
//   - EncryptedKeyStore operations are atomic file operations
//   - Pure functions (encryption/decryption) are inherently thread-safe
package crypto
