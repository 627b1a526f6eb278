package session

import (
	"fmt"

	"github.com/opd-ai/dpstream/correlate"
	"github.com/opd-ai/dpstream/crypto"
	"github.com/opd-ai/dpstream/noise"
)

// KeyExchange wraps the Noise-IK handshake (spec §4.10: "key exchange via
// Noise-IK, deriving a session key used to key the media cipher") for one
// session side. The host is the IK responder (its static key is known in
// advance by the client, matching the pattern's trust assumption); the
// client is the initiator.
type KeyExchange struct {
	ik *noise.IKHandshake
}

// NewHostKeyExchange builds the responder side: hostPrivKey is the host's
// long-term static private key (32 bytes).
func NewHostKeyExchange(hostPrivKey []byte) (*KeyExchange, error) {
	ik, err := noise.NewIKHandshake(hostPrivKey, nil, noise.Responder)
	if err != nil {
		return nil, correlate.Wrap(correlate.KindAuthentication, "session", err).
			WithSeverity(correlate.SeverityHigh)
	}
	return &KeyExchange{ik: ik}, nil
}

// NewClientKeyExchange builds the initiator side: clientPrivKey is the
// client's ephemeral static private key, hostPubKey is the host's known
// public key (the pre-shared knowledge Noise-IK requires of the
// initiator).
func NewClientKeyExchange(clientPrivKey, hostPubKey []byte) (*KeyExchange, error) {
	ik, err := noise.NewIKHandshake(clientPrivKey, hostPubKey, noise.Initiator)
	if err != nil {
		return nil, correlate.Wrap(correlate.KindAuthentication, "session", err).
			WithSeverity(correlate.SeverityHigh)
	}
	return &KeyExchange{ik: ik}, nil
}

// WriteMessage advances the handshake, producing the next message to send.
func (k *KeyExchange) WriteMessage(payload, received []byte) ([]byte, bool, error) {
	msg, done, err := k.ik.WriteMessage(payload, received)
	if err != nil {
		return nil, false, fmt.Errorf("key exchange write: %w", err)
	}
	return msg, done, nil
}

// ReadMessage processes a received handshake message (initiator only).
func (k *KeyExchange) ReadMessage(message []byte) ([]byte, bool, error) {
	payload, done, err := k.ik.ReadMessage(message)
	if err != nil {
		return nil, false, fmt.Errorf("key exchange read: %w", err)
	}
	return payload, done, nil
}

// IsComplete reports whether cipher states are ready.
func (k *KeyExchange) IsComplete() bool {
	return k.ik.IsComplete()
}

// SessionKeys returns the send/receive cipher states keying the RTP/media
// encryption layer once the handshake completes.
func (k *KeyExchange) SessionKeys() (send, recv CipherState, err error) {
	s, r, e := k.ik.GetCipherStates()
	if e != nil {
		return CipherState{}, CipherState{}, fmt.Errorf("session keys unavailable: %w", e)
	}
	return CipherState{cs: s}, CipherState{cs: r}, nil
}

// RemoteStaticKey returns the peer's long-term public key, used to
// confirm the client connected to the expected host (spec §4.10
// "mutual authentication").
func (k *KeyExchange) RemoteStaticKey() ([]byte, error) {
	return k.ik.GetRemoteStaticKey()
}

// CheckReplay guards against a captured handshake being replayed against
// the host: it records this handshake's nonce in store and reports false
// if the nonce was already seen (noise/doc.go: "applications should track
// used nonces to prevent replay attacks"). The host side calls this once
// the handshake completes, before trusting the resulting session keys.
func (k *KeyExchange) CheckReplay(store *crypto.NonceStore, timestamp int64) bool {
	return store.CheckAndStore(k.ik.GetNonce(), timestamp)
}

// identityFile is the filename EncryptedKeyStore uses to persist a static
// key pair's private half under LoadOrCreateIdentity's data directory.
const identityFile = "identity.key"

// LoadOrCreateIdentity returns the host's or client's long-term static key
// pair, persisting it at rest under dataDir (spec §4.10's "trust on first
// use": the same identity must survive process restarts so a returning
// peer is recognized). passphrase encrypts the stored private key via
// crypto.EncryptedKeyStore; the public key is re-derived from it on load
// rather than stored separately.
func LoadOrCreateIdentity(dataDir string, passphrase []byte) (pub, priv [32]byte, err error) {
	store, err := crypto.NewEncryptedKeyStore(dataDir, append([]byte(nil), passphrase...))
	if err != nil {
		return pub, priv, fmt.Errorf("open identity store: %w", err)
	}
	defer store.Close()

	if privBytes, readErr := store.ReadEncrypted(identityFile); readErr == nil {
		if len(privBytes) != 32 {
			return pub, priv, fmt.Errorf("stored identity has unexpected length %d", len(privBytes))
		}
		copy(priv[:], privBytes)
		kp, fromErr := crypto.FromSecretKey(priv)
		if fromErr != nil {
			return pub, priv, fmt.Errorf("derive public key from stored identity: %w", fromErr)
		}
		return kp.Public, priv, nil
	}

	pub, priv, genErr := GenerateStaticKeyPair()
	if genErr != nil {
		return pub, priv, fmt.Errorf("generate identity: %w", genErr)
	}
	if writeErr := store.WriteEncrypted(identityFile, priv[:]); writeErr != nil {
		return pub, priv, fmt.Errorf("persist identity: %w", writeErr)
	}
	return pub, priv, nil
}

// GenerateStaticKeyPair creates a fresh long-term keypair for either side
// of a handshake, reusing the host's NaCl-based key derivation.
func GenerateStaticKeyPair() (pub, priv [32]byte, err error) {
	kp, genErr := crypto.GenerateKeyPair()
	if genErr != nil {
		return pub, priv, fmt.Errorf("generate static keypair: %w", genErr)
	}
	pub, priv = kp.Public, kp.Private
	// The values above are copies; wipe the struct's own copy now that
	// it has served its purpose.
	_ = crypto.WipeKeyPair(kp)
	return pub, priv, nil
}
