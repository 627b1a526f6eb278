package crypto

import (
	"testing"
)

// TestMaxMessageSizeIsOneMegabyte verifies the crypto layer's message
// size limit, which EncryptSymmetric enforces for key-store payloads.
func TestMaxMessageSizeIsOneMegabyte(t *testing.T) {
	if MaxMessageSize != 1024*1024 {
		t.Errorf("MaxMessageSize = %d, want %d (1MB)", MaxMessageSize, 1024*1024)
	}
}

// TestEncryptionBufferLimitEnforced verifies the buffer limit is enforced
// in encryption operations.
func TestEncryptionBufferLimitEnforced(t *testing.T) {
	senderKeys, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}

	recipientKeys, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}

	// Create a message exactly at the limit - should succeed
	atLimitMessage := make([]byte, MaxMessageSize)
	nonce, err := GenerateNonce()
	if err != nil {
		t.Fatal(err)
	}

	_, err = Encrypt(atLimitMessage, nonce, recipientKeys.Public, senderKeys.Private)
	if err != nil {
		t.Errorf("Encryption at limit (%d bytes) should succeed, got error: %v",
			MaxMessageSize, err)
	}

	// Create a message over the limit - should fail
	overLimitMessage := make([]byte, MaxMessageSize+1)
	nonce, err = GenerateNonce()
	if err != nil {
		t.Fatal(err)
	}

	_, err = EncryptSymmetric(overLimitMessage, nonce, senderKeys.Private)
	if err == nil {
		t.Errorf("Encryption over limit (%d bytes) should fail", MaxMessageSize+1)
	}
	if err.Error() != "message too large" {
		t.Errorf("Expected error 'message too large', got: %v", err)
	}
}

// TestSymmetricEncryptionBufferLimitEnforced verifies the buffer limit is
// enforced in symmetric encryption operations.
func TestSymmetricEncryptionBufferLimitEnforced(t *testing.T) {
	key := [32]byte{1, 2, 3, 4, 5, 6, 7, 8}

	// Create a message exactly at the limit - should succeed
	atLimitMessage := make([]byte, MaxMessageSize)
	nonce, err := GenerateNonce()
	if err != nil {
		t.Fatal(err)
	}

	_, err = EncryptSymmetric(atLimitMessage, nonce, key)
	if err != nil {
		t.Errorf("Symmetric encryption at limit (%d bytes) should succeed, got error: %v",
			MaxMessageSize, err)
	}

	// Create a message over the limit - should fail
	overLimitMessage := make([]byte, MaxMessageSize+1)
	nonce, err = GenerateNonce()
	if err != nil {
		t.Fatal(err)
	}

	_, err = EncryptSymmetric(overLimitMessage, nonce, key)
	if err == nil {
		t.Errorf("Symmetric encryption over limit (%d bytes) should fail", MaxMessageSize+1)
	}
	if err.Error() != "message too large" {
		t.Errorf("Expected error 'message too large', got: %v", err)
	}
}
