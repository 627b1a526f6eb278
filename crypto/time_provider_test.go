package crypto

import (
	"testing"
	"time"
)

// MockTimeProvider is a test double that allows controlling time.
type MockTimeProvider struct {
	currentTime time.Time
}

// Now returns the mock current time.
func (m *MockTimeProvider) Now() time.Time { return m.currentTime }

// Since returns the duration since the given time.
func (m *MockTimeProvider) Since(t time.Time) time.Duration { return m.currentTime.Sub(t) }

// Advance moves the mock time forward by the given duration.
func (m *MockTimeProvider) Advance(d time.Duration) { m.currentTime = m.currentTime.Add(d) }

// Set sets the mock time to the given time.
func (m *MockTimeProvider) Set(t time.Time) { m.currentTime = t }

// NewMockTimeProvider creates a new MockTimeProvider initialized to the given time.
func NewMockTimeProvider(t time.Time) *MockTimeProvider {
	return &MockTimeProvider{currentTime: t}
}

func TestTimeProvider_Default(t *testing.T) {
	t.Parallel()

	// Test DefaultTimeProvider
	dp := DefaultTimeProvider{}

	before := time.Now()
	now := dp.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Error("DefaultTimeProvider.Now() should return current time")
	}

	// Test Since
	pastTime := time.Now().Add(-time.Hour)
	since := dp.Since(pastTime)
	if since < time.Hour || since > time.Hour+time.Second {
		t.Errorf("DefaultTimeProvider.Since() returned unexpected duration: %v", since)
	}
}

func TestTimeProvider_Package_Level(t *testing.T) {
	// Not parallel due to modifying package-level state

	// Save original and restore after test
	original := GetDefaultTimeProvider()
	defer SetDefaultTimeProvider(original)

	// Test setting a mock provider
	mockTime := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	mock := NewMockTimeProvider(mockTime)
	SetDefaultTimeProvider(mock)

	provider := GetDefaultTimeProvider()
	if provider.Now() != mockTime {
		t.Errorf("Expected mock time %v, got %v", mockTime, provider.Now())
	}

	// Test advancing time
	mock.Advance(time.Hour)
	expected := mockTime.Add(time.Hour)
	if provider.Now() != expected {
		t.Errorf("Expected %v after advance, got %v", expected, provider.Now())
	}

	// Test resetting to nil (should restore default)
	SetDefaultTimeProvider(nil)
	provider = GetDefaultTimeProvider()
	_, ok := provider.(DefaultTimeProvider)
	if !ok {
		t.Error("SetDefaultTimeProvider(nil) should restore DefaultTimeProvider")
	}
}

func TestNonceStore_WithTimeProvider(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fixedTime := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	mock := NewMockTimeProvider(fixedTime)

	store, err := NewNonceStoreWithTimeProvider(dir, mock)
	if err != nil {
		t.Fatalf("NewNonceStoreWithTimeProvider failed: %v", err)
	}
	defer store.Close()

	var nonce [32]byte
	nonce[0] = 1

	if !store.CheckAndStore(nonce, fixedTime.Unix()) {
		t.Error("first use of nonce should not be a replay")
	}
	if store.CheckAndStore(nonce, fixedTime.Unix()) {
		t.Error("second use of the same nonce should be detected as a replay")
	}
}
