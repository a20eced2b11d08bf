package factory

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/gamehost/internal/content"
	"github.com/mcoot/gamehost/internal/dependencies/mocks"
	"github.com/mcoot/gamehost/internal/services/auth"
	"github.com/mcoot/gamehost/internal/storage"
	"github.com/mcoot/gamehost/internal/storage/memory"
	"github.com/mcoot/gamehost/internal/testutil"
)

// TestAdminKey is the admin key of a TestApp
const TestAdminKey = "test-admin-key"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App on in-memory storage, a temporary content
// root and mocked time
func NewTestApp(t testing.TB) *TestApp {
	store := memory.New()
	return NewTestAppWithTokenStore(t, store, store)
}

// NewTestAppWithTokenStore is NewTestApp with tokens kept in tokens
func NewTestAppWithTokenStore(t testing.TB, store storage.Storage, tokens storage.TokenStore) *TestApp {
	t.Helper()

	cfg := content.DefaultConfig()
	cfg.Root = t.TempDir()
	contentStore, err := content.New(cfg, testutil.NopLogger())
	if err != nil {
		t.Fatalf("create content store: %v", err)
	}

	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	authCfg := auth.DefaultConfig()
	authCfg.Secret = "test-secret"
	authCfg.BcryptCost = bcrypt.MinCost

	app := newWithDependencies(Backends{
		Storage:    store,
		TokenStore: tokens,
		Content:    contentStore,
	}, mockClock, mockRandom, Options{
		Auth:     authCfg,
		AdminKey: TestAdminKey,
	}, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
