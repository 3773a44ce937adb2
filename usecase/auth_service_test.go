package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/parleylabs/parley/client/domain"
	"github.com/parleylabs/parley/client/internal/auth"
	"github.com/parleylabs/parley/client/internal/cache"
	"github.com/parleylabs/parley/client/repository"
)

type testEnv struct {
	backend  *repository.MockBackend
	tokens   *auth.TokenStore
	store    *cache.Store
	auth     *AuthService
	catalog  *CatalogService
	sessions *SessionService
	history  *HistoryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	backend := repository.NewMockBackend()
	store := cache.NewStore(logger)
	t.Cleanup(store.Stop)

	tokens := auth.NewTokenStore(filepath.Join(t.TempDir(), "token.json"), logger)
	authService := NewAuthService(backend, tokens, store, "en", logger)

	return &testEnv{
		backend:  backend,
		tokens:   tokens,
		store:    store,
		auth:     authService,
		catalog:  NewCatalogService(backend, store, authService, logger),
		sessions: NewSessionService(backend, store, authService, logger),
		history:  NewHistoryService(backend, store, authService, logger),
	}
}

func TestInitializeAuthWithoutToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.auth.InitializeAuth(ctx); err != nil {
		t.Fatalf("InitializeAuth() error = %v", err)
	}
	if !env.auth.IsInitialized() {
		t.Error("IsInitialized() = false after initialization")
	}
	if got := env.auth.State(); got != AuthStateUnauthenticated {
		t.Errorf("State() = %q, want unauthenticated", got)
	}
	if env.auth.Identity() != nil {
		t.Error("Identity() != nil without a token")
	}

	// Idempotent.
	if err := env.auth.InitializeAuth(ctx); err != nil {
		t.Errorf("second InitializeAuth() error = %v", err)
	}
}

func TestInitializeAuthWithPersistedToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.auth.InitializeAuth(ctx); err != nil {
		t.Fatal(err)
	}
	guest, err := env.auth.CreateGuest(ctx, "Sam")
	if err != nil {
		t.Fatalf("CreateGuest() error = %v", err)
	}

	// A fresh client sharing the token file must restore the identity.
	logger := zaptest.NewLogger(t)
	restored := NewAuthService(env.backend, env.tokens, env.store, "en", logger)
	if err := restored.InitializeAuth(ctx); err != nil {
		t.Fatalf("InitializeAuth() error = %v", err)
	}
	if got := restored.State(); got != AuthStateAuthenticated {
		t.Fatalf("State() = %q, want authenticated", got)
	}
	identity := restored.Identity()
	if identity == nil || identity.ID != guest.ID {
		t.Errorf("restored identity = %+v, want id %s", identity, guest.ID)
	}
}

func TestInitializeAuthRejectedTokenCleared(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.tokens.Save("mock-token-revoked"); err != nil {
		t.Fatal(err)
	}
	if err := env.auth.InitializeAuth(ctx); err != nil {
		t.Fatalf("InitializeAuth() error = %v", err)
	}

	if got := env.auth.State(); got != AuthStateUnauthenticated {
		t.Errorf("State() = %q, want unauthenticated", got)
	}
	if got := env.tokens.Load(); got != "" {
		t.Errorf("persisted token after rejection = %q, want cleared", got)
	}
	if got := env.backend.Token(); got != "" {
		t.Errorf("backend credential after rejection = %q, want cleared", got)
	}
}

func TestCreateGuestFallsBackToLocal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.auth.InitializeAuth(ctx); err != nil {
		t.Fatal(err)
	}

	env.backend.FailNextCreateGuest = &domain.NetworkError{Err: errors.New("connection refused")}
	identity, err := env.auth.CreateGuest(ctx, "Sam")
	if err != nil {
		t.Fatalf("CreateGuest() error = %v, want local fallback", err)
	}

	if !identity.Local {
		t.Error("fallback identity is not marked Local")
	}
	if !identity.IsGuest() {
		t.Error("fallback identity is not a guest")
	}
	if got := env.auth.State(); got != AuthStateAuthenticated {
		t.Errorf("State() = %q, want authenticated", got)
	}
	if got := env.backend.Token(); got != "" {
		t.Errorf("backend credential = %q, want empty in offline mode", got)
	}
}

func TestConvertGuestSwapsIdentityAndCredential(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.auth.InitializeAuth(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := env.auth.CreateGuest(ctx, "Sam"); err != nil {
		t.Fatal(err)
	}
	guestToken := env.backend.Token()

	identity, err := env.auth.ConvertGuestToEmail(ctx, "sam@example.com", "hunter2", "Sam")
	if err != nil {
		t.Fatalf("ConvertGuestToEmail() error = %v", err)
	}
	if identity.IsGuest() {
		t.Error("converted identity is still a guest")
	}
	if identity.Email != "sam@example.com" {
		t.Errorf("converted email = %q", identity.Email)
	}

	newToken := env.backend.Token()
	if newToken == "" || newToken == guestToken {
		t.Errorf("backend credential not swapped: old %q, new %q", guestToken, newToken)
	}
	if got := env.tokens.Load(); got != newToken {
		t.Errorf("persisted token = %q, want %q", got, newToken)
	}

	// The swapped credential must resolve to the converted identity.
	current, err := env.backend.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("CurrentUser() with converted token error = %v", err)
	}
	if current.IsGuest() {
		t.Error("CurrentUser() still resolves to a guest")
	}
}

func TestConvertGuestEmailConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.auth.InitializeAuth(ctx); err != nil {
		t.Fatal(err)
	}

	// Occupy the email before the guest tries to claim it.
	if _, err := env.backend.Register(ctx, "taken@example.com", "pw", "Other"); err != nil {
		t.Fatal(err)
	}

	if _, err := env.auth.CreateGuest(ctx, "Sam"); err != nil {
		t.Fatal(err)
	}
	guestIdentity := env.auth.Identity()

	_, err := env.auth.ConvertGuestToEmail(ctx, "taken@example.com", "pw", "Sam")
	var conflict *domain.ConversionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("ConvertGuestToEmail() error = %v, want ConversionConflictError", err)
	}

	// The guest must survive a failed conversion untouched.
	if got := env.auth.Identity(); got == nil || got.ID != guestIdentity.ID {
		t.Errorf("identity after failed conversion = %+v, want the original guest", got)
	}
}

func TestLocalGuestConvertsViaRegistration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.auth.InitializeAuth(ctx); err != nil {
		t.Fatal(err)
	}

	env.backend.FailNextCreateGuest = &domain.NetworkError{Err: errors.New("offline")}
	if _, err := env.auth.CreateGuest(ctx, "Sam"); err != nil {
		t.Fatal(err)
	}

	identity, err := env.auth.ConvertGuestToEmail(ctx, "sam@example.com", "hunter2", "Sam")
	if err != nil {
		t.Fatalf("ConvertGuestToEmail() for local guest error = %v", err)
	}
	if identity.IsGuest() || identity.Local {
		t.Errorf("identity after local-guest conversion = %+v, want registered", identity)
	}
	if env.backend.Token() == "" {
		t.Error("backend credential empty after local-guest conversion")
	}
}

func TestConvertRejectsNonGuest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.auth.InitializeAuth(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := env.auth.Register(ctx, "sam@example.com", "hunter2", "Sam"); err != nil {
		t.Fatal(err)
	}

	_, err := env.auth.ConvertGuestToEmail(ctx, "other@example.com", "pw", "Sam")
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Errorf("ConvertGuestToEmail() on registered account error = %v, want ValidationError", err)
	}
}

func TestConversionPromptThresholds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.auth.InitializeAuth(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := env.auth.CreateGuest(ctx, "Sam"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		env.auth.RecordScenarioView()
		if env.auth.ShouldShowConversionPrompt() {
			t.Fatalf("prompt shown after %d scenario views", i+1)
		}
	}

	env.auth.RecordScenarioView()
	if !env.auth.ShouldShowConversionPrompt() {
		t.Fatal("prompt not shown after 4 scenario views")
	}
	// Shown once; further engagement does not re-trigger it.
	env.auth.RecordScenarioView()
	if env.auth.ShouldShowConversionPrompt() {
		t.Error("prompt re-shown before dismissal")
	}

	env.auth.DismissConversionPrompt()
	if env.auth.ShouldShowConversionPrompt() {
		t.Error("prompt shown right after dismissal reset the counters")
	}

	// The completed-sessions threshold re-arms it.
	env.auth.RecordSessionCompleted()
	env.auth.RecordSessionCompleted()
	if !env.auth.ShouldShowConversionPrompt() {
		t.Error("prompt not shown after 2 completed sessions")
	}
}

func TestConversionPromptOnlyForGuests(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.auth.InitializeAuth(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := env.auth.Register(ctx, "sam@example.com", "hunter2", "Sam"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		env.auth.RecordScenarioView()
		env.auth.RecordSessionCompleted()
	}
	if env.auth.ShouldShowConversionPrompt() {
		t.Error("prompt shown for a registered account")
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.auth.InitializeAuth(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := env.auth.CreateGuest(ctx, "Sam"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.catalog.ListTags(ctx, "en"); err != nil {
		t.Fatal(err)
	}
	if env.store.Len() == 0 {
		t.Fatal("expected cached entries before logout")
	}

	env.auth.Logout()

	if env.auth.Identity() != nil {
		t.Error("Identity() != nil after logout")
	}
	if got := env.auth.State(); got != AuthStateUnauthenticated {
		t.Errorf("State() = %q, want unauthenticated", got)
	}
	if got := env.store.Len(); got != 0 {
		t.Errorf("cache entries after logout = %d, want 0", got)
	}
	if got := env.tokens.Load(); got != "" {
		t.Errorf("persisted token after logout = %q, want cleared", got)
	}
	if got := env.backend.Token(); got != "" {
		t.Errorf("backend credential after logout = %q, want cleared", got)
	}
}

func TestAccountDeletionTwoStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.auth.InitializeAuth(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := env.auth.CreateGuest(ctx, "Sam"); err != nil {
		t.Fatal(err)
	}

	var validation *domain.ValidationError
	if err := env.auth.ConfirmAccountDeletion(ctx); !errors.As(err, &validation) {
		t.Fatalf("ConfirmAccountDeletion() without request error = %v, want ValidationError", err)
	}

	if err := env.auth.RequestAccountDeletion(); err != nil {
		t.Fatal(err)
	}
	if err := env.auth.ConfirmAccountDeletion(ctx); err != nil {
		t.Fatalf("ConfirmAccountDeletion() error = %v", err)
	}
	if env.auth.Identity() != nil {
		t.Error("Identity() != nil after account deletion")
	}
}
