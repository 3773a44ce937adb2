package usecase

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parleylabs/parley/client/domain"
	"github.com/parleylabs/parley/client/domain/entities"
	"github.com/parleylabs/parley/client/internal/auth"
	"github.com/parleylabs/parley/client/internal/cache"
	"github.com/parleylabs/parley/client/repository"
)

// AuthState represents the lifecycle state of the identity layer
type AuthState string

const (
	AuthStateUnauthenticated AuthState = "unauthenticated"
	AuthStateInitializing    AuthState = "initializing"
	AuthStateAuthenticated   AuthState = "authenticated"
)

// Engagement thresholds for the guest-conversion prompt
const (
	promptScenarioThreshold = 4
	promptSessionThreshold  = 2
)

// AuthService owns the identity state machine: token lifecycle, guest
// onboarding with offline fallback, guest-to-registered conversion and
// logout. Session-dependent queries gate on IsInitialized, not on token
// presence, so nothing fires with a token that is about to be invalidated.
type AuthService struct {
	backend       repository.Backend
	tokens        *auth.TokenStore
	cache         *cache.Store
	logger        *zap.Logger
	defaultLocale string

	mu          sync.Mutex
	state       AuthState
	initialized bool
	identity    *entities.Identity
	token       string
	locale      string

	viewedScenarios   int
	completedSessions int
	promptShown       bool
	deletionRequested bool
}

// NewAuthService creates a new auth service
func NewAuthService(
	backend repository.Backend,
	tokens *auth.TokenStore,
	store *cache.Store,
	defaultLocale string,
	logger *zap.Logger,
) *AuthService {
	if defaultLocale == "" {
		defaultLocale = entities.DefaultLanguage
	}
	return &AuthService{
		backend:       backend,
		tokens:        tokens,
		cache:         store,
		logger:        logger,
		defaultLocale: defaultLocale,
		state:         AuthStateUnauthenticated,
		locale:        defaultLocale,
	}
}

// State returns the current auth state
func (a *AuthService) State() AuthState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// IsInitialized reports whether InitializeAuth has run to completion
func (a *AuthService) IsInitialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initialized
}

// Identity returns the current identity, or nil when unauthenticated
func (a *AuthService) Identity() *entities.Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.identity
}

// Locale returns the active locale
func (a *AuthService) Locale() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.locale
}

// SetLocale sets the active locale
func (a *AuthService) SetLocale(locale string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if locale != "" {
		a.locale = locale
	}
}

// InitializeAuth validates a persisted token against the remote current-user
// endpoint. On any failure the token is cleared and the state becomes
// Unauthenticated. Idempotent; dependent queries must wait for it.
func (a *AuthService) InitializeAuth(ctx context.Context) error {
	a.mu.Lock()
	if a.initialized {
		a.mu.Unlock()
		return nil
	}
	a.state = AuthStateInitializing

	token := a.tokens.Load()
	if token == "" || auth.Expired(token) {
		a.finishInitLocked(nil, "")
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	a.backend.SetAuthToken(token)
	identity, err := a.backend.CurrentUser(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.logger.Info("Persisted token rejected, starting unauthenticated", zap.Error(err))
		a.backend.SetAuthToken("")
		if clearErr := a.tokens.Clear(); clearErr != nil {
			a.logger.Warn("Failed to clear token file", zap.Error(clearErr))
		}
		a.finishInitLocked(nil, "")
		return nil
	}

	a.finishInitLocked(identity, token)
	a.logger.Info("Auth initialized", zap.String("user_id", identity.ID))
	return nil
}

func (a *AuthService) finishInitLocked(identity *entities.Identity, token string) {
	a.identity = identity
	a.token = token
	if identity != nil {
		a.state = AuthStateAuthenticated
	} else {
		a.state = AuthStateUnauthenticated
	}
	a.initialized = true
}

// adopt atomically replaces the identity and the credential used by the
// backend. There is no window where the old token is paired with the new
// identity or vice versa.
func (a *AuthService) adopt(identity *entities.Identity, token string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.identity = identity
	a.token = token
	a.backend.SetAuthToken(token)
	a.state = AuthStateAuthenticated
	a.initialized = true

	if token != "" {
		if err := a.tokens.Save(token); err != nil {
			a.logger.Warn("Failed to persist token", zap.Error(err))
		}
	}
}

// CreateGuest obtains a guest identity from the backend. When the backend is
// unreachable it falls back to a locally synthesized guest so the user can
// still try the product; the Local flag marks that degraded mode.
func (a *AuthService) CreateGuest(ctx context.Context, displayName string) (*entities.Identity, error) {
	result, err := a.backend.CreateGuest(ctx, displayName)
	if err != nil {
		a.logger.Warn("Guest creation failed, falling back to local guest", zap.Error(err))
		local := &entities.Identity{
			ID:          "local-" + uuid.NewString(),
			DisplayName: displayName,
			Kind:        entities.AccountKindGuest,
			Local:       true,
			CreatedAt:   time.Now(),
		}
		a.adopt(local, "")
		return local, nil
	}

	a.adopt(result.Identity, result.Token)
	return result.Identity, nil
}

// Register creates a registered account and signs in
func (a *AuthService) Register(ctx context.Context, email, password, displayName string) (*entities.Identity, error) {
	result, err := a.backend.Register(ctx, email, password, displayName)
	if err != nil {
		return nil, mapConversionConflict(err)
	}
	a.adopt(result.Identity, result.Token)
	return result.Identity, nil
}

// Login signs in with email and password
func (a *AuthService) Login(ctx context.Context, email, password string) (*entities.Identity, error) {
	result, err := a.backend.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	a.adopt(result.Identity, result.Token)
	return result.Identity, nil
}

// LoginGoogle signs in with a Google credential
func (a *AuthService) LoginGoogle(ctx context.Context, credential string) (*entities.Identity, error) {
	result, err := a.backend.LoginGoogle(ctx, credential)
	if err != nil {
		return nil, err
	}
	a.adopt(result.Identity, result.Token)
	return result.Identity, nil
}

// ConvertGuestToEmail converts the current guest to a registered email
// account. Identity and token are swapped atomically on success. A local
// (offline-synthesized) guest has no server-side record to convert, so it
// goes through plain registration instead.
func (a *AuthService) ConvertGuestToEmail(ctx context.Context, email, password, displayName string) (*entities.Identity, error) {
	a.mu.Lock()
	current := a.identity
	a.mu.Unlock()

	if current == nil || !current.IsGuest() {
		return nil, domain.NewValidationError("only a guest account can be converted")
	}

	var result *repository.AuthResult
	var err error
	if current.Local {
		result, err = a.backend.Register(ctx, email, password, displayName)
	} else {
		result, err = a.backend.ConvertGuest(ctx, email, password, displayName)
	}
	if err != nil {
		return nil, mapConversionConflict(err)
	}

	a.adopt(result.Identity, result.Token)
	return result.Identity, nil
}

// ConvertGuestToGoogle converts the current guest via a Google credential
func (a *AuthService) ConvertGuestToGoogle(ctx context.Context, credential string) (*entities.Identity, error) {
	a.mu.Lock()
	current := a.identity
	a.mu.Unlock()

	if current == nil || !current.IsGuest() {
		return nil, domain.NewValidationError("only a guest account can be converted")
	}

	var result *repository.AuthResult
	var err error
	if current.Local {
		result, err = a.backend.LoginGoogle(ctx, credential)
	} else {
		result, err = a.backend.ConvertGuestGoogle(ctx, credential)
	}
	if err != nil {
		return nil, mapConversionConflict(err)
	}

	a.adopt(result.Identity, result.Token)
	return result.Identity, nil
}

// mapConversionConflict surfaces EMAIL_EXISTS rejections as the typed
// conversion conflict the UI layer switches on.
func mapConversionConflict(err error) error {
	var httpErr *domain.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Status == http.StatusConflict || httpErr.Message == "EMAIL_EXISTS" {
			return &domain.ConversionConflictError{Reason: "EMAIL_EXISTS"}
		}
	}
	return err
}

// RecordScenarioView bumps the engagement counter for viewed scenarios
func (a *AuthService) RecordScenarioView() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.viewedScenarios++
}

// RecordSessionCompleted bumps the engagement counter for completed sessions
func (a *AuthService) RecordSessionCompleted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.completedSessions++
}

// ShouldShowConversionPrompt reports whether the guest-conversion prompt is
// due: the identity is a guest, an engagement threshold has been crossed and
// the prompt has not been shown since the last dismissal. A true return
// arms the shown-once guard; further engagement does not re-trigger it.
func (a *AuthService) ShouldShowConversionPrompt() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.identity == nil || !a.identity.IsGuest() {
		return false
	}
	if a.promptShown {
		return false
	}
	if a.viewedScenarios < promptScenarioThreshold && a.completedSessions < promptSessionThreshold {
		return false
	}

	a.promptShown = true
	return true
}

// DismissConversionPrompt resets the shown-once guard; the next threshold
// crossing may show the prompt again.
func (a *AuthService) DismissConversionPrompt() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.promptShown = false
	a.viewedScenarios = 0
	a.completedSessions = 0
}

// RequestAccountDeletion arms the two-step account-deletion confirmation
func (a *AuthService) RequestAccountDeletion() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.identity == nil {
		return domain.NewValidationError("not signed in")
	}
	a.deletionRequested = true
	return nil
}

// ConfirmAccountDeletion deletes the account remotely and clears all local
// state. It requires a prior RequestAccountDeletion.
func (a *AuthService) ConfirmAccountDeletion(ctx context.Context) error {
	a.mu.Lock()
	if !a.deletionRequested {
		a.mu.Unlock()
		return domain.NewValidationError("account deletion was not requested")
	}
	a.deletionRequested = false
	a.mu.Unlock()

	if err := a.backend.DeleteAccount(ctx); err != nil {
		return err
	}
	a.clearLocalState()
	return nil
}

// Logout invalidates the token locally and on the backend client, clears all
// identity-scoped caches and resets the locale to the detected default.
func (a *AuthService) Logout() {
	a.clearLocalState()
	a.logger.Info("Logged out")
}

func (a *AuthService) clearLocalState() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.identity = nil
	a.token = ""
	a.backend.SetAuthToken("")
	if err := a.tokens.Clear(); err != nil {
		a.logger.Warn("Failed to clear token file", zap.Error(err))
	}
	a.cache.Clear()

	a.locale = a.defaultLocale
	a.viewedScenarios = 0
	a.completedSessions = 0
	a.promptShown = false
	a.deletionRequested = false
	a.state = AuthStateUnauthenticated
}
