package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/sessionstate/internal/adapters"
	"github.com/dmitrijs2005/sessionstate/internal/common"
	"github.com/dmitrijs2005/sessionstate/internal/eventbus"
	"github.com/dmitrijs2005/sessionstate/internal/logging"
	"github.com/dmitrijs2005/sessionstate/internal/models"
	"github.com/dmitrijs2005/sessionstate/internal/storage"
	"github.com/dmitrijs2005/sessionstate/internal/tokenstore"
)

// State is the manager's lifecycle position. The onboarding flag is
// orthogonal and can flip in either signed state.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateSignedOut
	StateSignedIn
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateSignedOut:
		return "signed_out"
	case StateSignedIn:
		return "signed_in"
	default:
		return "unknown"
	}
}

// Config wires the manager's collaborators. Backend is required; every other
// field has a safe default (no-op adapters, in-memory token store, fresh bus,
// discarding logger, wall clock).
type Config struct {
	Backend storage.Backend
	Tokens  tokenstore.Store
	Bus     *eventbus.Bus

	Attribution adapters.AttributionSink
	Campaigns   adapters.CampaignTrigger
	RequestAuth adapters.RequestAuthSink

	Logger logging.Logger
	Clock  func() time.Time
}

// SignInOptions carries the optional profile fields of a sign-in; empty
// strings leave the corresponding field blank.
type SignInOptions struct {
	Email     string
	Name      string
	AvatarURL string
}

// Manager owns the in-memory session state for the process lifetime.
// Construct exactly one per process with New and hand it (or an interface)
// to every consumer.
type Manager struct {
	log   logging.Logger
	bus   *eventbus.Bus
	clock func() time.Time

	attribution adapters.AttributionSink
	campaigns   adapters.CampaignTrigger
	requestAuth adapters.RequestAuthSink

	tokens tokenstore.Store

	// backendMu guards the backend pointer; gen invalidates results of
	// operations that raced a SetStorageBackend swap.
	backendMu sync.RWMutex
	backend   storage.Backend
	gen       uint64

	state atomic.Int32

	// One mutex per entity: unrelated entities may update concurrently,
	// while read-merge-write cycles on the same entity are serialized.
	userMu      sync.Mutex
	currentUser *models.User

	onboardingMu sync.Mutex
	onboarding   bool

	dataMu   sync.Mutex
	userData map[string]any

	tokenMu sync.Mutex

	bg sync.WaitGroup
}

// New constructs a Manager. It performs no I/O; call
// CheckAuthenticationStatus at startup to restore persisted state.
func New(cfg Config) (*Manager, error) {
	if cfg.Backend == nil {
		return nil, errors.New("session: Config.Backend is required")
	}
	if cfg.Tokens == nil {
		cfg.Tokens = tokenstore.NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.Bus == nil {
		cfg.Bus = eventbus.New(cfg.Logger)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	m := &Manager{
		log:         cfg.Logger,
		bus:         cfg.Bus,
		clock:       cfg.Clock,
		attribution: cfg.Attribution,
		campaigns:   cfg.Campaigns,
		requestAuth: cfg.RequestAuth,
		tokens:      cfg.Tokens,
		backend:     cfg.Backend,
		userData:    map[string]any{},
	}
	m.state.Store(int32(StateUninitialized))
	return m, nil
}

// Bus returns the event bus consumers subscribe to.
func (m *Manager) Bus() *eventbus.Bus { return m.bus }

// State returns the manager's lifecycle position.
func (m *Manager) State() State { return State(m.state.Load()) }

// ---- accessors (last committed state only) ----

// CurrentUser returns a copy of the signed-in user, or nil when signed out.
func (m *Manager) CurrentUser() *models.User {
	m.userMu.Lock()
	defer m.userMu.Unlock()
	return m.currentUser.Clone()
}

// IsSignedIn reports whether a user is currently signed in.
func (m *Manager) IsSignedIn() bool {
	m.userMu.Lock()
	defer m.userMu.Unlock()
	return m.currentUser != nil
}

// IsOnboardingCompleted reports the committed onboarding flag.
func (m *Manager) IsOnboardingCompleted() bool {
	m.onboardingMu.Lock()
	defer m.onboardingMu.Unlock()
	return m.onboarding
}

// UserData returns a copy of the committed user-data map.
func (m *Manager) UserData() map[string]any {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	return models.MergeMaps(map[string]any{}, m.userData)
}

// ---- backend snapshot / swap guard ----

func (m *Manager) snapshot() (storage.Backend, uint64) {
	m.backendMu.RLock()
	defer m.backendMu.RUnlock()
	return m.backend, m.gen
}

func (m *Manager) genCurrent(gen uint64) bool {
	m.backendMu.RLock()
	defer m.backendMu.RUnlock()
	return m.gen == gen
}

// ---- operations ----

// SignIn authenticates the given identity and commits it as the current
// user. The empty id fails with common.ErrInvalidUserData. If persistence
// fails, in-memory state is unchanged and a StorageError propagates.
//
// A previously persisted record with the same id keeps its CreatedAt,
// Preferences and CustomData; profile fields provided here override stored
// ones. After the commit the manager publishes UserSignedIn and best-effort
// pushes the stored session token and attribution attributes.
func (m *Manager) SignIn(ctx context.Context, id string, opts SignInOptions) (*models.User, error) {
	if id == "" {
		return nil, common.ErrInvalidUserData
	}

	backend, gen := m.snapshot()

	m.userMu.Lock()
	existing, err := backend.LoadUser(ctx)
	if err != nil {
		// A broken read must not block a fresh sign-in; the write below
		// is what decides success.
		m.log.Warn(ctx, "could not load previous user record", "error", err)
		existing = nil
	}

	now := m.clock()
	user := &models.User{
		ID:          id,
		Email:       opts.Email,
		Name:        opts.Name,
		AvatarURL:   opts.AvatarURL,
		CreatedAt:   now,
		LastLoginAt: now,
	}
	if existing != nil && existing.ID == id {
		user.CreatedAt = existing.CreatedAt
		user.Preferences = existing.Preferences
		user.CustomData = existing.CustomData
		if opts.Email == "" {
			user.Email = existing.Email
		}
		if opts.Name == "" {
			user.Name = existing.Name
		}
		if opts.AvatarURL == "" {
			user.AvatarURL = existing.AvatarURL
		}
	}

	if err := backend.SaveUser(ctx, user); err != nil {
		m.userMu.Unlock()
		return nil, err
	}
	if !m.genCurrent(gen) {
		m.userMu.Unlock()
		m.log.Warn(ctx, "discarding sign-in result", "error", common.ErrBackendSwapped)
		return nil, common.NewStorageError("SignIn", common.ErrBackendSwapped)
	}
	m.currentUser = user.Clone()
	m.state.Store(int32(StateSignedIn))
	m.userMu.Unlock()

	m.bus.Publish(eventbus.UserSignedIn{User: user.Clone()})

	m.pushStoredToken(ctx)
	m.pushAttribution(ctx, user)

	return user.Clone(), nil
}

// SignOut deletes the persisted user record and session token, clears the
// in-memory user, and publishes UserSignedOut. The persisted onboarding flag
// and user-data map survive a sign-out; the in-memory user-data cache is
// dropped and re-read from storage so accessors keep reflecting committed
// state.
func (m *Manager) SignOut(ctx context.Context) error {
	backend, gen := m.snapshot()

	m.userMu.Lock()
	if err := backend.DeleteUser(ctx); err != nil {
		m.userMu.Unlock()
		return err
	}
	if err := m.tokens.ClearSessionToken(ctx); err != nil {
		m.userMu.Unlock()
		return common.NewStorageError("ClearSessionToken", err)
	}
	if !m.genCurrent(gen) {
		m.userMu.Unlock()
		m.log.Warn(ctx, "discarding sign-out result", "error", common.ErrBackendSwapped)
		return common.NewStorageError("SignOut", common.ErrBackendSwapped)
	}
	m.currentUser = nil
	m.state.Store(int32(StateSignedOut))
	m.userMu.Unlock()

	m.reloadUserData(ctx, backend, gen)

	m.bus.Publish(eventbus.UserSignedOut{})

	m.cleanupAdapters(ctx)
	return nil
}

// CheckAuthenticationStatus restores session state from storage and reports
// whether a user record exists. Storage errors are swallowed: this is called
// opportunistically at cold start, where a broken read means "signed out".
func (m *Manager) CheckAuthenticationStatus(ctx context.Context) bool {
	if m.State() == StateUninitialized {
		m.state.Store(int32(StateLoading))
	}

	backend, gen := m.snapshot()

	user, err := backend.LoadUser(ctx)
	if err != nil {
		m.log.Warn(ctx, "could not load user record", "error", err)
		user = nil
	}
	completed, err := backend.LoadOnboardingStatus(ctx)
	if err != nil {
		m.log.Warn(ctx, "could not load onboarding status", "error", err)
		completed = false
	}

	if !m.genCurrent(gen) {
		return m.IsSignedIn()
	}

	m.userMu.Lock()
	m.currentUser = user
	m.userMu.Unlock()

	m.onboardingMu.Lock()
	m.onboarding = completed
	m.onboardingMu.Unlock()

	m.reloadUserData(ctx, backend, gen)

	if user != nil {
		m.state.Store(int32(StateSignedIn))
	} else {
		m.state.Store(int32(StateSignedOut))
	}
	return user != nil
}

// CompleteOnboarding marks onboarding as finished. When a user is signed in,
// the engagement campaign is started after the write and the in-memory
// commit succeed, never before.
func (m *Manager) CompleteOnboarding(ctx context.Context) error {
	return m.setOnboarding(ctx, true)
}

// ResetOnboarding clears the onboarding flag (test/demo flows).
func (m *Manager) ResetOnboarding(ctx context.Context) error {
	return m.setOnboarding(ctx, false)
}

func (m *Manager) setOnboarding(ctx context.Context, completed bool) error {
	backend, gen := m.snapshot()

	m.onboardingMu.Lock()
	if err := backend.SaveOnboardingStatus(ctx, completed); err != nil {
		m.onboardingMu.Unlock()
		return err
	}
	if !m.genCurrent(gen) {
		m.onboardingMu.Unlock()
		m.log.Warn(ctx, "discarding onboarding update", "error", common.ErrBackendSwapped)
		return common.NewStorageError("SaveOnboardingStatus", common.ErrBackendSwapped)
	}
	m.onboarding = completed
	m.onboardingMu.Unlock()

	m.bus.Publish(eventbus.OnboardingStatusChanged{Completed: completed})

	if completed && m.IsSignedIn() && m.campaigns != nil {
		if err := m.campaigns.StartEngagementCampaign(ctx); err != nil {
			m.log.Warn(ctx, "could not start engagement campaign", "error", err)
		}
	}
	return nil
}

// UpdateUserData merges partial into the user-data map in the background and
// returns immediately. Overlapping calls are serialized so no update is
// lost. Persistence failures are logged, not surfaced, and the in-memory map
// stays at its previous committed value. Use Flush to wait for queued
// merges.
func (m *Manager) UpdateUserData(partial map[string]any) {
	if len(partial) == 0 {
		return
	}
	p := models.MergeMaps(map[string]any{}, partial)
	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		m.applyUserData(context.Background(), p)
	}()
}

func (m *Manager) applyUserData(ctx context.Context, partial map[string]any) {
	backend, gen := m.snapshot()

	m.dataMu.Lock()
	merged := models.MergeMaps(models.MergeMaps(map[string]any{}, m.userData), partial)
	if err := backend.SaveUserData(ctx, merged); err != nil {
		m.dataMu.Unlock()
		m.log.Error(ctx, "could not persist user data", "error", err)
		return
	}
	if !m.genCurrent(gen) {
		m.dataMu.Unlock()
		m.log.Warn(ctx, "discarding user-data update", "error", common.ErrBackendSwapped)
		return
	}
	m.userData = merged
	m.dataMu.Unlock()

	m.bus.Publish(eventbus.UserDataUpdated{Changed: models.MergeMaps(map[string]any{}, partial)})

	m.userMu.Lock()
	user := m.currentUser.Clone()
	m.userMu.Unlock()
	if user != nil {
		m.pushAttribution(ctx, user)
	}
}

// Flush waits until every queued user-data merge has completed.
func (m *Manager) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateProfile merges the provided fields onto the current user, persists
// and commits the result, and publishes UserProfileUpdated. Fails with
// common.ErrNotSignedIn when no user is signed in.
func (m *Manager) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error) {
	backend, gen := m.snapshot()

	m.userMu.Lock()
	if m.currentUser == nil {
		m.userMu.Unlock()
		return nil, common.ErrNotSignedIn
	}

	updated := m.currentUser.Clone()
	update.Apply(updated)

	if err := backend.SaveUser(ctx, updated); err != nil {
		m.userMu.Unlock()
		return nil, err
	}
	if !m.genCurrent(gen) {
		m.userMu.Unlock()
		m.log.Warn(ctx, "discarding profile update", "error", common.ErrBackendSwapped)
		return nil, common.NewStorageError("UpdateProfile", common.ErrBackendSwapped)
	}
	m.currentUser = updated.Clone()
	m.userMu.Unlock()

	m.bus.Publish(eventbus.UserProfileUpdated{User: updated.Clone()})
	return updated.Clone(), nil
}

// ResetAllUserData wipes all four entities, durable and in-memory, and
// publishes UserDataReset. Each wipe holds its entity mutex across the write
// and the in-memory clear, so a queued merge serializes before or after the
// reset but never straddles it. Dependent adapters are cleaned up
// best-effort, exactly as on sign-out.
func (m *Manager) ResetAllUserData(ctx context.Context) error {
	backend, gen := m.snapshot()

	m.userMu.Lock()
	if err := backend.DeleteUser(ctx); err != nil {
		m.userMu.Unlock()
		return err
	}
	if !m.genCurrent(gen) {
		m.userMu.Unlock()
		m.log.Warn(ctx, "discarding reset result", "error", common.ErrBackendSwapped)
		return common.NewStorageError("ResetAllUserData", common.ErrBackendSwapped)
	}
	m.currentUser = nil
	m.userMu.Unlock()

	m.onboardingMu.Lock()
	if err := backend.SaveOnboardingStatus(ctx, false); err != nil {
		m.onboardingMu.Unlock()
		return err
	}
	if !m.genCurrent(gen) {
		m.onboardingMu.Unlock()
		m.log.Warn(ctx, "discarding reset result", "error", common.ErrBackendSwapped)
		return common.NewStorageError("ResetAllUserData", common.ErrBackendSwapped)
	}
	m.onboarding = false
	m.onboardingMu.Unlock()

	m.dataMu.Lock()
	if err := backend.SaveUserData(ctx, map[string]any{}); err != nil {
		m.dataMu.Unlock()
		return err
	}
	if !m.genCurrent(gen) {
		m.dataMu.Unlock()
		m.log.Warn(ctx, "discarding reset result", "error", common.ErrBackendSwapped)
		return common.NewStorageError("ResetAllUserData", common.ErrBackendSwapped)
	}
	m.userData = map[string]any{}
	m.dataMu.Unlock()

	m.tokenMu.Lock()
	if err := m.tokens.ClearSessionToken(ctx); err != nil {
		m.tokenMu.Unlock()
		return common.NewStorageError("ClearSessionToken", err)
	}
	m.tokenMu.Unlock()

	m.state.Store(int32(StateSignedOut))

	m.bus.Publish(eventbus.UserDataReset{})

	m.cleanupAdapters(ctx)
	return nil
}

// ---- session token ----

// SetSessionToken persists the token and propagates it to the request-auth
// sink.
func (m *Manager) SetSessionToken(ctx context.Context, token string) error {
	m.tokenMu.Lock()
	defer m.tokenMu.Unlock()
	if err := m.tokens.SetSessionToken(ctx, token); err != nil {
		return common.NewStorageError("SetSessionToken", err)
	}
	m.setBearer(ctx, token)
	return nil
}

// SessionToken returns the persisted token, "" when absent.
func (m *Manager) SessionToken(ctx context.Context) (string, error) {
	m.tokenMu.Lock()
	defer m.tokenMu.Unlock()
	token, err := m.tokens.SessionToken(ctx)
	if err != nil {
		return "", common.NewStorageError("SessionToken", err)
	}
	return token, nil
}

// ClearSessionToken removes the persisted token and clears the request-auth
// sink.
func (m *Manager) ClearSessionToken(ctx context.Context) error {
	m.tokenMu.Lock()
	defer m.tokenMu.Unlock()
	if err := m.tokens.ClearSessionToken(ctx); err != nil {
		return common.NewStorageError("ClearSessionToken", err)
	}
	m.setBearer(ctx, "")
	return nil
}

// ---- backend swap ----

// SetStorageBackend replaces the storage backend and fully reloads in-memory
// state from it before returning. Results of operations still in flight
// against the old backend are discarded by the generation check. Per-entity
// load failures fall back to safe defaults; the joined error reports them.
func (m *Manager) SetStorageBackend(ctx context.Context, backend storage.Backend) error {
	m.backendMu.Lock()
	m.backend = backend
	m.gen++
	gen := m.gen
	m.backendMu.Unlock()

	var errs []error

	user, err := backend.LoadUser(ctx)
	if err != nil {
		errs = append(errs, err)
		user = nil
	}
	completed, err := backend.LoadOnboardingStatus(ctx)
	if err != nil {
		errs = append(errs, err)
		completed = false
	}
	data, err := backend.LoadUserData(ctx)
	if err != nil {
		errs = append(errs, err)
		data = map[string]any{}
	}

	if !m.genCurrent(gen) {
		// Another swap overtook this one; its reload wins.
		return errors.Join(errs...)
	}

	m.userMu.Lock()
	m.currentUser = user
	m.userMu.Unlock()

	m.onboardingMu.Lock()
	m.onboarding = completed
	m.onboardingMu.Unlock()

	m.dataMu.Lock()
	m.userData = data
	m.dataMu.Unlock()

	if user != nil {
		m.state.Store(int32(StateSignedIn))
	} else {
		m.state.Store(int32(StateSignedOut))
	}

	return errors.Join(errs...)
}

// ---- internal helpers ----

func (m *Manager) reloadUserData(ctx context.Context, backend storage.Backend, gen uint64) {
	data, err := backend.LoadUserData(ctx)
	if err != nil {
		m.log.Warn(ctx, "could not reload user data", "error", err)
		data = map[string]any{}
	}
	if !m.genCurrent(gen) {
		return
	}
	m.dataMu.Lock()
	m.userData = data
	m.dataMu.Unlock()
}

// pushStoredToken propagates a previously stored session token to the
// request-auth sink, skipping tokens that are already expired.
func (m *Manager) pushStoredToken(ctx context.Context) {
	if m.requestAuth == nil {
		return
	}
	token, err := m.tokens.SessionToken(ctx)
	if err != nil {
		m.log.Warn(ctx, "could not read session token", "error", err)
		return
	}
	if token == "" {
		return
	}
	if tokenstore.IsExpired(token, m.clock()) {
		m.log.Info(ctx, "stored session token is expired, not propagating")
		return
	}
	m.setBearer(ctx, token)
}

func (m *Manager) setBearer(ctx context.Context, token string) {
	if m.requestAuth == nil {
		return
	}
	if err := m.requestAuth.SetBearerToken(token); err != nil {
		m.log.Warn(ctx, "could not propagate bearer token", "error", err)
	}
}

// pushAttribution sends the user's targeting attributes (identity fields
// plus the user-data map) to the attribution sink.
func (m *Manager) pushAttribution(ctx context.Context, user *models.User) {
	if m.attribution == nil || user == nil {
		return
	}
	attrs := map[string]any{"user_id": user.ID}
	if user.Email != "" {
		attrs["email"] = user.Email
	}
	if user.Name != "" {
		attrs["name"] = user.Name
	}
	m.dataMu.Lock()
	attrs = models.MergeMaps(attrs, m.userData)
	m.dataMu.Unlock()

	if err := m.attribution.SetUserAttributes(ctx, attrs); err != nil {
		m.log.Warn(ctx, "could not push attribution attributes", "error", err)
	}
}

func (m *Manager) cleanupAdapters(ctx context.Context) {
	if m.campaigns != nil {
		if err := m.campaigns.StopEngagementCampaign(ctx); err != nil {
			m.log.Warn(ctx, "could not stop engagement campaign", "error", err)
		}
	}
	if m.attribution != nil {
		if err := m.attribution.SetUserAttributes(ctx, nil); err != nil {
			m.log.Warn(ctx, "could not clear attribution attributes", "error", err)
		}
	}
	m.setBearer(ctx, "")
}
