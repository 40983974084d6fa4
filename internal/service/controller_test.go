package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzzxajak-prog/FitnessApp/internal/apperror"
	"github.com/zzzxajak-prog/FitnessApp/internal/auth"
	"github.com/zzzxajak-prog/FitnessApp/internal/model"
	"github.com/zzzxajak-prog/FitnessApp/internal/repository/jsonfile"
	"github.com/zzzxajak-prog/FitnessApp/internal/timer"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// memStore is an in-memory repository.Store. Using a fake (not a mock
// framework) keeps tests easy to read: you can see exactly what it does.
type memStore struct {
	mu        sync.Mutex
	creds     model.CredentialTable
	snap      *model.Snapshot // nil until the first save
	snapSaves int
	// set to a non-nil error to simulate a full disk
	saveCredsErr error
	saveSnapErr  error
}

func newMemStore() *memStore {
	return &memStore{creds: model.CredentialTable{}}
}

func (m *memStore) LoadCredentials(_ context.Context) (model.CredentialTable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := model.CredentialTable{}
	for k, v := range m.creds {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) SaveCredentials(_ context.Context, table model.CredentialTable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveCredsErr != nil {
		return m.saveCredsErr
	}
	m.creds = model.CredentialTable{}
	for k, v := range table {
		m.creds[k] = v
	}
	return nil
}

func (m *memStore) LoadSnapshot(_ context.Context) (model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return model.DefaultSnapshot(), nil
	}
	return m.snap.Clone(), nil
}

func (m *memStore) SaveSnapshot(_ context.Context, snap model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveSnapErr != nil {
		return m.saveSnapErr
	}
	c := snap.Clone()
	m.snap = &c
	m.snapSaves++
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) saved() (model.Snapshot, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return model.Snapshot{}, m.snapSaves
	}
	return m.snap.Clone(), m.snapSaves
}

func (m *memStore) failSnapshotSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveSnapErr = err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig shrinks every timer interval so background jobs finish fast.
func testConfig() Config {
	return Config{
		StepInterval:       time.Millisecond,
		MeditationInterval: time.Millisecond,
		Rand:               rand.New(rand.NewPCG(7, 11)),
	}
}

func newTestController(t *testing.T, store *memStore) *Controller {
	t.Helper()
	return NewController(store, store, auth.NewPasswordService(false), testLogger(), testConfig())
}

// loggedIn registers and logs in "alice".
func loggedIn(t *testing.T, store *memStore) (*Controller, *Session) {
	t.Helper()
	c := newTestController(t, store)
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, "alice", "pw", "pw"))
	s, err := c.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	t.Cleanup(c.Logout)
	return c, s
}

// =========================================================================
// REGISTER
// =========================================================================

func TestRegister_StoresCredential(t *testing.T) {
	store := newMemStore()
	c := newTestController(t, store)

	require.NoError(t, c.Register(context.Background(), "  alice ", "secret", "secret"))
	assert.Equal(t, model.CredentialTable{"alice": {Password: "secret"}}, store.creds)
}

func TestRegister_Validation(t *testing.T) {
	cases := []struct {
		name                string
		user, pass, confirm string
		wantField           string
	}{
		{"empty username", "", "pw", "pw", "username"},
		{"blank username", "   ", "pw", "pw", "username"},
		{"empty password", "bob", "", "", "username"},
		{"mismatched confirmation", "bob", "pw1", "pw2", "confirm"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			c := newTestController(t, store)

			err := c.Register(context.Background(), tc.user, tc.pass, tc.confirm)
			require.ErrorIs(t, err, apperror.ErrAuth)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tc.wantField, appErr.Field)
			assert.Empty(t, store.creds, "nothing is stored on failure")
		})
	}
}

func TestRegister_DuplicateOverwritesPassword(t *testing.T) {
	store := newMemStore()
	c := newTestController(t, store)
	ctx := context.Background()

	require.NoError(t, c.Register(ctx, "alice", "first", "first"))
	require.NoError(t, c.Register(ctx, "alice", "second", "second"))

	_, err := c.Login(ctx, "alice", "first")
	assert.ErrorIs(t, err, apperror.ErrAuth)

	s, err := c.Login(ctx, "alice", "second")
	require.NoError(t, err)
	assert.Equal(t, "alice", s.Username())
}

func TestRegister_WriteFailureIsReported(t *testing.T) {
	store := newMemStore()
	store.saveCredsErr = os.ErrPermission
	c := newTestController(t, store)

	err := c.Register(context.Background(), "alice", "pw", "pw")
	assert.ErrorIs(t, err, apperror.ErrStorageWrite)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestRegister_HashedPasswords(t *testing.T) {
	store := newMemStore()
	c := NewController(store, store, auth.NewPasswordServiceForTest(4), testLogger(), testConfig())
	ctx := context.Background()

	require.NoError(t, c.Register(ctx, "alice", "pw", "pw"))
	assert.NotEqual(t, "pw", store.creds["alice"].Password)

	_, err := c.Login(ctx, "alice", "pw")
	assert.NoError(t, err)
	_, err = c.Login(ctx, "alice", "nope")
	assert.ErrorIs(t, err, apperror.ErrAuth)
}

// =========================================================================
// LOGIN / LOGOUT
// =========================================================================

func TestLogin_FailuresReturnNoSession(t *testing.T) {
	store := newMemStore()
	c := newTestController(t, store)
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, "alice", "pw", "pw"))

	for _, tc := range []struct{ user, pass string }{
		{"alice", "wrong"},
		{"bob", "pw"},
		{"", ""},
		{"ALICE", "pw"},
	} {
		s, err := c.Login(ctx, tc.user, tc.pass)
		assert.Nil(t, s, "%s/%s", tc.user, tc.pass)
		assert.ErrorIs(t, err, apperror.ErrAuth)
	}
	assert.Nil(t, c.Active())
	_, saves := store.saved()
	assert.Zero(t, saves)
}

func TestLogin_FailureDoesNotCreateSnapshotFile(t *testing.T) {
	dir := t.TempDir()
	store, err := jsonfile.New(dir, testLogger())
	require.NoError(t, err)
	c := NewController(store, store, auth.NewPasswordService(false), testLogger(), testConfig())
	ctx := context.Background()

	require.NoError(t, c.Register(ctx, "alice", "pw", "pw"))
	_, err = c.Login(ctx, "alice", "bad")
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, jsonfile.SnapshotFile))
	assert.ErrorIs(t, statErr, os.ErrNotExist)

	// A successful login followed by a change does create it.
	s, err := c.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	require.NoError(t, s.AddWater(ctx, 0.25))
	_, statErr = os.Stat(filepath.Join(dir, jsonfile.SnapshotFile))
	assert.NoError(t, statErr)
}

func TestLogin_AdoptsOwnOrGuestSnapshot(t *testing.T) {
	cases := []struct {
		name      string
		owner     string
		wantSteps float64
	}{
		{"own snapshot", "alice", 1500},
		{"guest snapshot", model.GuestUsername, 1500},
		{"someone else's snapshot", "bob", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			prev := model.NewSnapshot(tc.owner)
			prev.Steps = 1500
			store.snap = &prev

			_, s := loggedIn(t, store)
			st := s.State()
			assert.Equal(t, "alice", st.Snapshot.Username)
			assert.Equal(t, tc.wantSteps, st.Snapshot.Steps)
		})
	}
}

func TestLogin_ReplacesActiveSession(t *testing.T) {
	store := newMemStore()
	c, first := loggedIn(t, store)
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, "bob", "pw", "pw"))

	require.NoError(t, first.StartMeditation(ctx, 1))

	second, err := c.Login(ctx, "bob", "pw")
	require.NoError(t, err)
	assert.Same(t, second, c.Active())
	assert.NotEqual(t, first.ID, second.ID)

	// The replaced session's timers are stopped.
	state, err := first.meditation.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.NotEqual(t, timer.StateRunning, state)
}

func TestLogin_ReplacedSessionCannotOverwriteNewOwner(t *testing.T) {
	store := newMemStore()
	c, alice := loggedIn(t, store)
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, "bob", "pw", "pw"))

	require.NoError(t, alice.AddSteps(ctx, 10))

	bob, err := c.Login(ctx, "bob", "pw")
	require.NoError(t, err)
	require.NoError(t, bob.AddWater(ctx, 1))

	// A handler still holding alice's session, e.g. a request that was in
	// flight when bob logged in.
	assert.ErrorIs(t, alice.AddWater(ctx, 0.5), apperror.ErrAuth)
	_, err = alice.SetWeightHeight(ctx, 70, 175)
	assert.ErrorIs(t, err, apperror.ErrAuth)
	_, err = alice.SimulateSteps(ctx)
	assert.ErrorIs(t, err, apperror.ErrAuth)
	assert.ErrorIs(t, alice.StartMeditation(ctx, 1), apperror.ErrAuth)

	saved, _ := store.saved()
	assert.Equal(t, "bob", saved.Username)
	assert.Equal(t, 1.0, saved.WaterIntake)
}

func TestLogout_EndsSession(t *testing.T) {
	store := newMemStore()
	c, s := loggedIn(t, store)
	ctx := context.Background()

	require.NoError(t, s.AddWater(ctx, 0.5))
	c.Logout()

	assert.ErrorIs(t, s.AddWater(ctx, 0.5), apperror.ErrAuth)
	saved, saves := store.saved()
	assert.Equal(t, 1, saves)
	assert.Equal(t, 0.5, saved.WaterIntake)
}

func TestLogout(t *testing.T) {
	store := newMemStore()
	c, _ := loggedIn(t, store)

	c.Logout()
	assert.Nil(t, c.Active())
	_, err := c.Current()
	assert.ErrorIs(t, err, apperror.ErrAuth)

	// Logging out twice is fine.
	c.Logout()
}

func TestCurrent(t *testing.T) {
	store := newMemStore()
	c, s := loggedIn(t, store)

	got, err := c.Current()
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestLogin_DamagedHashIsRejectedNotFatal(t *testing.T) {
	store := newMemStore()
	store.creds["alice"] = model.Credential{Password: "$2a$xx$" + string(make([]byte, 53))}
	c := newTestController(t, store)

	_, err := c.Login(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, apperror.ErrAuth)
	assert.False(t, errors.Is(err, apperror.ErrStorageWrite))
}
