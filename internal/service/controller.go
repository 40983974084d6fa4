// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler / CLI (callers)  → parse input, render output
//	Service (this package)   → authenticates, owns the active session, saves
//	Repository (Data layer)  → reads/writes users.json / user_data.json / SQLite
//
// The rules for the numbers themselves (clamping, validation, classification)
// live one level lower in internal/tracker and internal/classify. The service
// adds what those packages deliberately don't know about: who is logged in,
// and the rule that every change is written to storage before the call
// returns.
//
// DEPENDENCY INJECTION:
// Controller takes repository.CredentialStore and repository.SnapshotStore
// (interfaces), NOT a *jsonfile.Store or *sqlite.DB. Tests pass in-memory
// fakes; main.go picks the backend from config.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/zzzxajak-prog/FitnessApp/internal/apperror"
	"github.com/zzzxajak-prog/FitnessApp/internal/auth"
	"github.com/zzzxajak-prog/FitnessApp/internal/model"
	"github.com/zzzxajak-prog/FitnessApp/internal/repository"
	"github.com/zzzxajak-prog/FitnessApp/internal/timer"
	"github.com/zzzxajak-prog/FitnessApp/internal/tracker"
)

// Config holds the timing knobs of a Controller. Production code uses
// DefaultConfig(); tests shrink the intervals so timers finish in
// milliseconds.
type Config struct {
	StepInterval       time.Duration // delay between simulated step ticks
	MeditationInterval time.Duration // one countdown "second"

	// Rand seeds the per-session generators used for step simulation.
	// nil means a time-seeded source.
	Rand *rand.Rand
}

// DefaultConfig returns the timings of the desktop app: a step tick every
// 500ms and a real one-second meditation countdown.
func DefaultConfig() Config {
	return Config{
		StepInterval:       timer.StepInterval,
		MeditationInterval: timer.MeditationInterval,
	}
}

// Controller authenticates users and owns the single active Session.
//
// There is at most one logged-in session at a time: logging in replaces
// (and stops) the previous one. This mirrors the desktop app, where the main
// window belongs to whoever logged in last.
type Controller struct {
	creds     repository.CredentialStore
	snaps     repository.SnapshotStore
	passwords *auth.PasswordService
	logger    *slog.Logger
	cfg       Config

	mu     sync.Mutex
	rng    *rand.Rand
	active *Session
}

// NewController creates a Controller with all required dependencies.
// Call this in server.go (or the CLI) when wiring the dependency graph.
func NewController(
	creds repository.CredentialStore,
	snaps repository.SnapshotStore,
	passwords *auth.PasswordService,
	logger *slog.Logger,
	cfg Config,
) *Controller {
	rng := cfg.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	if cfg.StepInterval <= 0 {
		cfg.StepInterval = timer.StepInterval
	}
	if cfg.MeditationInterval <= 0 {
		cfg.MeditationInterval = timer.MeditationInterval
	}
	return &Controller{
		creds:     creds,
		snaps:     snaps,
		passwords: passwords,
		logger:    logger,
		cfg:       cfg,
		rng:       rng,
	}
}

// Register stores a credential for username.
//
// Surrounding whitespace is trimmed from both fields, as the login form
// always did. Failures:
//   - empty username or password   → AuthFailure
//   - password != confirm          → AuthFailure (PasswordMismatch)
//   - the table cannot be written  → StorageWriteFailure
//
// Registering an existing username replaces its password. The credential
// table is keyed by username and the desktop app never checked for
// duplicates; see DESIGN.md.
func (c *Controller) Register(ctx context.Context, username, password, confirm string) error {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	confirm = strings.TrimSpace(confirm)

	if username == "" || password == "" {
		return apperror.AuthFailed("username", "username and password are required")
	}
	if password != confirm {
		return apperror.PasswordMismatch()
	}

	sealed, err := c.passwords.Seal(password)
	if err != nil {
		return err
	}

	table, err := c.creds.LoadCredentials(ctx)
	if err != nil {
		return fmt.Errorf("service: loading credentials: %w", err)
	}
	_, existed := table[username]
	table[username] = model.Credential{Password: sealed}

	if err := c.creds.SaveCredentials(ctx, table); err != nil {
		c.logger.Error("saving credentials failed",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return apperror.StorageWriteFailed("credentials", err)
	}

	c.logger.Info("user registered",
		slog.String("username", username),
		slog.Bool("replaced", existed),
		slog.Bool("hashed", c.passwords.Hashing()),
	)
	return nil
}

// Login checks username/password against the credential table and, on an
// exact match, opens a Session over the stored snapshot.
//
// A failed login returns an AuthFailure and touches nothing: no snapshot is
// loaded, created or saved, and the current session (if any) stays active.
//
// The snapshot file is shared by everyone who uses this data directory (the
// desktop app kept a single user_data.json). It is adopted when it belongs
// to this user or to "Guest"; a snapshot owned by someone else is not shown
// to this user, who starts from zero instead.
func (c *Controller) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	table, err := c.creds.LoadCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: loading credentials: %w", err)
	}

	cred, ok := table[username]
	if !ok || username == "" {
		c.logger.Info("login rejected", slog.String("username", username), slog.String("reason", "unknown user"))
		return nil, apperror.InvalidCredentials()
	}
	if err := c.passwords.Verify(cred.Password, password); err != nil {
		if !errors.Is(err, auth.ErrMismatch) {
			c.logger.Warn("stored password could not be checked",
				slog.String("username", username),
				slog.String("error", err.Error()),
			)
		}
		c.logger.Info("login rejected", slog.String("username", username), slog.String("reason", "bad password"))
		return nil, apperror.InvalidCredentials()
	}

	snap, err := c.snaps.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: loading snapshot: %w", err)
	}
	adopted := snap.Username == username || snap.Username == model.GuestUsername
	if !adopted {
		snap = model.NewSnapshot(username)
	}
	snap.Username = username

	c.mu.Lock()
	// Each session gets its own generator: *rand.Rand is not safe for
	// concurrent use and sessions outlive this lock.
	rng := rand.New(rand.NewPCG(c.rng.Uint64(), c.rng.Uint64()))
	previous := c.active
	s := newSession(c, xid.New().String(), tracker.New(snap), rng)
	c.active = s
	c.mu.Unlock()

	if previous != nil {
		previous.stop()
	}

	c.logger.Info("user logged in",
		slog.String("username", username),
		slog.String("session", s.ID),
		slog.Bool("adoptedSnapshot", adopted),
	)
	return s, nil
}

// Logout ends the active session and stops its timers. It is a no-op when
// nobody is logged in.
func (c *Controller) Logout() {
	c.mu.Lock()
	s := c.active
	c.active = nil
	c.mu.Unlock()

	if s == nil {
		return
	}
	s.stop()
	c.logger.Info("user logged out",
		slog.String("username", s.Username()),
		slog.String("session", s.ID),
	)
}

// Active returns the logged-in session, or nil.
func (c *Controller) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Current is Active for callers that need an error: it returns an
// AuthFailure when nobody is logged in.
func (c *Controller) Current() (*Session, error) {
	if s := c.Active(); s != nil {
		return s, nil
	}
	return nil, apperror.AuthFailed("session", "not logged in")
}
