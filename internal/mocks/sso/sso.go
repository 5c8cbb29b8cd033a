// Package sso contains simple hand-written test doubles for the gateway
// ports. These are lightweight and suitable for unit tests without codegen.
package sso

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/campusops/shibgate/internal/domain/model"
	domainsso "github.com/campusops/shibgate/internal/domain/sso"
	apperrors "github.com/campusops/shibgate/internal/errors"
	"github.com/campusops/shibgate/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AssertionReader = (*StaticAssertionReader)(nil)
	_ ports.SessionStore    = (*MemorySessionStore)(nil)
	_ ports.SettingsStore   = (*MemorySettingsStore)(nil)
	_ ports.AccountStore    = (*MemoryAccountStore)(nil)
	_ ports.AuditSink       = (*RecordingAuditSink)(nil)
)

// StaticAssertionReader returns a fixed assertion regardless of the request.
type StaticAssertionReader struct {
	Assertion domainsso.Assertion
}

func (r *StaticAssertionReader) Read(_ domainsso.Settings, _ *http.Request) domainsso.Assertion {
	return r.Assertion
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainsso.Session

	// SaveErr / GetErr / DeleteErr force failures when set.
	SaveErr   error
	GetErr    error
	DeleteErr error
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainsso.Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainsso.Session) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainsso.Session, error) {
	if m.GetErr != nil {
		return domainsso.Session{}, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainsso.Session{}, notFoundError{}
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len reports the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type notFoundError struct{}

func (notFoundError) Error() string  { return "session not found" }
func (notFoundError) NotFound() bool { return true }

// MemorySettingsStore is an in-memory settings store for unit tests.
type MemorySettingsStore struct {
	mu       sync.Mutex
	settings *domainsso.Settings

	SaveErr error
	LoadErr error
}

func (m *MemorySettingsStore) Load(_ context.Context) (domainsso.Settings, error) {
	if m.LoadErr != nil {
		return domainsso.Settings{}, m.LoadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return domainsso.Settings{}, apperrors.NotFound("sso settings not found")
	}
	return *m.settings, nil
}

func (m *MemorySettingsStore) Save(_ context.Context, settings domainsso.Settings) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = &settings
	return nil
}

// MemoryAccountStore is an in-memory account store keyed by username.
type MemoryAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*model.Account

	CreateErr error
	UpdateErr error
	FindErr   error

	// CreateCalls and UpdateCalls record the fields passed to writes.
	CreateCalls []model.AccountFields
	UpdateCalls []model.AccountFields
}

// NewMemoryAccountStore creates a new in-memory account store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[string]*model.Account)}
}

// Seed inserts an account directly, bypassing Create bookkeeping.
func (m *MemoryAccountStore) Seed(account model.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	m.accounts[account.Username] = &account
}

func (m *MemoryAccountStore) FindByUsername(_ context.Context, username string) (*model.Account, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[username]
	if !ok {
		return nil, apperrors.NotFoundf("account %q not found", username)
	}
	cp := *account
	return &cp, nil
}

func (m *MemoryAccountStore) Create(_ context.Context, fields model.AccountFields) (*model.Account, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[fields.Username]; exists {
		return nil, apperrors.Conflict("account already exists")
	}
	account := &model.Account{
		ID:          uuid.New(),
		Username:    fields.Username,
		Email:       fields.Email,
		DisplayName: fields.DisplayName,
		FirstName:   fields.FirstName,
		LastName:    fields.LastName,
	}
	m.accounts[fields.Username] = account
	m.CreateCalls = append(m.CreateCalls, fields)
	cp := *account
	return &cp, nil
}

func (m *MemoryAccountStore) Update(_ context.Context, id uuid.UUID, fields model.AccountFields) (*model.Account, error) {
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.ID == id {
			account.Username = fields.Username
			account.Email = fields.Email
			account.DisplayName = fields.DisplayName
			account.FirstName = fields.FirstName
			account.LastName = fields.LastName
			m.UpdateCalls = append(m.UpdateCalls, fields)
			cp := *account
			return &cp, nil
		}
	}
	return nil, apperrors.NotFoundf("account %s not found", id)
}

// RecordingAuditSink records failed-login usernames for assertions.
type RecordingAuditSink struct {
	mu       sync.Mutex
	Failures []string
}

func (r *RecordingAuditSink) LoginFailed(_ context.Context, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures = append(r.Failures, username)
}

// FailureCount reports the number of recorded failures.
func (r *RecordingAuditSink) FailureCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Failures)
}
