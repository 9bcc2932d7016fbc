package auth

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

/*
Fakes for ports
*/

type fakeIdP struct {
	mu sync.Mutex

	// accounts by e-mail; password is kept in clear, this is a fake.
	accounts  map[string]fakeAccount
	idpUsers  map[domain.Provider]domain.ProviderUser
	refreshed ProviderTokens
	lookup    domain.ProviderUser

	signUpErr     error
	signInErr     error
	idpErr        error
	verifyErr     error
	resetErr      error
	updateErr     error
	refreshErr    error
	lookupErr     error
	verifySent    []string
	resetSent     []string
	displayNames  map[string]string
	lastIdpCred   domain.IdPCredential
	lastIdpTarget domain.Provider
}

type fakeAccount struct {
	user     domain.ProviderUser
	password string
}

func newFakeIdP() *fakeIdP {
	return &fakeIdP{
		accounts:     map[string]fakeAccount{},
		idpUsers:     map[domain.Provider]domain.ProviderUser{},
		displayNames: map[string]string{},
	}
}

func (f *fakeIdP) addAccount(uid, email, password, displayName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[email] = fakeAccount{
		user: domain.ProviderUser{
			UID:          uid,
			Email:        email,
			DisplayName:  displayName,
			ProviderID:   string(domain.ProviderPassword),
			IDToken:      "idtok-" + uid,
			RefreshToken: "rt-" + uid,
			ExpiresIn:    3600,
		},
		password: password,
	}
}

func (f *fakeIdP) SignUp(ctx context.Context, email, password string) (domain.ProviderUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.signUpErr != nil {
		return domain.ProviderUser{}, f.signUpErr
	}
	if _, ok := f.accounts[email]; ok {
		return domain.ProviderUser{}, domain.ErrEmailAlreadyInUse()
	}
	uid := fmt.Sprintf("uid-%d", len(f.accounts)+1)
	u := domain.ProviderUser{
		UID:          uid,
		Email:        email,
		ProviderID:   string(domain.ProviderPassword),
		IsNewUser:    true,
		IDToken:      "idtok-" + uid,
		RefreshToken: "rt-" + uid,
		ExpiresIn:    3600,
	}
	f.accounts[email] = fakeAccount{user: u, password: password}
	return u, nil
}

func (f *fakeIdP) SignInWithPassword(ctx context.Context, email, password string) (domain.ProviderUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.signInErr != nil {
		return domain.ProviderUser{}, f.signInErr
	}
	acc, ok := f.accounts[email]
	if !ok || acc.password != password {
		return domain.ProviderUser{}, domain.ErrInvalidCredentials()
	}
	return acc.user, nil
}

func (f *fakeIdP) SignInWithIdp(ctx context.Context, p domain.Provider, cred domain.IdPCredential) (domain.ProviderUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastIdpTarget = p
	f.lastIdpCred = cred
	if f.idpErr != nil {
		return domain.ProviderUser{}, f.idpErr
	}
	u, ok := f.idpUsers[p]
	if !ok {
		return domain.ProviderUser{}, domain.ErrInvalidIdPCredential(nil)
	}
	return u, nil
}

func (f *fakeIdP) SendEmailVerification(ctx context.Context, idToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyErr != nil {
		return f.verifyErr
	}
	f.verifySent = append(f.verifySent, idToken)
	return nil
}

func (f *fakeIdP) SendPasswordReset(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resetErr != nil {
		return f.resetErr
	}
	if _, ok := f.accounts[email]; !ok {
		return domain.ErrUserNotFound()
	}
	f.resetSent = append(f.resetSent, email)
	return nil
}

func (f *fakeIdP) UpdateProfile(ctx context.Context, idToken, displayName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.displayNames[idToken] = displayName
	return nil
}

func (f *fakeIdP) Lookup(ctx context.Context, idToken string) (domain.ProviderUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return domain.ProviderUser{}, f.lookupErr
	}
	return f.lookup, nil
}

func (f *fakeIdP) Refresh(ctx context.Context, refreshToken string) (ProviderTokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return ProviderTokens{}, f.refreshErr
	}
	return f.refreshed, nil
}

type fakeProfiles struct {
	mu sync.Mutex

	docs   map[string]map[string]any
	seq    int
	setErr error
	addErr error
	sets   []domain.Profile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{docs: map[string]map[string]any{}}
}

func (f *fakeProfiles) Set(ctx context.Context, p domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets = append(f.sets, p)
	if f.setErr != nil {
		return f.setErr
	}
	doc := f.docs[p.UID]
	if doc == nil {
		doc = map[string]any{}
	}
	for k, v := range p.Fields() {
		doc[k] = v
	}
	f.docs[p.UID] = doc
	return nil
}

func (f *fakeProfiles) Add(ctx context.Context, fields map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return "", f.addErr
	}
	f.seq++
	id := fmt.Sprintf("doc-%d", f.seq)
	f.docs[id] = fields
	return id, nil
}

func (f *fakeProfiles) Get(ctx context.Context, id string) (domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrUserNotFound()
	}
	return domain.Document{ID: id, Fields: d}, nil
}

func (f *fakeProfiles) List(ctx context.Context) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Document, 0, len(f.docs))
	for id, d := range f.docs {
		out = append(out, domain.Document{ID: id, Fields: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName() < out[j].DisplayName() })
	return out, nil
}

func (f *fakeProfiles) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

// fakeWatchProfiles adds a change feed on top of fakeProfiles.
type fakeWatchProfiles struct {
	*fakeProfiles
	feed chan []domain.Document
}

func (f *fakeWatchProfiles) Watch(ctx context.Context) (<-chan []domain.Document, error) {
	return f.feed, nil
}

type fakeSessions struct {
	mu sync.Mutex

	byID      map[string]domain.Session
	seq       int
	createErr error
	getErr    error
	deleted   []string
	lastTTL   time.Duration
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byID: map[string]domain.Session{}}
}

func (f *fakeSessions) Create(ctx context.Context, s domain.Session, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.seq++
	s.ID = fmt.Sprintf("sid-%d", f.seq)
	f.byID[s.ID] = s
	f.lastTTL = ttl
	return s.ID, nil
}

func (f *fakeSessions) Get(ctx context.Context, id string) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.Session{}, f.getErr
	}
	s, ok := f.byID[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound()
	}
	return s, nil
}

func (f *fakeSessions) Update(ctx context.Context, s domain.Session, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[s.ID]; !ok {
		return domain.ErrSessionNotFound()
	}
	f.byID[s.ID] = s
	f.lastTTL = ttl
	return nil
}

func (f *fakeSessions) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeSigner struct {
	signErr error
}

func (f *fakeSigner) SignAccessToken(userID, sessionID string, ttl time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "at:" + userID + ":" + sessionID, nil
}

func (f *fakeSigner) VerifyAccessToken(token string) (TokenClaims, error) {
	return TokenClaims{}, domain.ErrTokenInvalid()
}

type fakePublisher struct {
	mu sync.Mutex

	err        error
	registered []UserEvent
	signedIn   []UserEvent
	signedOut  []UserEvent
	resets     []PasswordResetEvent
}

func (f *fakePublisher) PublishUserRegistered(ctx context.Context, evt UserEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, evt)
	return f.err
}

func (f *fakePublisher) PublishUserSignedIn(ctx context.Context, evt UserEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedIn = append(f.signedIn, evt)
	return f.err
}

func (f *fakePublisher) PublishUserSignedOut(ctx context.Context, evt UserEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = append(f.signedOut, evt)
	return f.err
}

func (f *fakePublisher) PublishPasswordResetRequested(ctx context.Context, evt PasswordResetEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, evt)
	return f.err
}

/*
Fixture
*/

type fixture struct {
	svc      *Service
	idp      *fakeIdP
	profiles *fakeProfiles
	sessions *fakeSessions
	signer   *fakeSigner
	pub      *fakePublisher

	mu     sync.Mutex
	audits []auditEntry
}

func (fx *fixture) auditActions() []string {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	out := make([]string, 0, len(fx.audits))
	for _, a := range fx.audits {
		out = append(out, a.action)
	}
	return out
}

func (fx *fixture) hasAudit(action string) bool {
	for _, a := range fx.auditActions() {
		if a == action {
			return true
		}
	}
	return false
}

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newSvcForTest(t *testing.T) *fixture {
	t.Helper()

	fx := &fixture{
		idp:      newFakeIdP(),
		profiles: newFakeProfiles(),
		sessions: newFakeSessions(),
		signer:   &fakeSigner{},
		pub:      &fakePublisher{},
	}
	fx.svc = NewService(fx.idp, fx.profiles, fx.sessions, fx.signer, fx.pub, Config{
		AccessTTL:  10 * time.Minute,
		SessionTTL: time.Hour,
	}).WithAudit(func(action string, fields map[string]string) {
		fx.mu.Lock()
		defer fx.mu.Unlock()
		fx.audits = append(fx.audits, auditEntry{action: action, fields: fields})
	})
	fx.svc.now = func() time.Time { return fixedNow }
	return fx
}
