package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/account-verification-api/services/auth-service/internal/model"
)

var errBoom = errors.New("boom")

// memUserRepo mirrors the conditional updates of the mongo repository.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User // by email

	createErr  error
	getErr     error
	consumeErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*model.User)}
}

func (r *memUserRepo) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, ok := r.users[user.Email]; ok {
		return nil, mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	}

	user.ID = bson.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.users[user.Email] = &stored

	return user, nil
}

func (r *memUserRepo) GetUser(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ID.Hex() == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *memUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.users[email]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) ConsumeVerificationToken(_ context.Context, token string, now time.Time) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.consumeErr != nil {
		return nil, r.consumeErr
	}
	for _, u := range r.users {
		if u.Verified || u.VerificationToken == "" || u.VerificationToken != token {
			continue
		}
		if u.VerificationTokenExpiresAt != nil && !u.VerificationTokenExpiresAt.After(now) {
			continue
		}
		u.Verified = true
		u.VerificationToken = ""
		u.VerificationTokenExpiresAt = nil
		u.UpdatedAt = now
		cp := *u
		return &cp, nil
	}
	return nil, mongo.ErrNoDocuments
}

func (r *memUserRepo) ReplaceVerificationToken(
	_ context.Context,
	email, token string,
	expiresAt *time.Time,
) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[email]
	if !ok || u.Verified {
		return nil, mongo.ErrNoDocuments
	}
	u.VerificationToken = token
	u.VerificationTokenExpiresAt = expiresAt
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) stored(email string) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[email]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (r *memUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

type memSessionRepo struct {
	mu        sync.Mutex
	sessions  map[string]*model.Session
	createErr error
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*model.Session)}
}

func (r *memSessionRepo) CreateSession(_ context.Context, session *model.Session) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return nil, r.createErr
	}
	session.ID = bson.NewObjectID()
	session.CreatedAt = time.Now()
	r.sessions[session.ID.Hex()] = session
	return session, nil
}

func (r *memSessionRepo) GetSession(_ context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || !s.ExpiresAt.After(time.Now()) {
		return nil, mongo.ErrNoDocuments
	}
	return s, nil
}

type sentVerification struct {
	name, email, token string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentVerification
	err  error
}

func (n *fakeNotifier) SendVerification(_ context.Context, name, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentVerification{name, email, token})
	return nil
}
