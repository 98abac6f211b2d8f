package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasapolrittideah/account-verification-api/services/auth-service/internal/config"
	authtypes "github.com/vasapolrittideah/account-verification-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/account-verification-api/shared/auth"
	"github.com/vasapolrittideah/account-verification-api/shared/security"
)

type fixture struct {
	uc       *authUsecase
	users    *memUserRepo
	sessions *memSessionRepo
	notifier *fakeNotifier
	jwtAuth  *auth.JWTAuthenticator
}

func newFixture(t *testing.T, ttl time.Duration) *fixture {
	t.Helper()

	cfg := &config.AuthServiceConfig{
		VerificationTokenTTL: ttl,
		Token: config.TokenConfig{
			SessionSecret:    "test-secret",
			SessionExpiresIn: time.Hour,
			Issuer:           "auth-service",
			Audience:         "web",
		},
	}
	logger := zerolog.Nop()
	f := &fixture{
		users:    newMemUserRepo(),
		sessions: newMemSessionRepo(),
		notifier: &fakeNotifier{},
		jwtAuth:  auth.NewJWTAuthenticator(cfg.Token.SessionSecret, cfg.Token.Audience, cfg.Token.Issuer),
	}
	f.uc = NewAuthUsecase(f.users, f.sessions, f.notifier, f.jwtAuth, cfg, &logger).(*authUsecase)
	return f
}

func (f *fixture) signup(t *testing.T, email, password string) *SignupResult {
	t.Helper()
	res, err := f.uc.Signup(context.Background(), SignupParams{Name: "A", Email: email, Password: password})
	require.NoError(t, err)
	return res
}

func TestSignup(t *testing.T) {
	f := newFixture(t, 0)

	res := f.signup(t, "a@x.com", "p1")
	assert.True(t, res.EmailSent)

	stored := f.users.stored("a@x.com")
	require.NotNil(t, stored)
	assert.False(t, stored.Verified)
	assert.Len(t, stored.VerificationToken, security.TokenBytes*2)
	assert.Nil(t, stored.VerificationTokenExpiresAt)
	assert.NotEqual(t, "p1", stored.PasswordHash)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "a@x.com", f.notifier.sent[0].email)
	assert.Equal(t, stored.VerificationToken, f.notifier.sent[0].token)
}

func TestSignup_NormalizesEmail(t *testing.T) {
	f := newFixture(t, 0)

	f.signup(t, "  A@X.com ", "p1")
	assert.NotNil(t, f.users.stored("a@x.com"))

	_, err := f.uc.Signup(context.Background(), SignupParams{Name: "B", Email: "a@x.com", Password: "p2"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestSignup_Duplicate(t *testing.T) {
	f := newFixture(t, 0)
	f.signup(t, "a@x.com", "p1")

	_, err := f.uc.Signup(context.Background(), SignupParams{Name: "A2", Email: "a@x.com", Password: "p2"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
	assert.Equal(t, 1, f.users.count())
	assert.Len(t, f.notifier.sent, 1)
}

func TestSignup_ConcurrentDuplicates(t *testing.T) {
	f := newFixture(t, 0)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.Signup(context.Background(), SignupParams{Name: "A", Email: "a@x.com", Password: "p1"})
			if err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, 1, f.users.count())
}

func TestSignup_StoreFailure(t *testing.T) {
	f := newFixture(t, 0)
	f.users.createErr = errBoom

	_, err := f.uc.Signup(context.Background(), SignupParams{Name: "A", Email: "a@x.com", Password: "p1"})
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrUserAlreadyExists)
	assert.Zero(t, f.users.count())
	assert.Empty(t, f.notifier.sent)
}

func TestSignup_EmailFailureKeepsAccount(t *testing.T) {
	f := newFixture(t, 0)
	f.notifier.err = errBoom

	res := f.signup(t, "a@x.com", "p1")
	assert.False(t, res.EmailSent)

	stored := f.users.stored("a@x.com")
	require.NotNil(t, stored)
	assert.False(t, stored.Verified)
	assert.NotEmpty(t, stored.VerificationToken)
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t, 0)
	f.signup(t, "a@x.com", "p1")
	token := f.users.stored("a@x.com").VerificationToken

	user, err := f.uc.VerifyEmail(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, user.Verified)
	assert.Empty(t, user.VerificationToken)

	_, err = f.uc.VerifyEmail(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidVerificationToken)
}

func TestVerifyEmail_UnknownToken(t *testing.T) {
	f := newFixture(t, 0)
	f.signup(t, "a@x.com", "p1")
	before := f.users.stored("a@x.com")

	random, err := security.GenerateToken()
	require.NoError(t, err)

	for _, tok := range []string{random, ""} {
		_, err := f.uc.VerifyEmail(context.Background(), tok)
		assert.ErrorIs(t, err, ErrInvalidVerificationToken)
	}

	assert.Equal(t, before, f.users.stored("a@x.com"))
}

func TestVerifyEmail_StoreFailure(t *testing.T) {
	f := newFixture(t, 0)
	f.users.consumeErr = errBoom

	_, err := f.uc.VerifyEmail(context.Background(), "tok")
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrInvalidVerificationToken)
}

func TestVerifyEmail_Concurrent(t *testing.T) {
	f := newFixture(t, 0)
	f.signup(t, "a@x.com", "p1")
	token := f.users.stored("a@x.com").VerificationToken

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.uc.VerifyEmail(context.Background(), token); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
}

func TestVerifyEmail_ExpiredToken(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.signup(t, "a@x.com", "p1")
	stored := f.users.stored("a@x.com")
	require.NotNil(t, stored.VerificationTokenExpiresAt)

	f.uc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := f.uc.VerifyEmail(context.Background(), stored.VerificationToken)
	assert.ErrorIs(t, err, ErrInvalidVerificationToken)
	assert.False(t, f.users.stored("a@x.com").Verified)
}

func TestLogin(t *testing.T) {
	f := newFixture(t, 0)
	f.signup(t, "a@x.com", "p1")

	cases := []struct {
		name     string
		verify   bool
		email    string
		password string
		wantErr  error
	}{
		{name: "unknown email", email: "nobody@x.com", password: "p1", wantErr: ErrUserNotFound},
		{name: "pending, correct password", email: "a@x.com", password: "p1", wantErr: ErrUserNotVerified},
		{name: "pending, wrong password", email: "a@x.com", password: "nope", wantErr: ErrUserNotVerified},
		{name: "verified, wrong password", verify: true, email: "a@x.com", password: "nope", wantErr: ErrInvalidCredentials},
		{name: "verified, correct password", email: "a@x.com", password: "p1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.verify {
				_, err := f.uc.VerifyEmail(context.Background(), f.users.stored("a@x.com").VerificationToken)
				require.NoError(t, err)
			}

			session, err := f.uc.Login(context.Background(), LoginParams{Email: tc.email, Password: tc.password})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, session)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, session.Token)
			assert.Equal(t, int64(3600), session.ExpiresIn)

			var claims authtypes.SessionClaims
			require.NoError(t, f.jwtAuth.Parse(session.Token, &claims))
			assert.Equal(t, f.users.stored("a@x.com").ID.Hex(), claims.UserID)
			assert.NotEmpty(t, claims.ID)
		})
	}
}

func TestLogin_StoreFailure(t *testing.T) {
	f := newFixture(t, 0)
	f.users.getErr = errBoom

	_, err := f.uc.Login(context.Background(), LoginParams{Email: "a@x.com", Password: "p1"})
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}

func TestLogin_SessionStoreFailure(t *testing.T) {
	f := newFixture(t, 0)
	f.signup(t, "a@x.com", "p1")
	_, err := f.uc.VerifyEmail(context.Background(), f.users.stored("a@x.com").VerificationToken)
	require.NoError(t, err)
	f.sessions.createErr = errBoom

	_, err = f.uc.Login(context.Background(), LoginParams{Email: "a@x.com", Password: "p1"})
	assert.ErrorIs(t, err, errBoom)
}

func TestResendVerification(t *testing.T) {
	f := newFixture(t, 0)
	f.signup(t, "a@x.com", "p1")
	oldToken := f.users.stored("a@x.com").VerificationToken

	require.NoError(t, f.uc.ResendVerification(context.Background(), "A@x.com"))

	newToken := f.users.stored("a@x.com").VerificationToken
	assert.NotEqual(t, oldToken, newToken)
	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, newToken, f.notifier.sent[1].token)

	_, err := f.uc.VerifyEmail(context.Background(), oldToken)
	assert.ErrorIs(t, err, ErrInvalidVerificationToken)

	_, err = f.uc.VerifyEmail(context.Background(), newToken)
	require.NoError(t, err)

	assert.ErrorIs(t, f.uc.ResendVerification(context.Background(), "a@x.com"), ErrUserAlreadyVerified)
	assert.ErrorIs(t, f.uc.ResendVerification(context.Background(), "nobody@x.com"), ErrUserNotFound)
}

func TestResendVerification_EmailFailure(t *testing.T) {
	f := newFixture(t, 0)
	f.signup(t, "a@x.com", "p1")
	f.notifier.err = errBoom

	err := f.uc.ResendVerification(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, errBoom)
}

func TestCurrentUser(t *testing.T) {
	f := newFixture(t, 0)
	f.signup(t, "a@x.com", "p1")
	_, err := f.uc.VerifyEmail(context.Background(), f.users.stored("a@x.com").VerificationToken)
	require.NoError(t, err)

	session, err := f.uc.Login(context.Background(), LoginParams{Email: "a@x.com", Password: "p1"})
	require.NoError(t, err)

	var claims authtypes.SessionClaims
	require.NoError(t, f.jwtAuth.Parse(session.Token, &claims))

	user, err := f.uc.CurrentUser(context.Background(), &claims)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)

	forged := claims
	forged.UserID = "000000000000000000000000"
	_, err = f.uc.CurrentUser(context.Background(), &forged)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	unknown := claims
	unknown.SessionID = "000000000000000000000000"
	_, err = f.uc.CurrentUser(context.Background(), &unknown)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestScenario_SignupVerifyLogin(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	res, err := f.uc.Signup(ctx, SignupParams{Name: "A", Email: "a@x.com", Password: "p1"})
	require.NoError(t, err)
	assert.True(t, res.EmailSent)

	_, err = f.uc.Login(ctx, LoginParams{Email: "a@x.com", Password: "p1"})
	assert.ErrorIs(t, err, ErrUserNotVerified)

	require.Len(t, f.notifier.sent, 1)
	_, err = f.uc.VerifyEmail(ctx, f.notifier.sent[0].token)
	require.NoError(t, err)

	session, err := f.uc.Login(ctx, LoginParams{Email: "a@x.com", Password: "p1"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	_, err = f.uc.Login(ctx, LoginParams{Email: "a@x.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
