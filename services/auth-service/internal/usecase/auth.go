package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/account-verification-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/account-verification-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/account-verification-api/services/auth-service/internal/repository"
	authtypes "github.com/vasapolrittideah/account-verification-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/account-verification-api/shared/auth"
	"github.com/vasapolrittideah/account-verification-api/shared/security"
)

// AuthUsecase defines the account lifecycle: signup, email verification and login.
type AuthUsecase interface {
	// Signup creates a pending account and emails its verification link.
	Signup(ctx context.Context, params SignupParams) (*SignupResult, error)

	// VerifyEmail redeems a verification token, moving its account to verified.
	VerifyEmail(ctx context.Context, token string) (*model.User, error)

	// Login issues a session credential for a verified account.
	Login(ctx context.Context, params LoginParams) (*authtypes.Session, error)

	// ResendVerification replaces the token of a pending account and emails it again.
	ResendVerification(ctx context.Context, email string) error

	// CurrentUser resolves the account behind a live session.
	CurrentUser(ctx context.Context, claims *authtypes.SessionClaims) (*model.User, error)
}

// VerificationNotifier delivers verification links.
type VerificationNotifier interface {
	SendVerification(ctx context.Context, name, email, token string) error
}

// SignupParams defines the parameters for account signup.
type SignupParams struct {
	Name     string
	Email    string
	Password string
}

// SignupResult describes a created account. EmailSent is false when the account
// was stored but the verification email could not be delivered.
type SignupResult struct {
	User      *model.User
	EmailSent bool
}

// LoginParams defines the parameters for user login.
type LoginParams struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

var (
	ErrUserAlreadyExists        = errors.New("user already exists")
	ErrUserAlreadyVerified      = errors.New("user already verified")
	ErrUserNotFound             = errors.New("user not found")
	ErrUserNotVerified          = errors.New("account not verified")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrInvalidVerificationToken = errors.New("invalid or expired verification token")
	ErrSessionNotFound          = errors.New("session not found")
)

type authUsecase struct {
	userRepo       repository.UserRepository
	sessionRepo    repository.SessionRepository
	notifier       VerificationNotifier
	jwtAuth        *auth.JWTAuthenticator
	authServiceCfg *config.AuthServiceConfig
	logger         *zerolog.Logger
	now            func() time.Time
}

func NewAuthUsecase(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	notifier VerificationNotifier,
	jwtAuth *auth.JWTAuthenticator,
	authServiceCfg *config.AuthServiceConfig,
	logger *zerolog.Logger,
) AuthUsecase {
	return &authUsecase{
		userRepo:       userRepo,
		sessionRepo:    sessionRepo,
		notifier:       notifier,
		jwtAuth:        jwtAuth,
		authServiceCfg: authServiceCfg,
		logger:         logger,
		now:            time.Now,
	}
}

// NormalizeEmail is the canonical form under which emails are stored and looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *authUsecase) Signup(ctx context.Context, params SignupParams) (*SignupResult, error) {
	passwordHash, err := security.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := u.newVerificationToken()
	if err != nil {
		return nil, err
	}

	user, err := u.userRepo.CreateUser(ctx, &model.User{
		Name:                       params.Name,
		Email:                      NormalizeEmail(params.Email),
		PasswordHash:               passwordHash,
		VerificationToken:          token,
		VerificationTokenExpiresAt: expiresAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUserAlreadyExists
		}

		return nil, fmt.Errorf("create user: %w", err)
	}

	// The account stays pending when delivery fails; the caller can request a new link.
	result := &SignupResult{User: user, EmailSent: true}
	if err := u.notifier.SendVerification(ctx, user.Name, user.Email, token); err != nil {
		u.logger.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to send verification email")
		result.EmailSent = false
	}

	return result, nil
}

func (u *authUsecase) VerifyEmail(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrInvalidVerificationToken
	}

	user, err := u.userRepo.ConsumeVerificationToken(ctx, token, u.now())
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidVerificationToken
		}

		return nil, fmt.Errorf("consume verification token: %w", err)
	}

	return user, nil
}

func (u *authUsecase) Login(ctx context.Context, params LoginParams) (*authtypes.Session, error) {
	user, err := u.userRepo.GetUserByEmail(ctx, NormalizeEmail(params.Email))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("get user: %w", err)
	}

	if user.Pending() {
		return nil, ErrUserNotVerified
	}

	if ok, err := security.VerifyPassword(params.Password, user.PasswordHash); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrInvalidCredentials
	}

	return u.createSession(ctx, user, params)
}

func (u *authUsecase) ResendVerification(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := u.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrUserNotFound
		}

		return fmt.Errorf("get user: %w", err)
	}

	if !user.Pending() {
		return ErrUserAlreadyVerified
	}

	token, expiresAt, err := u.newVerificationToken()
	if err != nil {
		return err
	}

	user, err = u.userRepo.ReplaceVerificationToken(ctx, email, token, expiresAt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Verified between the lookup and the update.
			return ErrUserAlreadyVerified
		}

		return fmt.Errorf("replace verification token: %w", err)
	}

	if err := u.notifier.SendVerification(ctx, user.Name, user.Email, token); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}

	return nil
}

func (u *authUsecase) CurrentUser(ctx context.Context, claims *authtypes.SessionClaims) (*model.User, error) {
	session, err := u.sessionRepo.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, bson.ErrInvalidHex) {
			return nil, ErrSessionNotFound
		}

		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.UserID.Hex() != claims.UserID {
		return nil, ErrSessionNotFound
	}

	user, err := u.userRepo.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSessionNotFound
		}

		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func (u *authUsecase) newVerificationToken() (string, *time.Time, error) {
	token, err := security.GenerateToken()
	if err != nil {
		return "", nil, err
	}

	if u.authServiceCfg.VerificationTokenTTL <= 0 {
		return token, nil, nil
	}

	expiresAt := u.now().Add(u.authServiceCfg.VerificationTokenTTL)
	return token, &expiresAt, nil
}

func (u *authUsecase) createSession(
	ctx context.Context,
	user *model.User,
	params LoginParams,
) (*authtypes.Session, error) {
	expiresIn := u.authServiceCfg.Token.SessionExpiresIn
	now := u.now()

	session := &model.Session{
		UserID:    user.ID,
		ExpiresAt: now.Add(expiresIn),
	}
	if params.IPAddress != "" {
		session.IPAddress = &params.IPAddress
	}
	if params.UserAgent != "" {
		session.UserAgent = &params.UserAgent
	}

	session, err := u.sessionRepo.CreateSession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	claims := authtypes.SessionClaims{
		UserID:    user.ID.Hex(),
		SessionID: session.ID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    u.jwtAuth.Issuer(),
			Audience:  jwt.ClaimStrings{u.jwtAuth.Audience()},
		},
	}

	token, err := u.jwtAuth.Sign(claims)
	if err != nil {
		return nil, err
	}

	return &authtypes.Session{
		Token:     token,
		ExpiresIn: int64(expiresIn.Seconds()),
	}, nil
}
