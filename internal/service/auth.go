// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// AuthService is the resolver behind the three API operations:
//
//	signup  → UserRepository.FindByEmail, PasswordService.Hash, UserRepository.Create, TokenService.Issue
//	login   → UserRepository.FindByEmail, PasswordService.Verify, TokenService.Issue
//	getUser → auth.IdentityFromContext, UserRepository.FindByID
//
// It knows nothing about HTTP; every failure is an apperror the handler maps.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/sakif/auth-gateway/internal/apperror"
	"github.com/sakif/auth-gateway/internal/auth"
	"github.com/sakif/auth-gateway/internal/model"
	"github.com/sakif/auth-gateway/internal/repository"
)

// DefaultTokenTTL is the lifetime of tokens minted by signup and login.
const DefaultTokenTTL = 24 * time.Hour

// Input limits.
const (
	MaxUsernameLength = 50
	MaxEmailLength    = 254
	MinPasswordLength = 6
)

// AuthService handles the authentication business logic.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	tokenTTL  time.Duration
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// A non-positive tokenTTL falls back to DefaultTokenTTL.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	tokenTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

// AuthPayload is returned by signup and login. User is always the public
// copy: it never carries the password hash.
type AuthPayload struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// SignupInput is the payload of the signup mutation.
type SignupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

var emailRules = []validation.Rule{validation.Required, validation.Length(3, MaxEmailLength), is.Email}

// Validate checks the signup payload.
func (in SignupInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required, validation.Length(1, MaxUsernameLength)),
		validation.Field(&in.Email, emailRules...),
		validation.Field(&in.Password, validation.Required, validation.Length(MinPasswordLength, auth.MaxPasswordBytes)),
	)
}

// validateEmail checks only the email, so a taken address can be reported
// before the other fields are looked at.
func (in SignupInput) validateEmail() error {
	return validation.ValidateStruct(&in, validation.Field(&in.Email, emailRules...))
}

// LoginInput is the payload of the login query.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the login payload. Only presence is checked: format rules
// belong to signup, and a malformed email simply won't be found.
func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required),
		validation.Field(&in.Password, validation.Required),
	)
}

// Signup registers a new user and issues a token for it.
//
// FLOW:
//  1. Normalise the input and validate the email
//  2. Look the email up; if it exists → UserAlreadyExists, whatever the
//     other fields hold
//  3. Validate username and password, then hash the password
//  4. Create the user. A concurrent signup that slipped past step 2 is
//     stopped here by the store's UNIQUE constraint and also reported as
//     UserAlreadyExists
//  5. Issue a token and return it with the public user
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthPayload, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)

	if err := toAppError(in.validateEmail()); err != nil {
		return nil, err
	}

	_, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, apperror.UserAlreadyExists()
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: signup lookup: %w", err)
	}

	if err := toAppError(in.Validate()); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
		}
		return nil, fmt.Errorf("service/auth: signup: %w", err)
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicateEmail) {
			return nil, apperror.UserAlreadyExists()
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", slog.String("userID", user.ID))

	return &AuthPayload{Token: token, User: user.Public()}, nil
}

// Login verifies email + password and issues a token.
//
// Unknown email → UserNotFound; wrong password → InvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthPayload, error) {
	in.Email = normalizeEmail(in.Email)

	if err := toAppError(in.Validate()); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.UserNotFound()
		}
		return nil, fmt.Errorf("service/auth: login lookup: %w", err)
	}

	if !s.passwords.Verify(user.PasswordHash, in.Password) {
		s.logger.Info("login rejected", slog.String("userID", user.ID))
		return nil, apperror.InvalidCredentials()
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return &AuthPayload{Token: token, User: user.Public()}, nil
}

// GetUser returns the user identified by the request context.
//
// Anonymous context → Unauthenticated. A valid token whose user no longer
// exists → NotFound.
func (s *AuthService) GetUser(ctx context.Context) (*model.User, error) {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, apperror.Unauthenticated()
	}

	user, err := s.users.FindByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id.UserID, err)
	}

	return user.Public(), nil
}

func (s *AuthService) issue(user *model.User) (string, error) {
	token, err := s.tokens.Issue(auth.Identity{UserID: user.ID, Email: user.Email}, s.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("service/auth: issuing token for user %s: %w", user.ID, err)
	}
	return token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// toAppError converts ozzo-validation errors into an apperror.ValidationFailed
// for the first offending field (alphabetical, so the result is stable).
func toAppError(err error) error {
	if err == nil {
		return nil
	}

	var verrs validation.Errors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("service/auth: validating input: %w", err)
	}

	fields := make([]string, 0, len(verrs))
	for f := range verrs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	field := fields[0]
	return apperror.ValidationFailed(field, field+": "+verrs[field].Error())
}
