package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fabric-catalog/internal/domain"
	"fabric-catalog/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for hashing a plaintext admin password at start-up
	BcryptCost = 10

	DefaultTokenExpiration = 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
)

// AuthService signs the admin in and checks issued tokens
type AuthService interface {
	Login(ctx context.Context, email, password string) (token string, admin *domain.Admin, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims represents the JWT claims. The subject is the admin id.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	credentials repository.CredentialStore
	jwtSecret   string
	expiration  time.Duration
	now         func() time.Time
}

// NewAuthService creates a new instance of AuthService. A zero expiration
// falls back to DefaultTokenExpiration.
func NewAuthService(credentials repository.CredentialStore, jwtSecret string, expiration time.Duration) AuthService {
	if expiration <= 0 {
		expiration = DefaultTokenExpiration
	}
	return &authService{
		credentials: credentials,
		jwtSecret:   jwtSecret,
		expiration:  expiration,
		now:         time.Now,
	}
}

// NewAdmin builds the admin record from configuration. passwordHash wins over
// password; a plaintext password is hashed here so it never lives in memory
// unhashed past start-up.
func NewAdmin(email, name, passwordHash, password string) (domain.Admin, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.Admin{}, errors.New("admin email is required")
	}

	if passwordHash == "" {
		if password == "" {
			return domain.Admin{}, errors.New("admin password or password hash is required")
		}
		hashed, err := HashPassword(password)
		if err != nil {
			return domain.Admin{}, fmt.Errorf("failed to hash admin password: %w", err)
		}
		passwordHash = hashed
	} else if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return domain.Admin{}, fmt.Errorf("admin password hash is not a bcrypt hash: %w", err)
	}

	if name == "" {
		name = "Admin"
	}

	return domain.Admin{
		ID:           "admin",
		Email:        email,
		Name:         name,
		Role:         domain.RoleAdmin,
		PasswordHash: passwordHash,
	}, nil
}

// Login checks the credential and returns a signed token
func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.Admin, error) {
	admin, err := s.credentials.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAdminNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to find admin: %w", err)
	}

	if err := verifyPassword(admin.PasswordHash, password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(admin)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return token, admin, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// HashPassword hashes a password using bcrypt with BcryptCost
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func (s *authService) generateToken(admin *domain.Admin) (string, error) {
	now := s.now()
	claims := &Claims{
		Email: admin.Email,
		Role:  admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
