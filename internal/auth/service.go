package auth

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid password")
	ErrLoginDisabled      = errors.New("admin login is not configured")
)

const adminSubject = "admin"

// Service checks the shared admin password. There are no user accounts;
// staff identify themselves by picking a name from the roster.
type Service struct {
	hash   []byte
	issuer *Issuer
}

func NewService(passwordHash string, issuer *Issuer) *Service {
	return &Service{hash: []byte(passwordHash), issuer: issuer}
}

// LOGIN
func (s *Service) Login(password string) (string, error) {
	if len(s.hash) == 0 {
		return "", ErrLoginDisabled
	}

	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.issuer.GenerateToken(adminSubject, RoleAdmin)
}

// HashPassword produces a value for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hashed), nil
}
