package token

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/taskgate/backend/domain"
)

// Claims is the signed token payload: the identity snapshot taken at login.
type Claims struct {
	UserID      string              `json:"id"`
	Username    string              `json:"username"`
	Role        domain.Role         `json:"role"`
	Permissions []domain.Capability `json:"permission"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies identity tokens with a server-held secret.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Issue builds a token carrying the user's id, username, role and current
// permission set. The permission set is a snapshot: later edits to the
// record do not change tokens already in circulation.
func (i *Issuer) Issue(user *domain.User) (string, error) {
	if user == nil {
		return "", domain.ErrInvalidPayload
	}
	now := time.Now()
	claims := Claims{
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		Permissions: user.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify decodes and validates a raw token. It performs no data access;
// the returned identity is exactly what the token was signed with.
func (i *Issuer) Verify(raw string) (*domain.Identity, error) {
	if raw == "" {
		return nil, domain.NewError(domain.ErrCodeUnauthorized, "no token provided")
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.NewError(domain.ErrCodeUnauthorized, "unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", err)
	}

	return &domain.Identity{
		ID:          claims.UserID,
		Username:    claims.Username,
		Role:        claims.Role,
		Permissions: claims.Permissions,
	}, nil
}
