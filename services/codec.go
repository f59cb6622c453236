package services

import (
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/coderepojon/authcore/domain"
	"github.com/coderepojon/authcore/errors"
)

const minSecretLen = 32

// Claims is the signed claim set carried by both credential kinds. Roles are
// present on ACCESS credentials only; a REFRESH credential never carries
// roles because the role set is re-derived from the identity store at
// rotation time.
type Claims struct {
	jwt.RegisteredClaims
	Kind  domain.TokenKind `json:"kind"`
	Roles []string         `json:"roles,omitempty"`
}

// Codec encodes and decodes the signed, expiring credentials. It is pure:
// no store or network access, fully deterministic given the same secret and
// clock.
type Codec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration

	now func() time.Time // test hook
}

// NewCodec builds a Codec signing with HS512. A missing or short secret is a
// fatal misconfiguration and returns errors.ErrSigningKey.
func NewCodec(secret, issuer string, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	if len(secret) < minSecretLen {
		return nil, errors.ErrSigningKey
	}
	return &Codec{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// Issue mints and signs a credential of the given kind. Roles are ignored
// for REFRESH credentials. Returns the encoded string and its expiry.
func (c *Codec) Issue(subject string, kind domain.TokenKind, roles []string) (string, time.Time, error) {
	now := c.now()
	ttl := c.accessTTL
	if kind == domain.TokenKindRefresh {
		ttl = c.refreshTTL
		roles = nil
	}
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Kind:  kind,
		Roles: roles,
	}

	encoded, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, errors.ErrSigningKey
	}
	return encoded, expiresAt, nil
}

// Decode verifies signature and expiry and returns the claims. It fails with
// errors.ErrExpiredCredential when the credential has expired and
// errors.ErrMalformedCredential on any structural or signature problem.
func (c *Codec) Decode(encoded string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(encoded, &Claims{}, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrExpiredCredential
		}
		return nil, errors.ErrMalformedCredential
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.ErrMalformedCredential
	}
	return claims, nil
}

// DecodeKind decodes and additionally requires the credential to be of the
// expected kind, failing with errors.ErrWrongKind otherwise. The kind is an
// explicit claim, never inferred.
func (c *Codec) DecodeKind(encoded string, want domain.TokenKind) (*Claims, error) {
	claims, err := c.Decode(encoded)
	if err != nil {
		return nil, err
	}
	if claims.Kind != want {
		return nil, errors.ErrWrongKind
	}
	return claims, nil
}

// SubjectOf returns the subject of a credential whose signature verifies,
// tolerating an elapsed expiry. Rotation uses it to bind the presented pair:
// the access half is allowed to be expired since rotation exists to replace
// it, but its signature must still check out.
func (c *Codec) SubjectOf(encoded string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.ParseWithClaims(encoded, &Claims{}, c.keyFunc)
	if err != nil {
		return "", errors.ErrMalformedCredential
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return "", errors.ErrMalformedCredential
	}
	return claims.Subject, nil
}

// KindOf returns the credential kind; same error set as Decode.
func (c *Codec) KindOf(encoded string) (domain.TokenKind, error) {
	claims, err := c.Decode(encoded)
	if err != nil {
		return "", err
	}
	return claims.Kind, nil
}

// RolesOf returns the role claims; same error set as Decode.
func (c *Codec) RolesOf(encoded string) ([]string, error) {
	claims, err := c.Decode(encoded)
	if err != nil {
		return nil, err
	}
	return claims.Roles, nil
}

func (c *Codec) keyFunc(_ *jwt.Token) (interface{}, error) {
	return c.secret, nil
}
