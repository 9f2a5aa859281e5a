// Package auth implements the token collaborator for the chat core: HS256
// bearer tokens carrying the (username, role, id) triple, plus the bcrypt
// password helpers used by the login surface.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"

	"github.com/kingodev/socialchat/internal/types"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	usernameClaim = "sub"
	roleClaim     = "role"
	userIdClaim   = "id"
	expClaim      = "exp"
)

type TokenService struct {
	signingKey []byte
}

func NewTokenService(signingKey []byte) *TokenService {
	return &TokenService{signingKey: signingKey}
}

func (ts *TokenService) CreateToken(user types.User, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		usernameClaim: user.Username,
		roleClaim:     string(user.Role),
		userIdClaim:   user.Id,
		expClaim:      time.Now().Add(exp).Unix(),
	})

	return token.SignedString(ts.signingKey)
}

// VerifyToken decodes tokenString and returns the identity triple it carries.
// A token missing any of username, role or id is rejected.
func (ts *TokenService) VerifyToken(tokenString string) (types.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	})
	if err != nil {
		return types.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return types.User{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return types.User{}, fmt.Errorf("%w: unexpected claims type", ErrInvalidToken)
	}

	username, _ := claims[usernameClaim].(string)
	role, _ := claims[roleClaim].(string)
	userId, idPresent := claims[userIdClaim].(float64)
	if username == "" || role == "" || !idPresent {
		return types.User{}, fmt.Errorf("%w: incomplete claims", ErrInvalidToken)
	}

	return types.User{
		Id:       int(userId),
		Username: username,
		Role:     types.Role(role),
	}, nil
}

func HashPassword(passwd string) (string, error) {
	passwdHash, err := bcrypt.GenerateFromPassword([]byte(passwd), bcrypt.DefaultCost)
	return string(passwdHash), err
}

func VerifyPassword(passwdHash, passwd string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(passwdHash), []byte(passwd))
	return err == nil
}
