// Package tokens выпускает и проверяет подписанные сессионные токены (HS256 JWT).
// Отзыва токенов нет: скомпрометированный токен живет до истечения TTL.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fsdevblog/bulkgate/internal/domain"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID int64           `json:"userId"`
	Role   domain.RoleType `json:"role"`
}

type GenerateArgs struct {
	UserID int64
	Role   domain.RoleType
	Issuer string
	Expire time.Duration
}

func GenerateUserJWT(args GenerateArgs, key []byte) (string, error) {
	now := time.Now()
	userClaims := UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(args.Expire)),
			Issuer:    args.Issuer,
		},
		UserID: args.UserID,
		Role:   args.Role,
	}
	token, err := generateJWT(userClaims, key)
	if err != nil {
		return "", fmt.Errorf("generating user jwt token: %s", err.Error())
	}
	return token, nil
}

// ValidateUserJWT проверяет подпись и срок действия токена. Любая проблема со структурой
// или подписью превращается в ErrTokenInvalid, истекший срок - в ErrTokenExpired.
func ValidateUserJWT(tokenString string, key []byte) (*UserClaims, error) {
	token, err := validateJWT(tokenString, new(UserClaims), key)
	if err != nil {
		return nil, fmt.Errorf("validating user jwt token: %w", err)
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// RefreshUserJWT перевыпускает токен с новым сроком действия. Работает только для
// действительного токена: продлить уже истекший токен нельзя.
func RefreshUserJWT(tokenString string, issuer string, expire time.Duration, key []byte) (string, error) {
	claims, err := ValidateUserJWT(tokenString, key)
	if err != nil {
		return "", err
	}
	return GenerateUserJWT(GenerateArgs{
		UserID: claims.UserID,
		Role:   claims.Role,
		Issuer: issuer,
		Expire: expire,
	}, key)
}

func generateJWT(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("generating jwt token: %s", err.Error())
	}

	return tokenString, nil
}

func validateJWT(tokenString string, claims jwt.Claims, key []byte) (*jwt.Token, error) {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrTokenInvalid, err.Error())
	}

	return token, nil
}
