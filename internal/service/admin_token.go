package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrAdminTokenInvalid 管理端令牌无效
	ErrAdminTokenInvalid = errors.New("admin token invalid")
	// ErrJWTSecretMissing 未配置 JWT 密钥
	ErrJWTSecretMissing = errors.New("jwt secret missing")
)

// AdminClaims 管理端 JWT 声明，Subject 为操作人标识
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// DefaultAdminRole 未指定角色时签发的令牌角色
const DefaultAdminRole = "admin"

// IssueAdminToken 签发默认角色的管理端令牌（HS256）
func IssueAdminToken(secret, subject string, expireHours int, now time.Time) (string, error) {
	return IssueAdminTokenWithRole(secret, subject, DefaultAdminRole, expireHours, now)
}

// IssueAdminTokenWithRole 签发指定角色的管理端令牌（HS256）
func IssueAdminTokenWithRole(secret, subject, role string, expireHours int, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", ErrJWTSecretMissing
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", ErrAdminTokenInvalid
	}
	role = strings.TrimSpace(role)
	if role == "" {
		role = DefaultAdminRole
	}
	if expireHours <= 0 {
		expireHours = 24
	}
	claims := AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expireHours) * time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseAdminToken 校验管理端令牌并返回声明
func ParseAdminToken(secret, tokenString string) (*AdminClaims, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrJWTSecretMissing
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &AdminClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrAdminTokenInvalid
	}
	return claims, nil
}
