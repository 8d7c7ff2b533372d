package security

import (
	"Signalforge/internal/api/config"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrSecretMissing = errors.New("jwt secret is not configured")

// TokenSigner 签发与校验 HS256 Token
type TokenSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenSigner(cfg config.JWTConfig) (*TokenSigner, error) {
	if cfg.Secret == "" {
		return nil, ErrSecretMissing
	}
	return &TokenSigner{secret: []byte(cfg.Secret), issuer: cfg.Issuer, ttl: TokenExpiration, now: time.Now}, nil
}

// GenerateToken 生成一个新的 JWT Token
func (s *TokenSigner) GenerateToken(userID, workspaceID uint64, roles []string) (string, error) {
	now := s.now()
	claims := &OperatorClaims{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Roles:       roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("签名 Token 失败: %w", err)
	}
	return tokenString, nil
}

// ValidateToken 验证 Token 字符串并解析出 Claims
func (s *TokenSigner) ValidateToken(tokenString string) (*OperatorClaims, error) {
	claims := &OperatorClaims{}

	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now)}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非预期的签名方法: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("token 解析失败: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("token 无效或已过期")
	}
	return claims, nil
}
