package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"sudooom.fedi.sync/internal/model"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
)

const issuer = "fedisync"

// Claims JWT 声明，一个令牌只对应一个已登录账号
type Claims struct {
	AccountID model.AccountID `json:"account_id,string"`
	jwt.RegisteredClaims
}

// Token 签发结果
type Token struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Service JWT 服务
type Service struct {
	secretKey    []byte
	accessExpire time.Duration
	now          func() time.Time
}

// NewService 创建 JWT 服务
func NewService(secretKey string, accessExpire time.Duration) *Service {
	return &Service{
		secretKey:    []byte(secretKey),
		accessExpire: accessExpire,
		now:          time.Now,
	}
}

// Generate 为账号签发访问令牌
func (s *Service) Generate(accountID model.AccountID) (*Token, error) {
	now := s.now()
	expiresAt := now.Add(s.accessExpire)
	claims := &Claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return nil, err
	}
	return &Token{AccessToken: signed, ExpiresAt: expiresAt.Unix()}, nil
}

// Validate 验证访问令牌
func (s *Service) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.AccountID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// AccessExpire 访问令牌有效期
func (s *Service) AccessExpire() time.Duration {
	return s.accessExpire
}
