package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/platefeed/backend/internal/logger"
	"github.com/platefeed/backend/internal/models"
)

const denylistKeyPrefix = "auth:denylist:"

// TokenClaims is the decoded identity carried by a bearer token.
type TokenClaims struct {
	UserID uint
}

// RegisterInput carries the fields of a signup request.
type RegisterInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
}

type AuthService struct {
	db        *gorm.DB
	redis     *redis.Client
	jwtSecret string
	tokenTTL  time.Duration
	log       *logger.Logger
}

func NewAuthService(db *gorm.DB, redisClient *redis.Client, jwtSecret string, tokenTTL time.Duration, log *logger.Logger) *AuthService {
	return &AuthService{
		db:        db,
		redis:     redisClient,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		log:       log,
	}
}

// Register creates a user account with a bcrypt password hash.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if in.Email == "" {
		return nil, newValidationError("email", "this field is required")
	}
	if in.Username == "" {
		return nil, newValidationError("username", "this field is required")
	}
	// "me" is routed to the profile endpoint and can never be an account name.
	if in.Username == "me" {
		return nil, newValidationError("username", "this username is reserved")
	}
	if in.Password == "" {
		return nil, newValidationError("password", "this field is required")
	}

	var existing models.User
	if err := s.db.WithContext(ctx).Where("email = ? OR username = ?", in.Email, in.Username).First(&existing).Error; err == nil {
		return nil, newConflictError("a user with this email or username already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        in.Email,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: string(hashed),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	s.log.Info("user registered", "user_id", user.ID, "username", user.Username)
	return &user, nil
}

// Login verifies the credentials and issues a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.generateToken(user.ID)
}

// Logout revokes the token by denylisting its id until it expires.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	token, err := s.parseToken(tokenString)
	if err != nil {
		return ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return ErrInvalidToken
	}

	jti, _ := claims["jti"].(string)
	if jti == "" {
		return ErrInvalidToken
	}

	ttl := s.tokenTTL
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		ttl = time.Until(exp.Time)
	}
	if ttl <= 0 {
		return nil // already expired, nothing to revoke
	}

	if s.redis == nil {
		s.log.Warn("logout without redis, token cannot be revoked")
		return nil
	}
	return s.redis.Set(ctx, denylistKeyPrefix+jti, "1", ttl).Err()
}

// SetPassword changes the user's password after verifying the current one.
func (s *AuthService) SetPassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	if newPassword == "" {
		return newValidationError("new_password", "this field is required")
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&user).Update("password_hash", string(hashed)).Error
}

// ValidateToken checks the signature, expiry and the revocation denylist.
func (s *AuthService) ValidateToken(tokenString string) (*TokenClaims, error) {
	token, err := s.parseToken(tokenString)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if jti, _ := claims["jti"].(string); jti != "" && s.redis != nil {
		if n, err := s.redis.Exists(context.Background(), denylistKeyPrefix+jti).Result(); err == nil && n > 0 {
			return nil, ErrInvalidToken
		}
	}

	rawID, ok := claims["user_id"].(float64)
	if !ok || rawID < 1 {
		return nil, ErrInvalidToken
	}

	return &TokenClaims{UserID: uint(rawID)}, nil
}

func (s *AuthService) generateToken(userID uint) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"jti":     uuid.NewString(),
		"exp":     time.Now().Add(s.tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AuthService) parseToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
}
