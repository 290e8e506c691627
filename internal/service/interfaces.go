package service

import (
	"context"
	"mime/multipart"

	"github.com/platefeed/backend/internal/models"
)

// IAuthService is the authentication surface consumed by handlers and the
// auth middleware.
type IAuthService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, tokenString string) error
	SetPassword(ctx context.Context, userID uint, currentPassword, newPassword string) error
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// IImageService stores recipe images submitted as data URIs or uploads.
type IImageService interface {
	StoreDataURI(ctx context.Context, dataURI string) (string, error)
	StoreUpload(ctx context.Context, fileHeader *multipart.FileHeader) (string, error)
}

var (
	_ IAuthService  = (*AuthService)(nil)
	_ IImageService = (*ImageService)(nil)
)
