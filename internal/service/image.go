package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/platefeed/backend/config"
	"github.com/platefeed/backend/internal/logger"
)

const dataURIPrefix = "data:image/"

// ImageService decodes uploaded recipe images and stores them under the
// media directory, or in S3 when a bucket is configured.
type ImageService struct {
	mediaDir string
	s3Config *config.S3Config
	log      *logger.Logger
}

func NewImageService(mediaDir string, s3Config *config.S3Config, log *logger.Logger) *ImageService {
	return &ImageService{
		mediaDir: mediaDir,
		s3Config: s3Config,
		log:      log,
	}
}

// StoreDataURI decodes a base64 data-URI ("data:image/<ext>;base64,<payload>")
// and stores the payload. It returns the public path of the stored file.
func (s *ImageService) StoreDataURI(ctx context.Context, dataURI string) (string, error) {
	if !strings.HasPrefix(dataURI, dataURIPrefix) {
		return "", newValidationError("image", "expected a data:image base64 URI")
	}

	header, payload, found := strings.Cut(dataURI, ";base64,")
	if !found {
		return "", newValidationError("image", "expected a base64-encoded image payload")
	}
	ext := strings.TrimPrefix(header, dataURIPrefix)
	if ext == "" || strings.ContainsAny(ext, "/\\.") {
		return "", newValidationError("image", "unrecognized image format")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", newValidationError("image", "invalid base64 payload")
	}

	return s.store(ctx, data, ext)
}

// StoreUpload stores a multipart file upload, taking the extension from the
// submitted filename.
func (s *ImageService) StoreUpload(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	ext := strings.TrimPrefix(filepath.Ext(fileHeader.Filename), ".")
	if ext == "" {
		return "", newValidationError("image", "uploaded file has no extension")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}

	return s.store(ctx, data, ext)
}

func (s *ImageService) store(ctx context.Context, data []byte, ext string) (string, error) {
	fileName := fmt.Sprintf("recipes/%s.%s", uuid.NewString(), ext)

	if s.s3Config != nil && s.s3Config.BucketName != "" {
		return s.uploadToS3(ctx, data, fileName, ext)
	}

	fullPath := filepath.Join(s.mediaDir, filepath.FromSlash(fileName))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	return "/media/" + fileName, nil
}

func (s *ImageService) uploadToS3(ctx context.Context, data []byte, fileName, ext string) (string, error) {
	_, err := s.s3Config.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Config.BucketName),
		Key:         aws.String(fileName),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/" + ext),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	url := fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.s3Config.BucketName, fileName)
	s.log.Info("uploaded image to S3", "url", url)
	return url, nil
}
