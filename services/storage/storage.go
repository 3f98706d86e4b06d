package storage

import (
	"context"
	"fmt"

	"courtside/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ProofStorage persists payment proof images and returns a URL the venue
// owner can review.
type ProofStorage interface {
	UploadProof(ctx context.Context, localFilePath, bookingID string) (string, error)
	DeleteProof(ctx context.Context, publicID string) error
}

// CloudinaryStorage stores payment proofs in Cloudinary under a per-booking
// public id, so re-uploads replace the previous proof instead of piling up.
type CloudinaryStorage struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryStorage initializes the storage from the application config.
func NewCloudinaryStorage() (*CloudinaryStorage, error) {
	cloudName := config.AppConfig.CloudinaryCloudName
	apiKey := config.AppConfig.CloudinaryAPIKey
	apiSecret := config.AppConfig.CloudinaryAPISecret
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("cloudinary credentials not set in configuration")
	}

	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("initialize cloudinary: %w", err)
	}
	return &CloudinaryStorage{cld: cld}, nil
}

func (s *CloudinaryStorage) UploadProof(ctx context.Context, localFilePath, bookingID string) (string, error) {
	overwrite := true
	result, err := s.cld.Upload.Upload(ctx, localFilePath, uploader.UploadParams{
		Folder:    "payment-proofs",
		PublicID:  bookingID,
		Overwrite: &overwrite,
	})
	if err != nil {
		return "", fmt.Errorf("upload payment proof: %w", err)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("upload payment proof: no URL returned")
	}
	return result.SecureURL, nil
}

func (s *CloudinaryStorage) DeleteProof(ctx context.Context, publicID string) error {
	if _, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID}); err != nil {
		return fmt.Errorf("delete payment proof: %w", err)
	}
	return nil
}
