package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ProfilePhotoFolder is where profile photos are stored.
const ProfilePhotoFolder = "proxo/profile-photos"

// PhotoStore stores profile photos and returns their public URL.
type PhotoStore interface {
	UploadProfilePhoto(ctx context.Context, username string, photo io.Reader) (string, error)
	DeleteProfilePhoto(ctx context.Context, username string) error
}

// CloudinaryPhotoStore implements PhotoStore on Cloudinary.
type CloudinaryPhotoStore struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryPhotoStore creates a store over an initialised Cloudinary client.
func NewCloudinaryPhotoStore(cld *cloudinary.Cloudinary) *CloudinaryPhotoStore {
	return &CloudinaryPhotoStore{cld: cld}
}

func profilePublicID(username string) string {
	return "profile_" + username
}

// UploadProfilePhoto uploads photo under a per-user public ID, replacing any
// previous one, and returns its HTTPS URL.
func (s *CloudinaryPhotoStore) UploadProfilePhoto(ctx context.Context, username string, photo io.Reader) (string, error) {
	params := uploader.UploadParams{
		Folder:   ProfilePhotoFolder,
		PublicID: profilePublicID(username),
	}
	result, err := s.cld.Upload.Upload(ctx, photo, params)
	if err != nil {
		return "", fmt.Errorf("CloudinaryPhotoStore: failed to upload photo: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("CloudinaryPhotoStore: upload rejected: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("CloudinaryPhotoStore: no secure URL returned")
	}
	return result.SecureURL, nil
}

// DeleteProfilePhoto removes the user's photo.
func (s *CloudinaryPhotoStore) DeleteProfilePhoto(ctx context.Context, username string) error {
	_, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID: ProfilePhotoFolder + "/" + profilePublicID(username),
	})
	if err != nil {
		return fmt.Errorf("CloudinaryPhotoStore: failed to delete photo: %w", err)
	}
	return nil
}
