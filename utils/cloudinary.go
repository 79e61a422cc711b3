package utils

import (
	"fmt"

	"proxo/config"
	"proxo/services/storage"

	"github.com/cloudinary/cloudinary-go/v2"
)

// Cloudinary initializes and returns a Cloudinary-based photo store from CLOUDINARY_URL.
func Cloudinary() (storage.PhotoStore, error) {
	if config.AppConfig.CloudinaryURL == "" {
		return nil, fmt.Errorf("utils.Cloudinary: CLOUDINARY_URL is not set")
	}

	cld, err := cloudinary.NewFromURL(config.AppConfig.CloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("utils.Cloudinary: failed to initialize Cloudinary: %w", err)
	}
	return storage.NewCloudinaryPhotoStore(cld), nil
}
