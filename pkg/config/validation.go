package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks struct tags and the rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	files, err := filepath.Abs(cfg.Storage.FilesDir)
	if err != nil {
		return fmt.Errorf("storage.files_dir: %w", err)
	}
	gallery, err := filepath.Abs(cfg.Storage.GalleryDir)
	if err != nil {
		return fmt.Errorf("storage.gallery_dir: %w", err)
	}
	if files == gallery {
		return errors.New("storage: files_dir and gallery_dir must differ")
	}
	if isWithin(files, gallery) || isWithin(gallery, files) {
		return errors.New("storage: files_dir and gallery_dir must not be nested")
	}

	if cfg.Storage.MaxUserSpaceBytes <= 0 {
		return fmt.Errorf("storage.max_user_space: must be a positive size, got %q", cfg.Storage.MaxUserSpace)
	}

	if cfg.Server.BodyLimit != "" && cfg.Server.BodyLimitBytes <= 0 {
		return fmt.Errorf("server.body_limit: must be a positive size, got %q", cfg.Server.BodyLimit)
	}

	return nil
}

func isWithin(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
