package routes

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sidhant-sriv/smart-renter/apperr"
	"github.com/sidhant-sriv/smart-renter/models"
)

// PhotoURLPrefix is the public path uploaded photos are served under.
const PhotoURLPrefix = "/uploads"

const photoField = "photos"

var photoExtensions = map[string]struct{}{".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}}

var photoTypes = []string{"image/jpeg", "image/png", "image/gif"}

// PhotoStore saves listing photos to a local directory.
type PhotoStore struct {
	Dir      string
	MaxBytes int64
	Logger   *slog.Logger
}

// Save stores the photos of a multipart request and returns their public
// references. Nothing is kept when any file is rejected.
func (s *PhotoStore) Save(c *gin.Context) ([]string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, apperr.Validation("Invalid multipart form")
	}
	files := form.File[photoField]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > models.MaxPhotos {
		return nil, apperr.Validationf("At most %d photos can be uploaded", models.MaxPhotos)
	}
	for _, fh := range files {
		if err := s.check(fh); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, apperr.Store("Failed to store photos", err)
	}
	refs := make([]string, 0, len(files))
	for _, fh := range files {
		name := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
		if err := c.SaveUploadedFile(fh, filepath.Join(s.Dir, name)); err != nil {
			s.Remove(refs)
			return nil, apperr.Store("Failed to store photos", err)
		}
		refs = append(refs, path.Join(PhotoURLPrefix, name))
	}
	return refs, nil
}

// Remove deletes previously saved photos, for requests that failed after
// the upload.
func (s *PhotoStore) Remove(refs []string) {
	for _, ref := range refs {
		name := path.Base(ref)
		if err := os.Remove(filepath.Join(s.Dir, name)); err != nil && !os.IsNotExist(err) {
			s.Logger.Warn("failed to remove uploaded photo", "photo", ref, "error", err)
		}
	}
}

func (s *PhotoStore) check(fh *multipart.FileHeader) error {
	if _, ok := photoExtensions[strings.ToLower(filepath.Ext(fh.Filename))]; !ok {
		return apperr.Validationf("Only image files are allowed: %s", fh.Filename)
	}
	if s.MaxBytes > 0 && fh.Size > s.MaxBytes {
		return apperr.Validationf("Photo %s exceeds %d bytes", fh.Filename, s.MaxBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return apperr.Validationf("Unreadable photo: %s", fh.Filename)
	}
	defer f.Close()
	mt, err := mimetype.DetectReader(f)
	if err != nil || !mimetype.EqualsAny(mt.String(), photoTypes...) {
		return apperr.Validationf("Only image files are allowed: %s", fh.Filename)
	}
	return nil
}
