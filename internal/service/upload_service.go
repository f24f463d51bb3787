package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/guarderia-api/pkg/errors"
)

// IDSide names which face of an identity document a photo shows.
type IDSide string

const (
	IDSideFront IDSide = "frente"
	IDSideBack  IDSide = "reverso"
)

var defaultUploadMIMEs = []string{"image/jpeg", "image/png"}

type photoStorage interface {
	Save(filename string, data []byte) (string, error)
}

// UploadConfig bounds accepted identity photos.
type UploadConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	MaxDimension int
	JPEGQuality  int
}

// UploadResult describes a stored photo.
type UploadResult struct {
	Path        string `json:"path"`
	Side        IDSide `json:"side"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// UploadService stores third party identity document photos.
type UploadService struct {
	storage photoStorage
	allowed map[string]struct{}
	logger  *zap.Logger
	cfg     UploadConfig
	newID   func() string
}

// NewUploadService constructs the upload service.
func NewUploadService(storage photoStorage, logger *zap.Logger, cfg UploadConfig) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = 1600
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 85
	}
	mimes := cfg.AllowedMIMEs
	if len(mimes) == 0 {
		mimes = defaultUploadMIMEs
	}
	allowed := make(map[string]struct{}, len(mimes))
	for _, m := range mimes {
		allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return &UploadService{
		storage: storage,
		allowed: allowed,
		logger:  logger,
		cfg:     cfg,
		newID:   func() string { return uuid.NewString() },
	}
}

// ParseIDSide accepts the Spanish side names plus front/back.
func ParseIDSide(raw string) (IDSide, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "frente", "front":
		return IDSideFront, nil
	case "reverso", "back":
		return IDSideBack, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "side must be frente or reverso")
	}
}

// StoreIDPhoto validates, normalizes and stores one photo. The stored file is
// always a JPEG re-encoded from the decoded image, so EXIF data is dropped.
func (s *UploadService) StoreIDPhoto(ctx context.Context, side IDSide, r io.Reader) (*UploadResult, error) {
	if side != IDSideFront && side != IDSideBack {
		return nil, appErrors.Clone(appErrors.ErrValidation, "side must be frente or reverso")
	}
	raw, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxFileSize+1))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "failed to read upload")
	}
	if len(raw) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if int64(len(raw)) > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxFileSize))
	}

	contentType := http.DetectContentType(raw)
	if _, ok := s.allowed[contentType]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported file type "+contentType)
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is not a readable image")
	}
	bounds := img.Bounds()
	if bounds.Dx() > s.cfg.MaxDimension || bounds.Dy() > s.cfg.MaxDimension {
		img = imaging.Fit(img, s.cfg.MaxDimension, s.cfg.MaxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(s.cfg.JPEGQuality)); err != nil {
		return nil, appErrors.Internal(err, "failed to encode image")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.storage.Save(fmt.Sprintf("%s/%s.jpg", side, s.newID()), buf.Bytes())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to store image")
	}
	final := img.Bounds()
	s.logger.Info("identity photo stored",
		zap.String("path", path),
		zap.String("side", string(side)),
		zap.Int("bytes", buf.Len()),
	)
	return &UploadResult{
		Path:        path,
		Side:        side,
		ContentType: "image/jpeg",
		Size:        buf.Len(),
		Width:       final.Dx(),
		Height:      final.Dy(),
	}, nil
}
