package handler

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/guarderia-api/internal/service"
	appErrors "github.com/noah-isme/guarderia-api/pkg/errors"
	"github.com/noah-isme/guarderia-api/pkg/response"
)

type uploadService interface {
	StoreIDPhoto(ctx context.Context, side service.IDSide, r io.Reader) (*service.UploadResult, error)
}

// UploadHandler receives identity document photos of third parties.
type UploadHandler struct {
	uploads uploadService
	logger  *zap.Logger
}

// NewUploadHandler constructs the handler.
func NewUploadHandler(uploads uploadService, logger *zap.Logger) *UploadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadHandler{uploads: uploads, logger: logger}
}

// UploadThirdPartyID godoc
// @Summary Upload a third party identity photo
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param side formData string true "frente or reverso"
// @Param file formData file true "Photo (JPEG or PNG)"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /uploads/third-party-ids [post]
func (h *UploadHandler) UploadThirdPartyID(c *gin.Context) {
	side, err := service.ParseIDSide(c.PostForm("side"))
	if err != nil {
		response.Error(c, err)
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "failed to read upload"))
		return
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			h.logger.Debug("failed to close upload", zap.Error(cerr))
		}
	}()

	res, err := h.uploads.StoreIDPhoto(c.Request.Context(), side, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}
