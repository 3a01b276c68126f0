package handlers

import (
	"github.com/anjiri1684/edutech_marketplace/services"
	"github.com/gofiber/fiber/v2"
)

// UploadSigner signs direct browser uploads.
type UploadSigner interface {
	SignUpload(folder string) (*services.UploadSignature, error)
}

type UploadHandler struct {
	signer UploadSigner
}

func NewUploadHandler(signer UploadSigner) *UploadHandler {
	return &UploadHandler{signer: signer}
}

// Signature lets a teacher push course media straight to storage.
func (h *UploadHandler) Signature(c *fiber.Ctx) error {
	if h.signer == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "File uploads are not configured")
	}

	sig, err := h.signer.SignUpload(services.FolderCourseMedia)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to sign upload params")
	}
	return success(c, fiber.StatusOK, "Upload signature generated", sig)
}
