// Image HTTP handlers.
//
// This file exposes the node image endpoints:
//   - POST /graphs/{graph}/nodes/{id}/images           (multipart upload)
//   - GET  /graphs/{graph}/nodes/{id}/images           (list assets)
//   - POST /graphs/{graph}/nodes/{id}/images/generate  (AI illustration)
//
// Uploads are multipart form data under the "image" field. Stored assets are
// served directly from the blob store via their public URLs; the API only
// returns metadata.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
	"github.com/inquirycomplex/go-wiki-backend/internal/llm"
	"github.com/inquirycomplex/go-wiki-backend/internal/prompt"
	"github.com/inquirycomplex/go-wiki-backend/internal/services"
)

// maxImageBytes caps a single image upload (8 MiB).
const maxImageBytes = 8 << 20

// ImageResponse wraps a single stored image asset.
type ImageResponse struct {
	Image *domain.ImageAsset `json:"image"`
}

// ListImagesResponse wraps a node's image assets.
type ListImagesResponse struct {
	Images []domain.ImageAsset `json:"images"`
}

// UploadImage godoc
// @ID          uploadImage
// @Summary     Upload a node image
// @Description Stores an image for a node and marks the node as illustrated. The file is sent as multipart form data under the "image" field.
// @Tags        Images
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       graph  path      string  true  "Graph name"     example(main)
// @Param       id     path      string  true  "Node ID (UUID)" format(uuid)
// @Param       image  formData  file    true  "Image file"
//
// @Success     201  {object}  handlers.ImageResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing or empty file"
// @Failure     404  {object}  handlers.ErrorResponse  "Node not found"
// @Failure     413  {object}  handlers.ErrorResponse  "File too large"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /graphs/{graph}/nodes/{id}/images [post]
func (h *Handlers) UploadImage(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "image file required")
		return
	}
	if fh.Size > maxImageBytes {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "image exceeds the upload limit")
		return
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable image file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil || int64(len(data)) > maxImageBytes {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "image exceeds the upload limit")
		return
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	asset, err := h.imgSvc.Upload(c.Request.Context(), c.Param("graph"), c.Param("id"), fh.Filename, data, contentType)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyUpload):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "image file is empty")
		case errors.Is(err, services.ErrNodeNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "node not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, ImageResponse{Image: asset})
}

// ListImages godoc
// @ID          listImages
// @Summary     List a node's images
// @Description Returns the image assets stored for a node. Listing is best-effort display data: a blob store failure yields an empty list rather than an error.
// @Tags        Images
// @Produce     json
//
// @Param       graph  path  string  true  "Graph name"     example(main)
// @Param       id     path  string  true  "Node ID (UUID)" format(uuid)
//
// @Success     200  {object}  handlers.ListImagesResponse
// @Router      /graphs/{graph}/nodes/{id}/images [get]
func (h *Handlers) ListImages(c *gin.Context) {
	images := h.imgSvc.List(c.Request.Context(), c.Param("graph"), c.Param("id"))
	if images == nil {
		images = []domain.ImageAsset{}
	}
	ok(c, http.StatusOK, ListImagesResponse{Images: images})
}

// GenerateImage godoc
// @ID          generateImage
// @Summary     Generate a node illustration
// @Description Asks the image model for an illustration of the node and stores it like a user upload.
// @Tags        Images
// @Produce     json
//
// @Param       graph  path  string  true  "Graph name"     example(main)
// @Param       id     path  string  true  "Node ID (UUID)" format(uuid)
//
// @Success     201  {object}  handlers.ImageResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Node or image template not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Model gateway failure"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /graphs/{graph}/nodes/{id}/images/generate [post]
func (h *Handlers) GenerateImage(c *gin.Context) {
	asset, err := h.imgSvc.Generate(c.Request.Context(), c.Param("graph"), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNodeNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "node not found")
		case errors.Is(err, prompt.ErrTemplateNotFound):
			fail(c, http.StatusNotFound, ErrCodeTemplateNotFound, "image template not found")
		case errors.Is(err, llm.ErrGateway):
			fail(c, http.StatusBadGateway, ErrCodeGatewayError, "model gateway failure")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, ImageResponse{Image: asset})
}
