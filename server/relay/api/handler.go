package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	commonlog "relay_server/server/common/log"
	"relay_server/server/common/transport/httpresp"
	"relay_server/server/relay/domain"
	"relay_server/server/relay/service"
)

type Handler struct {
	transfers      *service.TransferService
	maxUploadBytes int64
	ping           func(context.Context) error
}

func NewHandler(transfers *service.TransferService, maxUploadBytes int64, ping func(context.Context) error) *Handler {
	return &Handler{transfers: transfers, maxUploadBytes: maxUploadBytes, ping: ping}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api")
	{
		api.POST("/upload", h.upload)
		api.GET("/retrieve/:id", h.retrieve)
		api.GET("/download/:file_id", h.download)
	}
}

func (h *Handler) health(c *gin.Context) {
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpresp.NewErrorResponse(err.Error()))
			return
		}
	}
	c.JSON(http.StatusOK, httpresp.NewOKResponse())
}

func (h *Handler) upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	text := c.PostForm("text")

	var upload *domain.Upload
	fh, err := c.FormFile("file")
	switch {
	case err == nil:
		f, openErr := fh.Open()
		if openErr != nil {
			commonlog.Errorf("open multipart file: %v", openErr)
			c.JSON(http.StatusInternalServerError, httpresp.NewErrorResponse(httpresp.ErrStorageFailure))
			return
		}
		defer f.Close()
		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		upload = &domain.Upload{Reader: f, Filename: fh.Filename, ContentType: contentType, Size: fh.Size}
	case errors.Is(err, http.ErrMissingFile):
		// text-only transfer
	default:
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(httpresp.ErrBadUpload))
		return
	}

	code, err := h.transfers.CreateTransfer(c.Request.Context(), text, upload)
	if err != nil {
		commonlog.Errorf("create transfer: %v", err)
		c.JSON(http.StatusInternalServerError, httpresp.NewErrorResponse(httpresp.ErrStorageFailure))
		return
	}
	c.JSON(http.StatusOK, UploadResponse{UniqueID: code})
}

func (h *Handler) retrieve(c *gin.Context) {
	t, err := h.transfers.FetchTransfer(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCode):
			c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(httpresp.ErrMalformedCode))
		case errors.Is(err, service.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, httpresp.NewErrorResponse(httpresp.ErrTransferNotFound))
		default:
			commonlog.Errorf("fetch transfer: %v", err)
			c.JSON(http.StatusInternalServerError, httpresp.NewErrorResponse(httpresp.ErrStorageFailure))
		}
		return
	}
	c.JSON(http.StatusOK, RetrieveResponse{Text: t.Text, Filename: t.Filename, FileID: t.BlobID})
}

func (h *Handler) download(c *gin.Context) {
	rc, info, err := h.transfers.OpenDownload(c.Request.Context(), c.Param("file_id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidReference):
			c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(httpresp.ErrMalformedFileID))
		case errors.Is(err, service.ErrBlobNotFound):
			c.JSON(http.StatusNotFound, httpresp.NewErrorResponse(httpresp.ErrFileNotFound))
		default:
			commonlog.Errorf("open download: %v", err)
			c.JSON(http.StatusInternalServerError, httpresp.NewErrorResponse(httpresp.ErrStorageFailure))
		}
		return
	}
	defer rc.Close()

	// A disconnecting downloader terminates the copy; the client restarts
	// the request, nothing is retried here.
	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", info.Filename),
	}
	c.DataFromReader(http.StatusOK, info.Size, info.ContentType, rc, extraHeaders)
}
