package api

import (
	"DocQA/backend/go/internal/rag_service/rag/ragerr"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// kinds that only exist at the HTTP boundary
const (
	kindInternal       = "internal"
	kindUploadTooLarge = "upload_too_large"
	kindCanceled       = "canceled"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind ragerr.Kind) int {
	switch kind {
	case ragerr.UnsupportedFormat, ragerr.UnsupportedLegacyFormat, ragerr.EmptyInput, ragerr.InvalidArgument:
		return http.StatusBadRequest
	case ragerr.NotFound, ragerr.SessionNotFound:
		return http.StatusNotFound
	case ragerr.EmptyExtraction, ragerr.DecodeFailure:
		return http.StatusUnprocessableEntity
	case ragerr.CapabilityUnavailable:
		return http.StatusServiceUnavailable
	case ragerr.EmbeddingFailure, ragerr.GenerationFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes the JSON error body. Only the user-safe message leaves the process.
func (h *Handler) abortWithError(c *gin.Context, err error) {
	if e, ok := ragerr.As(err); ok {
		body := gin.H{}
		for k, v := range e.Detail {
			body[k] = v
		}
		body["error"] = e.Message
		body["kind"] = string(e.Kind)

		status := statusFor(e.Kind)
		if status >= http.StatusInternalServerError {
			h.log.WithErr(err).Error("Request failed")
		}
		c.AbortWithStatusJSON(status, body)
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error": "The request was cancelled before it finished.",
			"kind":  kindCanceled,
		})
		return
	}

	h.log.WithErr(err).Error("Unexpected error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error.",
		"kind":  kindInternal,
	})
}

func invalid(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": message,
		"kind":  string(ragerr.InvalidArgument),
	})
}
