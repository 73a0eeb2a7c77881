package api

import (
	"DocQA/backend/go/internal/rag_service/service"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"DocQA/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Service is what the HTTP layer needs from the document QA service.
type Service interface {
	Upload(ctx context.Context, fileName string, r io.Reader) (*service.SessionInfo, error)
	Info(id string) (*service.SessionInfo, error)
	Delete(ctx context.Context, id string) bool
	Chat(ctx context.Context, id, question string) (*service.ChatResult, error)
	Search(ctx context.Context, id, question string, topK int) (*service.SearchResult, error)
	FreeChat(ctx context.Context, systemPrompt, userMessage string) (string, error)
	Formats() service.FormatsInfo
}

// Handler exposes Service over REST.
type Handler struct {
	svc            Service
	maxUploadBytes int64
	log            *logger.Logger
}

// NewHandler creates a Handler. maxUploadBytes <= 0 disables the upload size limit.
func NewHandler(svc Service, maxUploadBytes int64, log *logger.Logger) *Handler {
	return &Handler{svc: svc, maxUploadBytes: maxUploadBytes, log: log}
}

// NewRouter returns a gin engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.log))
	h.Register(router)
	return router
}

// Register adds the routes to r.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.GET("/health", h.health)
		api.GET("/formats", h.formats)
		api.POST("/upload", h.upload)
		api.POST("/chat", h.freeChat)

		api.GET("/sessions/:id", h.info)
		api.DELETE("/sessions/:id", h.delete)
		api.POST("/sessions/:id/chat", h.chat)
		api.POST("/sessions/:id/search", h.search)
	}
}

type chatRequest struct {
	Question string `json:"question"`
}

type searchRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

type freeChatRequest struct {
	SystemPrompt string `json:"system_prompt"`
	UserMessage  string `json:"user_message"`
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) formats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Formats())
}

func (h *Handler) upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	if h.maxUploadBytes > 0 && c.Request.ContentLength > h.maxUploadBytes {
		h.tooLarge(c)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.tooLarge(c)
			return
		}
		invalid(c, "Send the document as a multipart form field named \"file\".")
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	defer f.Close()

	info, err := h.svc.Upload(c.Request.Context(), fh.Filename, f)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) tooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
		"error": fmt.Sprintf("The upload is larger than the %d MB limit.", max(h.maxUploadBytes>>20, 1)),
		"kind":  kindUploadTooLarge,
	})
}

func (h *Handler) info(c *gin.Context) {
	info, err := h.svc.Info(c.Param("id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) delete(c *gin.Context) {
	deleted := h.svc.Delete(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "The body must be JSON with a \"question\" field.")
		return
	}

	res, err := h.svc.Chat(c.Request.Context(), c.Param("id"), req.Question)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "The body must be JSON with a \"question\" field.")
		return
	}
	if req.TopK < 0 {
		invalid(c, "top_k must not be negative.")
		return
	}

	res, err := h.svc.Search(c.Request.Context(), c.Param("id"), req.Question, req.TopK)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) freeChat(c *gin.Context) {
	var req freeChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "The body must be JSON with a \"user_message\" field.")
		return
	}

	answer, err := h.svc.FreeChat(c.Request.Context(), req.SystemPrompt, req.UserMessage)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.String(http.StatusOK, answer)
}

// requestLogger logs one line per request through the service logger.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("HTTP request failed")
			return
		}
		entry.Info("HTTP request")
	}
}
