package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"secretsanta/internal/models"
	"secretsanta/internal/services"
	"secretsanta/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

// Messages shown to the people using the draw page.
const (
	messageTooFewParticipants      = "É necessário pelo menos 2 participantes"
	messageTooFewValidParticipants = "É necessário pelo menos 2 participantes válidos"
	messageDrawIDRequired          = "ID do sorteio é obrigatório"
	messageClaimFieldsRequired     = "ID do sorteio e nome são obrigatórios"
	messageDrawNotFound            = "Sorteio não encontrado"
	messageAlreadyClaimed          = "Você já foi sorteado!"
	messageNotAParticipant         = "Seu nome não está na lista de participantes"
	messagePoolExhausted           = "Não há mais pessoas disponíveis para sortear"
	messageInternalError           = "Erro ao processar o sorteio"
)

// DrawService is the part of services.DrawService the handlers call.
type DrawService interface {
	CreateDraw(ctx context.Context, participants []string) (*models.Draw, storage.Persistence, error)
	GetDraw(ctx context.Context, id string) (*models.Draw, error)
	ClaimAssignment(ctx context.Context, id, name string) (*services.ClaimResult, error)
}

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	service DrawService
	baseURL string
}

// NewHTTPHandler creates a new HTTPHandler. baseURL prefixes share links; when
// empty the link is built from the incoming request.
func NewHTTPHandler(service DrawService, baseURL string) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// NewRouter returns a gin.Engine with every route registered.
func NewRouter(h *HTTPHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())
	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)

	api := router.Group("/api/sorteios")
	api.POST("", h.CreateDraw)
	api.GET("", h.GetDraw)
	api.POST("/sortear", h.ClaimAssignment)
}

// RequestLogger logs every request with its status and duration.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Infof("%s %s -> %d (%dms)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Milliseconds())
	}
}

// Health answers load balancer probes.
func (h *HTTPHandler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// CreateDraw handles POST /api/sorteios.
func (h *HTTPHandler) CreateDraw(c *gin.Context) {
	var req models.CreateDrawRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Participants) < models.MinParticipants {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: messageTooFewParticipants})
		return
	}

	participants := models.CleanParticipants(req.Participants)
	if len(participants) < models.MinParticipants {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: messageTooFewValidParticipants})
		return
	}

	d, persistence, err := h.service.CreateDraw(c.Request.Context(), participants)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CreateDrawResponse{
		Draw:    *d,
		Link:    h.shareLink(c, d.ID),
		Storage: persistence.String(),
	})
}

// GetDraw handles GET /api/sorteios?id=. Recipients are never part of the answer.
func (h *HTTPHandler) GetDraw(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: messageDrawIDRequired})
		return
	}

	d, err := h.service.GetDraw(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewDrawStatus(d))
}

// ClaimAssignment handles POST /api/sorteios/sortear.
func (h *HTTPHandler) ClaimAssignment(c *gin.Context) {
	var req models.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: messageClaimFieldsRequired})
		return
	}
	id := strings.TrimSpace(req.DrawID)
	name := strings.TrimSpace(req.Name)
	if id == "" || name == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: messageClaimFieldsRequired})
		return
	}

	result, err := h.service.ClaimAssignment(c.Request.Context(), id, name)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ClaimResponse{
		Recipient:    result.Recipient,
		ClaimedCount: result.ClaimedCount,
		TotalCount:   result.TotalCount,
		Complete:     result.Complete,
		Storage:      result.Persistence.String(),
	})
}

// handleError maps service errors to a status code and message.
func (h *HTTPHandler) handleError(c *gin.Context, err error) {
	var claimed *services.AlreadyClaimedError

	switch {
	case errors.As(err, &claimed):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: messageAlreadyClaimed, Recipient: claimed.Recipient})
	case errors.Is(err, models.ErrTooFewParticipants),
		errors.Is(err, models.ErrBlankParticipant),
		errors.Is(err, models.ErrDuplicateParticipant):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: messageTooFewValidParticipants})
	case errors.Is(err, services.ErrDrawNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: messageDrawNotFound})
	case errors.Is(err, services.ErrNotAParticipant):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: messageNotAParticipant})
	case errors.Is(err, services.ErrPoolExhausted):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: messagePoolExhausted})
	default:
		logger.Errorf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: messageInternalError})
	}
}

func (h *HTTPHandler) shareLink(c *gin.Context, id string) string {
	base := h.baseURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		base = scheme + "://" + c.Request.Host
	}
	return base + "/sorteio/" + id
}
