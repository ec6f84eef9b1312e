package handler

import (
	"errors"
	"net/http"
	"strconv"

	"queryhub/internal/models"
	"queryhub/internal/openai_client"
	"queryhub/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type QueryHandler interface {
	Submit(c *gin.Context)
	History(c *gin.Context)
	GetResponse(c *gin.Context)
}

type queryHandler struct {
	queryService service.QueryService
	logger       *zap.Logger
}

func NewQueryHandler(queryService service.QueryService, logger *zap.Logger) QueryHandler {
	return &queryHandler{queryService: queryService, logger: logger}
}

type SubmitQueryRequest struct {
	QueryText  string                 `json:"query_text" binding:"required"`
	Model      string                 `json:"model" binding:"required"`
	Parameters models.QueryParameters `json:"parameters"`
}

// Submit handles POST /api/query
func (h *queryHandler) Submit(c *gin.Context) {
	var req SubmitQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "query_text and model are required"})
		return
	}

	userID := c.MustGet("user_id").(int64)

	result, err := h.queryService.Submit(c.Request.Context(), userID, service.SubmitRequest{
		QueryText:  req.QueryText,
		Model:      req.Model,
		Parameters: req.Parameters,
	})
	if err != nil {
		h.respondQueryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query_id": result.QueryID,
		"response": result.Response,
		"cached":   result.Cached,
	})
}

// History handles GET /api/queries
func (h *queryHandler) History(c *gin.Context) {
	userID := c.MustGet("user_id").(int64)

	queries, err := h.queryService.History(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list queries", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_unavailable", "message": "Failed to retrieve queries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"queries": queries})
}

// GetResponse handles GET /api/queries/:id/response
func (h *queryHandler) GetResponse(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "Invalid query ID"})
		return
	}

	userID := c.MustGet("user_id").(int64)

	response, err := h.queryService.Response(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, service.ErrQueryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Query not found"})
			return
		}
		h.logger.Error("Failed to get query response", zap.Int64("query_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_unavailable", "message": "Failed to retrieve response"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": response})
}

// respondQueryError maps pipeline errors to stable codes with generic
// messages; provider detail stays in the logs.
func (h *queryHandler) respondQueryError(c *gin.Context, err error) {
	var remoteErr *openai_client.RemoteAPIError
	var transportErr *openai_client.TransportError
	switch {
	case errors.As(err, &remoteErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "remote_api_error", "message": "Completion provider rejected the request"})
	case errors.As(err, &transportErr):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "transport_error", "message": "Completion provider is unreachable"})
	default:
		h.logger.Error("Query pipeline failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_unavailable", "message": "Failed to process query"})
	}
}
