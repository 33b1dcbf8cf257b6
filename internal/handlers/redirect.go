package handlers

import (
	"net/http"

	"github.com/go-authgate/returnguard/internal/services"

	"github.com/gin-gonic/gin"
)

// RedirectHandler exposes the redirect policy to clients that navigate on
// their own (desktop app, extension, SPA).
type RedirectHandler struct {
	redirectService *services.RedirectService
}

func NewRedirectHandler(rs *services.RedirectService) *RedirectHandler {
	return &RedirectHandler{redirectService: rs}
}

// checkRequest is the body of POST /api/v1/redirect/check. A null or
// missing value is treated like an empty string.
type checkRequest struct {
	Value  *string `json:"value"`
	Source string  `json:"source"`
}

// CheckRedirect handles POST /api/v1/redirect/check.
func (h *RedirectHandler) CheckRedirect(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Request body must be a JSON object")
		return
	}

	var value string
	if req.Value != nil {
		value = *req.Value
	}

	c.JSON(http.StatusOK, h.redirectService.Sanitize(c, value, services.NormalizeSource(req.Source)))
}

// CheckRedirectQuery handles GET /api/v1/redirect/check?value=&source=.
func (h *RedirectHandler) CheckRedirectQuery(c *gin.Context) {
	source := services.NormalizeSource(c.Query("source"))
	c.JSON(http.StatusOK, h.redirectService.Sanitize(c, c.Query("value"), source))
}

// GetPolicy handles GET /api/v1/redirect/policy.
func (h *RedirectHandler) GetPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, h.redirectService.Policy(c))
}
