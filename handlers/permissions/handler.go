package permissions

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	"github.com/webtor-io/paypal-permissions/models"
	"github.com/webtor-io/paypal-permissions/services/common"
	"github.com/webtor-io/paypal-permissions/services/grant"
	"github.com/webtor-io/paypal-permissions/services/nvp"
)

type Grants interface {
	Start(ctx context.Context, scope []string) (string, error)
	Complete(ctx context.Context, requestToken, verifier string) (*models.PermissionGrant, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PermissionGrant, error)
	Refresh(ctx context.Context, id uuid.UUID, advanced bool) (*models.PermissionGrant, error)
}

type Handler struct {
	g Grants
}

func RegisterHandler(r *gin.Engine, g Grants) {
	h := &Handler{
		g: g,
	}
	gr := r.Group("/permissions")
	gr.GET("/request", h.request)
	gr.GET("/callback", h.callback)

	grg := gr.Group("/grants")
	grg.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST"},
	}))
	grg.GET("/:id", h.get)
	grg.POST("/:id/refresh", h.refresh)
}

func (s *Handler) request(c *gin.Context) {
	u, err := s.g.Start(c.Request.Context(), grant.ParseScope(c.QueryArray("scope")...))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.Redirect(http.StatusFound, u)
}

func (s *Handler) callback(c *gin.Context) {
	g, err := s.g.Complete(c.Request.Context(),
		c.Query(common.RequestTokenName),
		c.Query(common.VerifierName),
	)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Handler) get(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad grant id"})
		return
	}
	g, err := s.g.Get(c.Request.Context(), id)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Handler) refresh(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad grant id"})
		return
	}
	advanced := c.Query("advanced") == "1" || c.Query("advanced") == "true"
	g, err := s.g.Refresh(c.Request.Context(), id, advanced)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Handler) abort(c *gin.Context, err error) {
	var apiErr *nvp.APIError
	switch {
	case errors.Is(err, grant.ErrUnknownRequestToken):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, grant.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &apiErr):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error":          "paypal request failed",
			"correlation_id": apiErr.CorrelationID,
			"errors":         apiErr.Errors,
		})
	default:
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("failed to process permissions request")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
