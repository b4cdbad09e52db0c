package assets

import (
	"net/http"

	"lumacheckin/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	provider *ScriptProvider
}

func NewController(provider *ScriptProvider) *Controller {
	return &Controller{provider: provider}
}

// ServeScript serves the QR decoder script from this origin
func (ctrl *Controller) ServeScript(c *gin.Context) {
	body, err := ctrl.provider.Script(c.Request.Context())
	if err != nil {
		middleware.RequestLoggerFrom(c).LogHTTPError(c, err, http.StatusServiceUnavailable)
		c.Header("Cache-Control", "no-store")
		c.String(http.StatusServiceUnavailable, "// decoder script unavailable\n")
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", []byte(body))
}

// SetupAssetRoutes mounts the asset endpoints
func SetupAssetRoutes(router gin.IRoutes, controller *Controller) {
	router.GET("/assets/"+ScriptName, controller.ServeScript)
}
