package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"lumacheckin/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

//go:embed templates/scan.html
var templateFS embed.FS

var scanTemplate = template.Must(template.ParseFS(templateFS, "templates/scan.html"))

// PageConfig holds the URLs and scanner settings baked into the page
type PageConfig struct {
	CheckinPath string
	ScriptPath  string
	FPS         int
	QRBox       int
}

type pageData struct {
	PageConfig
	EventID string
}

type Controller struct {
	config PageConfig
}

func NewController(config PageConfig) *Controller {
	return &Controller{config: config}
}

// ScanPage renders the scanner page, optionally labelled with an event id
func (ctrl *Controller) ScanPage(c *gin.Context) {
	var buf bytes.Buffer
	data := pageData{PageConfig: ctrl.config, EventID: c.Param("eventId")}
	if err := scanTemplate.Execute(&buf, data); err != nil {
		middleware.RequestLoggerFrom(c).LogHTTPError(c, err, http.StatusInternalServerError)
		c.String(http.StatusInternalServerError, "page unavailable")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// SetupPageRoutes mounts the scanner pages
func SetupPageRoutes(router gin.IRoutes, controller *Controller) {
	router.GET("/scan", controller.ScanPage)
	router.GET("/scan/:eventId", controller.ScanPage)
}
