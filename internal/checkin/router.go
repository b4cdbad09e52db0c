package checkin

import (
	"github.com/gin-gonic/gin"
)

// SetupCheckinRoutes mounts the check-in endpoint. Every method is routed to
// the controller so that non-POST requests get a 405 body of the same shape.
func SetupCheckinRoutes(router *gin.RouterGroup, controller *Controller) {
	router.Any("/checkin", controller.CheckIn) // POST /api/checkin
}
