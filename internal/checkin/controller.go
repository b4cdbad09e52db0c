package checkin

import (
	"errors"
	"net/http"

	"lumacheckin/internal/luma"
	"lumacheckin/internal/shared/middleware"
	"lumacheckin/internal/shared/utils/response"
	"lumacheckin/internal/ticket"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) *Controller {
	return &Controller{
		service:   service,
		validator: validator.New(),
	}
}

// CheckIn marks the guest holding the ticket as checked in
//
//	@Summary	Check a guest in
//	@Tags		checkin
//	@Accept		json
//	@Produce	json
//	@Param		request	body		CheckinRequest	true	"Event id and ticket key"
//	@Success	200		{object}	response.Result
//	@Failure	400		{object}	response.Result
//	@Failure	404		{object}	response.Result
//	@Failure	405		{object}	response.Result
//	@Failure	500		{object}	response.Result
//	@Router		/checkin [post]
func (ctrl *Controller) CheckIn(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.Header("Allow", http.MethodPost)
		response.RespondError(c, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
		return
	}

	// malformed bodies are treated as missing fields
	var req CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, MsgMissingFields)
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, MsgMissingFields)
		return
	}

	ref := ticket.Reference{EventID: req.EventID, TicketKey: req.PK}
	if _, err := ctrl.service.CheckIn(c.Request.Context(), ref); err != nil {
		status, message := errorResponse(err)
		if status >= http.StatusInternalServerError {
			middleware.RequestLoggerFrom(c).LogHTTPError(c, err, status)
		}
		response.RespondError(c, status, message)
		return
	}

	response.RespondOK(c)
}

// errorResponse maps a check-in failure to a status code and a message safe
// to show on the scanner page
func errorResponse(err error) (int, string) {
	var apiErr *luma.APIError
	switch {
	case errors.Is(err, ErrMissingFields):
		return http.StatusBadRequest, MsgMissingFields
	case errors.Is(err, ErrNotConfigured):
		return http.StatusInternalServerError, MsgNotConfigured
	case errors.Is(err, ErrGuestNotFound):
		return http.StatusNotFound, MsgGuestNotFound
	case errors.As(err, &apiErr):
		return http.StatusBadRequest, lumaErrorPrefix + apiErr.Body
	default:
		return http.StatusInternalServerError, MsgServerError
	}
}
