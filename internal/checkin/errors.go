package checkin

import "errors"

var (
	ErrMissingFields = errors.New("missing eventId or pk")
	ErrNotConfigured = errors.New("luma api key is not configured")
	ErrGuestNotFound = errors.New("no guest matches this ticket")
)

// Messages returned to the scanner page
const (
	MsgMethodNotAllowed = "Method not allowed"
	MsgMissingFields    = "Missing eventId or pk"
	MsgNotConfigured    = "Server not configured: LUMA_API_KEY missing"
	MsgGuestNotFound    = "We could not find your registration. Check that the QR code belongs to this event."
	MsgServerError      = "Server error"
	lumaErrorPrefix     = "Luma error: "
)
