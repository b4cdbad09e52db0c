package checkin

// CheckinRequest is the body the scanner page posts
type CheckinRequest struct {
	EventID string `json:"eventId" validate:"required"`
	PK      string `json:"pk" validate:"required"`
}
