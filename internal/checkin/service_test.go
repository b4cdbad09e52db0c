package checkin

import (
	"context"
	"errors"
	"testing"

	"lumacheckin/internal/luma"
	"lumacheckin/internal/notifications"
	"lumacheckin/internal/ticket"
	"lumacheckin/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	configured bool
	directID   string
	directErr  error
	guests     []luma.Guest
	listErr    error
	updateErr  error

	directCalls int
	listCalls   int
	updated     []string
}

func (f *fakeDirectory) Configured() bool { return f.configured }

func (f *fakeDirectory) GetGuest(ctx context.Context, eventID, ticketKey string) (string, error) {
	f.directCalls++
	return f.directID, f.directErr
}

func (f *fakeDirectory) ListGuests(ctx context.Context, eventID string) ([]luma.Guest, error) {
	f.listCalls++
	return f.guests, f.listErr
}

func (f *fakeDirectory) UpdateGuestStatus(ctx context.Context, eventID, guestID string, status luma.GuestStatus) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, eventID+"/"+guestID+"/"+status.String())
	return nil
}

type recordingPublisher struct {
	notifications.NoopPublisher
	events []*notifications.CheckinEvent
	err    error
}

func (p *recordingPublisher) PublishCheckin(ctx context.Context, event *notifications.CheckinEvent) error {
	p.events = append(p.events, event)
	return p.err
}

var validRef = ticket.Reference{EventID: "ev_1", TicketKey: "g-1"}

func TestCheckInDirect(t *testing.T) {
	dir := &fakeDirectory{configured: true, directID: "gst-direct"}
	pub := &recordingPublisher{}
	svc := NewService(dir, logger.Discard())
	svc.SetPublisher(pub)

	res, err := svc.CheckIn(context.Background(), validRef)
	require.NoError(t, err)
	assert.Equal(t, &Resolution{GuestID: "gst-direct", Phase: PhaseDirect}, res)
	assert.Zero(t, dir.listCalls)
	assert.Equal(t, []string{"ev_1/gst-direct/checked_in"}, dir.updated)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "gst-direct", pub.events[0].GuestID)
	assert.Equal(t, "direct", pub.events[0].ResolvedBy)
}

func TestCheckInFallsBackToList(t *testing.T) {
	dir := &fakeDirectory{
		configured: true,
		guests: []luma.Guest{
			{ID: "gst-a", GuestKey: "other"},
			{GuestID: "gst-b", Tickets: []luma.Ticket{{TicketKey: "g-1"}}},
			{ID: "gst-c", PK: "g-1"},
		},
	}
	svc := NewService(dir, logger.Discard())

	res, err := svc.CheckIn(context.Background(), validRef)
	require.NoError(t, err)
	assert.Equal(t, "gst-b", res.GuestID)
	assert.Equal(t, PhaseList, res.Phase)
	assert.Equal(t, 1, dir.directCalls)
	assert.Equal(t, 1, dir.listCalls)
}

func TestCheckInNotFound(t *testing.T) {
	dir := &fakeDirectory{configured: true, guests: []luma.Guest{{ID: "gst-a", Key: "nope"}}}
	svc := NewService(dir, logger.Discard())

	_, err := svc.CheckIn(context.Background(), validRef)
	assert.ErrorIs(t, err, ErrGuestNotFound)
	assert.Empty(t, dir.updated)
}

func TestCheckInFirstMatchWithoutIDIsNotFound(t *testing.T) {
	dir := &fakeDirectory{configured: true, guests: []luma.Guest{
		{Key: "g-1"},
		{ID: "gst-late", Key: "g-1"},
	}}
	svc := NewService(dir, logger.Discard())

	_, err := svc.CheckIn(context.Background(), validRef)
	assert.ErrorIs(t, err, ErrGuestNotFound)
}

func TestCheckInInvalidReferenceMakesNoCalls(t *testing.T) {
	dir := &fakeDirectory{configured: true}
	svc := NewService(dir, logger.Discard())

	_, err := svc.CheckIn(context.Background(), ticket.Reference{EventID: "ev_1"})
	assert.ErrorIs(t, err, ErrMissingFields)
	assert.Zero(t, dir.directCalls)
	assert.Zero(t, dir.listCalls)
}

func TestCheckInNotConfigured(t *testing.T) {
	dir := &fakeDirectory{}
	svc := NewService(dir, logger.Discard())

	_, err := svc.CheckIn(context.Background(), validRef)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Zero(t, dir.directCalls)
}

func TestCheckInTransportErrorStopsResolution(t *testing.T) {
	boom := errors.New("connection reset")
	dir := &fakeDirectory{configured: true, directErr: boom}
	svc := NewService(dir, logger.Discard())

	_, err := svc.CheckIn(context.Background(), validRef)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, dir.listCalls)
	assert.Empty(t, dir.updated)
}

func TestCheckInUpdateRejected(t *testing.T) {
	dir := &fakeDirectory{
		configured: true,
		directID:   "gst-1",
		updateErr:  &luma.APIError{StatusCode: 400, Body: "already checked in"},
	}
	pub := &recordingPublisher{}
	svc := NewService(dir, logger.Discard())
	svc.SetPublisher(pub)

	_, err := svc.CheckIn(context.Background(), validRef)
	var apiErr *luma.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "already checked in", apiErr.Body)
	assert.Empty(t, pub.events)
}

func TestCheckInPublishFailureIsNotFatal(t *testing.T) {
	dir := &fakeDirectory{configured: true, directID: "gst-1"}
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewService(dir, logger.Discard())
	svc.SetPublisher(pub)

	_, err := svc.CheckIn(context.Background(), validRef)
	assert.NoError(t, err)
	assert.Len(t, pub.events, 1)
}
