package checkin

import (
	"context"
	"errors"
	"fmt"

	"lumacheckin/internal/luma"
	"lumacheckin/internal/notifications"
	"lumacheckin/internal/shared/metrics"
	"lumacheckin/internal/ticket"
	"lumacheckin/pkg/logger"
)

// Phase names the lookup that resolved a guest
type Phase string

const (
	PhaseDirect Phase = "direct"
	PhaseList   Phase = "list"
)

// Resolution is a guest id together with how it was found
type Resolution struct {
	GuestID string
	Phase   Phase
}

// GuestDirectory is the remote guest store
type GuestDirectory interface {
	Configured() bool
	GetGuest(ctx context.Context, eventID, ticketKey string) (string, error)
	ListGuests(ctx context.Context, eventID string) ([]luma.Guest, error)
	UpdateGuestStatus(ctx context.Context, eventID, guestID string, status luma.GuestStatus) error
}

type Service interface {
	SetPublisher(publisher notifications.Publisher)
	ResolveGuest(ctx context.Context, ref ticket.Reference) (*Resolution, error)
	CheckIn(ctx context.Context, ref ticket.Reference) (*Resolution, error)
}

type service struct {
	directory GuestDirectory
	publisher notifications.Publisher
	log       *logger.Logger
}

func NewService(directory GuestDirectory, log *logger.Logger) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		directory: directory,
		publisher: notifications.NoopPublisher{},
		log:       log,
	}
}

// SetPublisher injects the check-in event publisher
func (s *service) SetPublisher(publisher notifications.Publisher) {
	if publisher != nil {
		s.publisher = publisher
	}
}

// ResolveGuest maps a ticket key to a guest id. The direct lookup is tried
// first; when it yields nothing the full guest list is scanned and the first
// guest whose aliases contain the key wins.
func (s *service) ResolveGuest(ctx context.Context, ref ticket.Reference) (*Resolution, error) {
	guestID, err := s.directory.GetGuest(ctx, ref.EventID, ref.TicketKey)
	if err != nil {
		s.log.LogUpstreamFailure(ctx, "get-guest", ref.EventID, err)
		return nil, fmt.Errorf("direct guest lookup: %w", err)
	}
	if guestID != "" {
		return &Resolution{GuestID: guestID, Phase: PhaseDirect}, nil
	}

	guests, err := s.directory.ListGuests(ctx, ref.EventID)
	if err != nil {
		s.log.LogUpstreamFailure(ctx, "get-guests", ref.EventID, err)
		return nil, fmt.Errorf("guest list lookup: %w", err)
	}
	for _, g := range guests {
		if !g.Matches(ref.TicketKey) {
			continue
		}
		// first match wins, even when it carries no usable id
		if id := g.Identifier(); id != "" {
			return &Resolution{GuestID: id, Phase: PhaseList}, nil
		}
		break
	}

	s.log.LogResolutionMiss(ctx, ref.EventID, len(guests))
	return nil, ErrGuestNotFound
}

// CheckIn resolves the guest and flips its status to checked_in. Nothing is
// mutated remotely unless resolution succeeded.
func (s *service) CheckIn(ctx context.Context, ref ticket.Reference) (*Resolution, error) {
	if !ref.Valid() {
		metrics.CheckinsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, ErrMissingFields
	}
	if !s.directory.Configured() {
		metrics.CheckinsTotal.WithLabelValues(metrics.OutcomeMisconfigured).Inc()
		return nil, ErrNotConfigured
	}

	res, err := s.ResolveGuest(ctx, ref)
	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, ErrGuestNotFound) {
			outcome = metrics.OutcomeNotFound
		}
		metrics.CheckinsTotal.WithLabelValues(outcome).Inc()
		return nil, err
	}
	metrics.GuestResolutionsTotal.WithLabelValues(string(res.Phase)).Inc()

	if err := s.directory.UpdateGuestStatus(ctx, ref.EventID, res.GuestID, luma.GuestStatusCheckedIn); err != nil {
		s.log.LogUpstreamFailure(ctx, "update-guest-status", ref.EventID, err)
		outcome := metrics.OutcomeError
		var apiErr *luma.APIError
		if errors.As(err, &apiErr) {
			outcome = metrics.OutcomeRejected
		}
		metrics.CheckinsTotal.WithLabelValues(outcome).Inc()
		return nil, fmt.Errorf("update guest status: %w", err)
	}

	metrics.CheckinsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.log.LogCheckin(ctx, ref.EventID, res.GuestID, string(res.Phase))

	event := notifications.NewCheckinEvent(ref.EventID, res.GuestID, string(res.Phase))
	if err := s.publisher.PublishCheckin(ctx, event); err != nil {
		s.log.ErrorWithContext(ctx, "Failed to publish check-in event", err, map[string]interface{}{
			"event_id": ref.EventID,
			"guest_id": res.GuestID,
		})
	}

	return res, nil
}
