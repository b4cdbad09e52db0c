// Package scanner drives one scan attempt at a time: load the decoder, show
// the live view, take the first decoded payload, and submit it for check-in.
package scanner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"lumacheckin/internal/checkin"
	"lumacheckin/internal/ticket"
	"lumacheckin/pkg/logger"
)

// State is the session's position in the scan lifecycle
type State string

const (
	StateIdle     State = "idle"
	StateScanning State = "scanning"
	StateSuccess  State = "success"
	StateError    State = "error"
)

// Messages shown to staff after an attempt
const (
	MsgCheckedIn          = "Guest checked in."
	MsgDecoderUnavailable = "Could not load the QR reader. Check your connection and try again."
	MsgCameraUnavailable  = "Could not start the camera. Allow camera access and try again."
	MsgScanStopped        = "Scan stopped before a code was read."
	MsgNotATicket         = "This code is not a Luma ticket link."
	MsgRequestFailed      = "Check-in request failed. Check your connection and try again."
	msgCheckinFailed      = "Check-in failed."
)

// ErrBusy is returned when an attempt is started while another is running
var ErrBusy = errors.New("scanner: an attempt is already in progress")

var (
	errCameraUnavailable = errors.New("camera unavailable")
	errCaptureEnded      = errors.New("capture ended without a code")
)

// Options configures the live scanner
type Options struct {
	FPS   int
	QRBox int
}

// DefaultOptions is the fixed detection rate and box size
var DefaultOptions = Options{FPS: 10, QRBox: 250}

// Frame is one decode result from the live scanner. Err is set for frames
// in which nothing could be decoded.
type Frame struct {
	Text string
	Err  error
}

// DecoderLoader makes the QR decoding capability available
type DecoderLoader interface {
	EnsureLoaded(ctx context.Context) error
}

// Viewport is the mount point the live scanner renders into
type Viewport interface {
	Ensure() error
	Remove()
	Mounted() bool
}

// Camera starts live capture against a viewport
type Camera interface {
	Start(ctx context.Context, viewport Viewport, opts Options) (LiveScanner, error)
}

// LiveScanner is a running capture
type LiveScanner interface {
	Frames() <-chan Frame
	Stop() error
}

// Submitter sends a ticket reference to the check-in endpoint
type Submitter interface {
	Submit(ctx context.Context, ref ticket.Reference) (checkin.Result, error)
}

// Outcome is the result of one attempt
type Outcome struct {
	State     State
	Message   string
	Reference ticket.Reference
}

// Session runs scan attempts one at a time
type Session struct {
	loader    DecoderLoader
	viewport  Viewport
	camera    Camera
	submitter Submitter
	log       *logger.Logger

	busy  atomic.Bool
	mu    sync.RWMutex
	state State
}

// NewSession wires a session to its capabilities
func NewSession(loader DecoderLoader, viewport Viewport, camera Camera, submitter Submitter, log *logger.Logger) *Session {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Session{
		loader:    loader,
		viewport:  viewport,
		camera:    camera,
		submitter: submitter,
		log:       log,
		state:     StateIdle,
	}
}

// State returns the current state
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Busy reports whether an attempt is running
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Prewarm loads the decoder ahead of the first scan. Failures are ignored;
// Scan loads again on demand.
func (s *Session) Prewarm(ctx context.Context) {
	if err := s.loader.EnsureLoaded(ctx); err != nil {
		s.log.DebugContext(ctx, "Decoder prewarm failed", "error", err.Error())
	}
}

// Scan runs one camera attempt through to a check-in outcome
func (s *Session) Scan(ctx context.Context) (Outcome, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return Outcome{}, ErrBusy
	}
	defer s.busy.Store(false)

	s.setState(StateScanning)

	if err := s.loader.EnsureLoaded(ctx); err != nil {
		s.log.WarnContext(ctx, "Decoder unavailable", "error", err.Error())
		return s.finish(StateError, MsgDecoderUnavailable, ticket.Reference{}), nil
	}

	text, err := s.capture(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "Capture failed", "error", err.Error())
		if errors.Is(err, errCameraUnavailable) {
			return s.finish(StateError, MsgCameraUnavailable, ticket.Reference{}), nil
		}
		return s.finish(StateError, MsgScanStopped, ticket.Reference{}), nil
	}

	return s.process(ctx, text), nil
}

// SubmitManual runs pasted text through the same pipeline as a scanned code
func (s *Session) SubmitManual(ctx context.Context, text string) (Outcome, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return Outcome{}, ErrBusy
	}
	defer s.busy.Store(false)

	s.setState(StateScanning)
	return s.process(ctx, text), nil
}

// capture mounts the viewport, runs the camera until the first decoded
// frame, and tears both down before returning on every path
func (s *Session) capture(ctx context.Context) (string, error) {
	if err := s.viewport.Ensure(); err != nil {
		return "", errors.Join(errCameraUnavailable, err)
	}

	live, err := s.camera.Start(ctx, s.viewport, DefaultOptions)
	if err != nil {
		s.viewport.Remove()
		return "", errors.Join(errCameraUnavailable, err)
	}

	torn := false
	teardown := func() {
		if torn {
			return
		}
		torn = true
		if err := live.Stop(); err != nil {
			s.log.WarnContext(ctx, "Stopping camera failed", "error", err.Error())
		}
		s.viewport.Remove()
	}
	defer teardown()

	frames := live.Frames()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return "", errCaptureEnded
			}
			if frame.Err != nil || frame.Text == "" {
				continue // noise
			}
			teardown()
			return frame.Text, nil
		}
	}
}

func (s *Session) process(ctx context.Context, text string) Outcome {
	ref := ticket.Parse(text)
	if !ref.Valid() {
		return s.finish(StateError, MsgNotATicket, ref)
	}

	res, err := s.submitter.Submit(ctx, ref)
	if err != nil {
		s.log.WarnContext(ctx, "Check-in request failed", "event_id", ref.EventID, "error", err.Error())
		return s.finish(StateError, MsgRequestFailed, ref)
	}
	if !res.OK {
		msg := res.Error
		if msg == "" {
			msg = msgCheckinFailed
		}
		return s.finish(StateError, msg, ref)
	}

	return s.finish(StateSuccess, MsgCheckedIn, ref)
}

func (s *Session) finish(state State, message string, ref ticket.Reference) Outcome {
	s.setState(state)
	return Outcome{State: state, Message: message, Reference: ref}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}
