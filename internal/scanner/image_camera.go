package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ImageCamera feeds QR images from disk as camera frames. Each capture picks
// up after the image that ended the previous one. It doubles as the
// DecoderLoader, since decoding happens in-process.
type ImageCamera struct {
	mu    sync.Mutex
	paths []string
	next  int

	once   sync.Once
	reader gozxing.Reader
}

func NewImageCamera(paths []string) *ImageCamera {
	return &ImageCamera{paths: paths}
}

// EnsureLoaded prepares the QR reader
func (c *ImageCamera) EnsureLoaded(ctx context.Context) error {
	c.once.Do(func() {
		c.reader = qrcode.NewQRCodeReader()
	})
	return nil
}

// Remaining returns how many images have not been read yet
func (c *ImageCamera) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.paths) - c.next
}

func (c *ImageCamera) take() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.next >= len(c.paths) {
		return "", false
	}
	path := c.paths[c.next]
	c.next++
	return path, true
}

// Start emits one frame per remaining image, in order, then closes the stream
func (c *ImageCamera) Start(ctx context.Context, viewport Viewport, opts Options) (LiveScanner, error) {
	if c.Remaining() == 0 {
		return nil, errors.New("no images left to scan")
	}
	if !viewport.Mounted() {
		return nil, errors.New("viewport is not mounted")
	}
	if err := c.EnsureLoaded(ctx); err != nil {
		return nil, err
	}

	live := &imageScanner{
		frames: make(chan Frame),
		stop:   make(chan struct{}),
	}
	go live.run(ctx, c)
	return live, nil
}

type imageScanner struct {
	frames   chan Frame
	stop     chan struct{}
	stopOnce sync.Once
}

func (s *imageScanner) Frames() <-chan Frame { return s.frames }

func (s *imageScanner) Stop() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *imageScanner) run(ctx context.Context, camera *ImageCamera) {
	defer close(s.frames)
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		path, ok := camera.take()
		if !ok {
			return
		}
		text, err := DecodeFile(camera.reader, path)
		select {
		case s.frames <- Frame{Text: text, Err: err}:
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
		if err == nil && text != "" {
			return // a read code ends the capture
		}
	}
}

// DecodeFile reads the first QR code found in an image file
func DecodeFile(reader gozxing.Reader, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode image %s: %w", path, err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binarize %s: %w", path, err)
	}

	result, err := reader.Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("no QR code in %s: %w", path, err)
	}
	return result.GetText(), nil
}
