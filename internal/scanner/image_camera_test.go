package scanner

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"lumacheckin/internal/checkin"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeQR(t *testing.T, dir, name, content string) string {
	t.Helper()
	matrix, err := qrcode.NewQRCodeWriter().Encode(content, gozxing.BarcodeFormat_QR_CODE, 250, 250, nil)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, matrix))
	return path
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	path := writeQR(t, dir, "ticket.png", ticketURL)

	text, err := DecodeFile(qrcode.NewQRCodeReader(), path)
	require.NoError(t, err)
	assert.Equal(t, ticketURL, text)

	_, err = DecodeFile(qrcode.NewQRCodeReader(), filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestImageCameraThroughSession(t *testing.T) {
	dir := t.TempDir()
	blank := filepath.Join(dir, "blank.txt")
	require.NoError(t, os.WriteFile(blank, []byte("not an image"), 0o600))
	ticketPath := writeQR(t, dir, "ticket.png", ticketURL)

	camera := NewImageCamera([]string{blank, ticketPath})
	viewport := &fakeViewport{}
	submitter := &fakeSubmitter{result: checkin.Result{OK: true}}
	session := NewSession(camera, viewport, camera, submitter, nil)

	out, err := session.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, out.State)
	assert.Equal(t, "ev_42", out.Reference.EventID)
	assert.False(t, viewport.Mounted())
	assert.Zero(t, camera.Remaining())
}

func TestImageCameraContinuesWhereItStopped(t *testing.T) {
	dir := t.TempDir()
	first := writeQR(t, dir, "a.png", "https://luma.com/check-in/ev_1?pk=g-1")
	second := writeQR(t, dir, "b.png", "https://luma.com/e/ticket/ev_2?pk=g-2")

	camera := NewImageCamera([]string{first, second})
	session := NewSession(camera, &fakeViewport{}, camera, &fakeSubmitter{result: checkin.Result{OK: true}}, nil)

	out, err := session.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ev_1", out.Reference.EventID)
	assert.Equal(t, 1, camera.Remaining())

	out, err = session.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ev_2", out.Reference.EventID)

	out, err = session.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MsgCameraUnavailable, out.Message)
}

func TestImageCameraRequiresMountedViewport(t *testing.T) {
	camera := NewImageCamera([]string{"x.png"})
	_, err := camera.Start(context.Background(), &fakeViewport{}, DefaultOptions)
	assert.Error(t, err)

	_, err = NewImageCamera(nil).Start(context.Background(), &fakeViewport{mounted: true}, DefaultOptions)
	assert.Error(t, err)
}
