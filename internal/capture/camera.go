package capture

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"sync"

	"github.com/shuaib-ai/shuaib/internal/models"
)

var (
	ErrCameraActive   = errors.New("capture: camera already active")
	ErrCameraInactive = errors.New("capture: camera not active")
	ErrNoFrame        = errors.New("capture: no preview frame received")
)

// jpegQuality for the frozen still.
const jpegQuality = 85

// CameraFlow is the two-phase camera interaction: Activate acquires the
// device and starts the live preview, Capture freezes the latest frame into
// a JPEG still, Cancel aborts. Whatever the exit path, the device handle is
// released exactly once.
type CameraFlow struct {
	mu      sync.Mutex
	active  bool
	frame   []byte
	release func()
}

func NewCameraFlow() *CameraFlow {
	return &CameraFlow{}
}

// Activate begins the flow. release, if non-nil, is invoked when the flow
// ends on any path. Only one flow may be active.
func (f *CameraFlow) Activate(release func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.active {
		return ErrCameraActive
	}
	f.active = true
	f.frame = nil
	f.release = release
	return nil
}

// SubmitFrame records the latest live-preview frame. Later frames replace
// earlier ones.
func (f *CameraFlow) SubmitFrame(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.active {
		return ErrCameraInactive
	}
	f.frame = data
	return nil
}

// Capture freezes the current frame into a JPEG-encoded image attachment
// and deactivates. The device is released whether or not encoding succeeds.
func (f *CameraFlow) Capture() (*models.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.active {
		return nil, ErrCameraInactive
	}
	frame := f.frame
	f.deactivateLocked()

	if len(frame) == 0 {
		return nil, ErrNoFrame
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return newAttachment(models.KindImage, "image/jpeg", buf.Bytes()), nil
}

// Cancel aborts the flow and releases the device. Cancelling an inactive
// flow is a no-op.
func (f *CameraFlow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.active {
		f.deactivateLocked()
	}
}

func (f *CameraFlow) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *CameraFlow) deactivateLocked() {
	f.active = false
	f.frame = nil
	if f.release != nil {
		f.release()
		f.release = nil
	}
}
