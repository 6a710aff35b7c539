package capture

import (
	"bytes"
	"errors"
	"sync"

	"github.com/shuaib-ai/shuaib/internal/models"
)

var ErrRecordingActive = errors.New("capture: recording already active")

// defaultAudioMime matches what browser recorders produce.
const defaultAudioMime = "audio/webm"

// Recorder is the microphone flow: Start acquires the device and begins
// buffering, Chunk appends recorded audio, Stop finalizes the buffer into a
// single audio attachment and releases. Only one recording may be active.
type Recorder struct {
	mu        sync.Mutex
	recording bool
	buf       bytes.Buffer
	mimeType  string
	release   func()
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Start(mimeType string, release func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return ErrRecordingActive
	}
	if mimeType == "" {
		mimeType = defaultAudioMime
	}
	r.recording = true
	r.buf.Reset()
	r.mimeType = mimeType
	r.release = release
	return nil
}

func (r *Recorder) Chunk(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return errors.New("capture: not recording")
	}
	_, err := r.buf.Write(data)
	return err
}

// Stop finalizes the buffered audio into one attachment and releases the
// device. Stopping when not recording is a no-op and returns nil. An empty
// buffer yields no attachment but still releases.
func (r *Recorder) Stop() *models.Attachment {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return nil
	}
	data := append([]byte(nil), r.buf.Bytes()...)
	mimeType := r.mimeType
	r.stopLocked()

	if len(data) == 0 {
		return nil
	}
	return newAttachment(models.KindAudio, mimeType, data)
}

// Cancel discards the buffer and releases without producing an attachment.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		r.stopLocked()
	}
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

func (r *Recorder) stopLocked() {
	r.recording = false
	r.buf.Reset()
	if r.release != nil {
		r.release()
		r.release = nil
	}
}
