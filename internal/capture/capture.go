// Package capture turns raw media into normalized attachments and manages
// the two-phase camera and microphone flows. Device handles are released on
// every exit path: success, cancel, and error.
package capture

import (
	"encoding/base64"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/shuaib-ai/shuaib/internal/models"
)

// User-facing alerts for denied hardware access, in the interface's
// language.
const (
	CameraDeniedMessage     = "ক্যামেরা চালু করতে সমস্যা হয়েছে। দয়া করে পারমিশন চেক করো।"
	MicrophoneDeniedMessage = "মাইক্রোফোন অ্যাক্সেস করতে সমস্যা হয়েছে।"
)

// FromReader reads one selected file fully and normalizes it into an
// attachment. Failures are logged only; the caller gets nil and no
// attachment is set.
func FromReader(name string, r io.Reader, logger *zap.Logger) *models.Attachment {
	data, err := io.ReadAll(r)
	if err != nil {
		logger.Error("failed to read attachment", zap.String("name", name), zap.Error(err))
		return nil
	}
	return FromBytes(name, data, logger)
}

// FromBytes normalizes raw media bytes into an attachment: base64 payload,
// MIME type, and a data-URL display reference.
func FromBytes(name string, data []byte, logger *zap.Logger) *models.Attachment {
	if len(data) == 0 {
		logger.Error("empty attachment payload", zap.String("name", name))
		return nil
	}

	mimeType := sniffMime(name, data)
	return newAttachment(kindFor(mimeType), mimeType, data)
}

func newAttachment(kind, mimeType string, data []byte) *models.Attachment {
	encoded := base64.StdEncoding.EncodeToString(data)
	return &models.Attachment{
		Kind:       kind,
		Data:       encoded,
		MimeType:   mimeType,
		DisplayRef: "data:" + mimeType + ";base64," + encoded,
	}
}

// sniffMime prefers content sniffing and falls back to the filename
// extension when sniffing is inconclusive.
func sniffMime(name string, data []byte) string {
	mimeType := http.DetectContentType(data)
	if mimeType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
			mimeType = byExt
		}
	}
	return mimeType
}

func kindFor(mimeType string) string {
	if strings.HasPrefix(mimeType, "audio/") {
		return models.KindAudio
	}
	return models.KindImage
}
