package models

import "time"

// Message roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Attachment kinds.
const (
	KindImage = "image"
	KindAudio = "audio"
)

// Subject tags a session can carry.
const (
	SubjectGeneralMath    = "General Math"
	SubjectHigherMath     = "Higher Math"
	SubjectPhysics        = "Physics"
	SubjectChemistry      = "Chemistry"
	SubjectBiology        = "Biology"
	SubjectEnglishGrammar = "English Grammar"
	SubjectGeneral        = "General"
)

// Attachment is a captured image or audio clip, encoded for transmission.
// Immutable once created.
type Attachment struct {
	Kind       string `json:"type"` // image or audio
	Data       string `json:"data"` // base64 payload
	MimeType   string `json:"mimeType"`
	DisplayRef string `json:"url"` // data URL for UI display
}

type Message struct {
	ID         string      `json:"id"`
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Subject      string    `json:"subject"`
	Messages     []Message `json:"messages"`
	LastModified time.Time `json:"lastModified"`
}

// NewMessageID returns a time-derived identifier that sorts roughly in
// creation order.
func NewMessageID() string {
	return time.Now().Format("20060102150405.000000000")
}
