package types

import (
	"io"
	"time"
)

// DocumentKind identifies which piece of evidence a document is
type DocumentKind string

const (
	DocumentKindStudentID        DocumentKind = "student_id"
	DocumentKindEnrollmentLetter DocumentKind = "enrollment_letter"
)

// RequiredDocumentKinds lists the evidence needed to enter manual review.
var RequiredDocumentKinds = []DocumentKind{
	DocumentKindStudentID,
	DocumentKindEnrollmentLetter,
}

func ParseDocumentKind(v string) (DocumentKind, bool) {
	switch DocumentKind(v) {
	case DocumentKindStudentID:
		return DocumentKindStudentID, true
	case DocumentKindEnrollmentLetter:
		return DocumentKindEnrollmentLetter, true
	}
	return "", false
}

func (k DocumentKind) Label() string {
	switch k {
	case DocumentKindStudentID:
		return "Student ID"
	case DocumentKindEnrollmentLetter:
		return "Enrollment Letter"
	default:
		return "Document"
	}
}

// MaxDocumentSizeBytes is the upload ceiling for each evidence document (10 MiB).
const MaxDocumentSizeBytes int64 = 10 << 20

// AllowedDocumentMimeTypes is the allow-list checked against the sniffed content type.
var AllowedDocumentMimeTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// EvidenceDocument is the metadata kept on a verification record. The payload
// itself lives in blob storage under StorageKey.
type EvidenceDocument struct {
	Kind       DocumentKind `json:"kind"`
	FileName   string       `json:"fileName"`
	MimeType   string       `json:"mimeType"`
	SizeBytes  int64        `json:"sizeBytes"`
	StorageKey string       `json:"storageKey"`
	UploadedAt time.Time    `json:"uploadedAt"`
}

type EvidenceDocuments []EvidenceDocument

// ByKind returns the document of the given kind, or nil.
func (d EvidenceDocuments) ByKind(kind DocumentKind) *EvidenceDocument {
	for i := range d {
		if d[i].Kind == kind {
			return &d[i]
		}
	}
	return nil
}

// Complete reports whether every required kind is present with a storage key.
func (d EvidenceDocuments) Complete() bool {
	for _, kind := range RequiredDocumentKinds {
		doc := d.ByKind(kind)
		if doc == nil || doc.StorageKey == "" {
			return false
		}
	}
	return true
}

func (d EvidenceDocuments) StorageKeys() []string {
	keys := make([]string, 0, len(d))
	for _, doc := range d {
		if doc.StorageKey != "" {
			keys = append(keys, doc.StorageKey)
		}
	}
	return keys
}

// DocumentUpload is a raw upload received from the subject.
type DocumentUpload struct {
	FileName string
	Content  []byte
}

func (u *DocumentUpload) Empty() bool {
	return u == nil || len(u.Content) == 0
}

// DocumentContent is a stored payload opened for reviewer inspection.
type DocumentContent struct {
	Body        io.ReadCloser
	ContentType string
	FileName    string
	SizeBytes   int64
}
