package model

import "time"

// Upload types recorded in file_uploads.upload_type.
const (
	UploadTypeTicketDesign = "ticket_design"
)

// FileUpload is an audit record of an artifact write. The bytes live in the
// artifact store; this row is not authoritative.
type FileUpload struct {
	ID           uint64
	Filename     string
	OriginalName string
	Path         string
	Size         int64
	MimeType     string
	UploadType   string
	RelatedID    *uint64
	CreatedAt    time.Time
}
