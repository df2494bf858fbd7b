package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// insertUploadTx records an artifact write in file_uploads. The row is an
// audit trail only; the artifact store stays authoritative.
func insertUploadTx(ctx context.Context, tx *sql.Tx, u *model.FileUpload) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO file_uploads (filename, original_name, path, size, mime_type, upload_type, related_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Filename, u.OriginalName, u.Path, u.Size, u.MimeType, u.UploadType, u.RelatedID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}
