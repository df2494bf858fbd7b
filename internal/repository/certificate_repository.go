package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// CertificateRepo reads certificates issued to participants.
type CertificateRepo struct {
	db *sql.DB
}

func NewCertificateRepo(db *sql.DB) *CertificateRepo {
	return &CertificateRepo{db: db}
}

// List returns every certificate joined with its participant and event,
// newest first.
func (r *CertificateRepo) List(ctx context.Context) ([]*model.CertificateDetail, error) {
	const q = `SELECT c.id, c.participant_id, c.sent, c.created_at,
	                  p.name, p.email, e.name, e.type
	           FROM certificates c
	           JOIN participants p ON c.participant_id = p.id
	           JOIN tickets t ON p.ticket_id = t.id
	           JOIN events e ON t.event_id = e.id
	           ORDER BY c.created_at DESC, c.id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.CertificateDetail{}
	for rows.Next() {
		var (
			c   model.CertificateDetail
			typ string
		)
		if err := rows.Scan(&c.ID, &c.ParticipantID, &c.Sent, &c.CreatedAt,
			&c.ParticipantName, &c.Email, &c.EventName, &typ); err != nil {
			return nil, err
		}
		c.EventType = model.EventType(typ)
		out = append(out, &c)
	}
	return out, rows.Err()
}
