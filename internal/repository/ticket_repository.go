package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// TicketRepo resolves ticket tokens and records participant claims.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo constructs a TicketRepo with the provided DB handle.
func NewTicketRepo(db *sql.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

const lookupSelect = `SELECT t.id, t.token, t.is_verified,
       e.id, e.name, e.type, e.location, e.description, e.start_time, e.end_time
FROM tickets t
JOIN events e ON t.event_id = e.id
WHERE t.token = ?`

// LookupByToken returns the ticket carrying token together with its event.
// Tokens are matched case-insensitively by upper-casing the input.
func (r *TicketRepo) LookupByToken(ctx context.Context, token string) (*model.TicketLookup, error) {
	l, err := scanLookup(r.db.QueryRowContext(ctx, lookupSelect, normalizeToken(token)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	return l, err
}

// Claim attaches p to the ticket identified by token and marks the ticket
// verified, in one transaction with the ticket row locked. It returns
// ErrTicketNotFound or ErrTicketAlreadyUsed without writing anything when the
// ticket cannot be claimed. On success p.ID, p.TicketID and the returned
// lookup are populated.
func (r *TicketRepo) Claim(ctx context.Context, token string, p *model.Participant) (*model.TicketLookup, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	l, err := scanLookup(tx.QueryRowContext(ctx, lookupSelect+` FOR UPDATE`, normalizeToken(token)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	if l.IsVerified {
		return nil, ErrTicketAlreadyUsed
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO participants (ticket_id, name, email, phone, organization) VALUES (?, ?, ?, ?, ?)`,
		l.TicketID, p.Name, p.Email, p.Phone, p.Organization)
	if err != nil {
		return nil, translateDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	res, err = tx.ExecContext(ctx,
		`UPDATE tickets SET is_verified = TRUE WHERE id = ? AND is_verified = FALSE`, l.TicketID)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n != 1 {
		return nil, ErrTicketAlreadyUsed
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	p.ID = uint64(id)
	p.TicketID = l.TicketID
	l.IsVerified = true
	return l, nil
}

func scanLookup(row rowScanner) (*model.TicketLookup, error) {
	var (
		l           model.TicketLookup
		typ         string
		description sql.NullString
	)
	if err := row.Scan(&l.TicketID, &l.Token, &l.IsVerified,
		&l.Event.ID, &l.Event.Name, &typ, &l.Event.Location, &description,
		&l.Event.StartTime, &l.Event.EndTime); err != nil {
		return nil, err
	}
	l.Event.Type = model.EventType(typ)
	l.Event.Description = description.String
	return &l, nil
}

func normalizeToken(token string) string {
	return strings.ToUpper(strings.TrimSpace(token))
}
