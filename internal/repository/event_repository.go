// Package repository contains data access logic separated from HTTP handlers.
// This file holds the event store: event rows, their ticket inventory and the
// dashboard aggregates computed from them.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// ticketInsertBatch bounds the number of rows sent in one multi-row INSERT.
const ticketInsertBatch = 500

// EventRepo encapsulates all queries related to events and their tickets.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the provided DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// SlugTaken reports whether another event (id != excludeID) already uses slug.
// Pass excludeID 0 when creating.
func (r *EventRepo) SlugTaken(ctx context.Context, slug string, excludeID uint64) (bool, error) {
	var id uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM events WHERE slug = ? AND id != ? LIMIT 1`, slug, excludeID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateWithTickets inserts the event, the optional design upload audit row
// and every ticket inside one transaction. On success ev.ID and the
// tickets' EventID are populated. Any failure rolls everything back.
func (r *EventRepo) CreateWithTickets(ctx context.Context, ev *model.Event, tickets []*model.Ticket, design *model.FileUpload) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const qInsert = `INSERT INTO events
		(name, slug, type, location, description, start_time, end_time, quota,
		 ticket_design, ticket_design_size, ticket_design_mime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, qInsert,
		ev.Name, ev.Slug, string(ev.Type), ev.Location, nullString(ev.Description),
		ev.StartTime.UTC(), ev.EndTime.UTC(), ev.Quota,
		ev.TicketDesign, ev.DesignSize, ev.DesignMime)
	if err != nil {
		return translateDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)

	if design != nil {
		design.RelatedID = &ev.ID
		if err = insertUploadTx(ctx, tx, design); err != nil {
			return err
		}
	}
	for _, t := range tickets {
		t.EventID = ev.ID
	}
	if err = insertTicketsTx(ctx, tx, tickets); err != nil {
		return err
	}
	return tx.Commit()
}

// GetSummary returns an event with its ticket aggregates.
func (r *EventRepo) GetSummary(ctx context.Context, id uint64) (*model.EventSummary, error) {
	q := summarySelect + ` WHERE e.id = ? GROUP BY e.id`
	row := r.db.QueryRowContext(ctx, q, id)
	s, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// List returns events with aggregates, newest first. limit <= 0 returns all.
func (r *EventRepo) List(ctx context.Context, limit int) ([]*model.EventSummary, error) {
	q := summarySelect + ` GROUP BY e.id ORDER BY e.created_at DESC, e.id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.EventSummary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update rewrites the editable columns of ev and appends extra tickets in the
// same transaction. The event row is locked so concurrent quota changes are
// serialised; the call fails with ErrInventoryChanged when the issued count
// no longer matches what the caller planned for.
func (r *EventRepo) Update(ctx context.Context, ev *model.Event, issued int, extra []*model.Ticket) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	if err = tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = ? FOR UPDATE`, ev.ID).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return err
	}
	var count int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets WHERE event_id = ?`, ev.ID).Scan(&count); err != nil {
		return err
	}
	if count > ev.Quota {
		return ErrQuotaBelowIssued
	}
	if count != issued {
		return ErrInventoryChanged
	}

	const qUpdate = `UPDATE events
		SET name = ?, slug = ?, type = ?, location = ?, description = ?,
		    start_time = ?, end_time = ?, quota = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	if _, err = tx.ExecContext(ctx, qUpdate,
		ev.Name, ev.Slug, string(ev.Type), ev.Location, nullString(ev.Description),
		ev.StartTime.UTC(), ev.EndTime.UTC(), ev.Quota, ev.ID); err != nil {
		return translateDuplicate(err)
	}
	for _, t := range extra {
		t.EventID = ev.ID
	}
	if err = insertTicketsTx(ctx, tx, extra); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes an event; the foreign keys cascade to tickets, participants
// and certificates. It returns the artifact references (design and QR
// images) that belonged to the event so the caller can clean them up.
func (r *EventRepo) Delete(ctx context.Context, id uint64) (artifacts []string, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var design sql.NullString
	if err = tx.QueryRowContext(ctx, `SELECT ticket_design FROM events WHERE id = ? FOR UPDATE`, id).Scan(&design); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if design.Valid && design.String != "" {
		artifacts = append(artifacts, design.String)
	}

	rows, err := tx.QueryContext(ctx, `SELECT qr_code_url FROM tickets WHERE event_id = ?`, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var ref string
		if err = rows.Scan(&ref); err != nil {
			rows.Close()
			return nil, err
		}
		artifacts = append(artifacts, ref)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// ListParticipants returns the participants of an event with the token of
// the ticket each one claimed, newest registration first.
func (r *EventRepo) ListParticipants(ctx context.Context, eventID uint64) ([]*model.ParticipantDetail, error) {
	const q = `SELECT p.id, p.ticket_id, p.name, p.email, p.phone, p.organization, p.registered_at,
	                  t.token, t.is_verified
	           FROM participants p
	           JOIN tickets t ON p.ticket_id = t.id
	           WHERE t.event_id = ?
	           ORDER BY p.registered_at DESC, p.id DESC`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.ParticipantDetail{}
	for rows.Next() {
		var (
			p          model.ParticipantDetail
			phone, org sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.TicketID, &p.Name, &p.Email, &phone, &org, &p.RegisteredAt,
			&p.Token, &p.IsVerified); err != nil {
			return nil, err
		}
		p.Phone = stringPtr(phone)
		p.Organization = stringPtr(org)
		out = append(out, &p)
	}
	return out, rows.Err()
}

// ListTickets returns the ticket inventory of an event in issue order.
func (r *EventRepo) ListTickets(ctx context.Context, eventID uint64) ([]*model.Ticket, error) {
	const q = `SELECT id, event_id, token, qr_code_url, is_verified, created_at
	           FROM tickets WHERE event_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Ticket{}
	for rows.Next() {
		t := new(model.Ticket)
		if err := rows.Scan(&t.ID, &t.EventID, &t.Token, &t.QRCodeURL, &t.IsVerified, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Stats returns the dashboard counters.
func (r *EventRepo) Stats(ctx context.Context) (model.DashboardStats, error) {
	const q = `SELECT
	             (SELECT COUNT(*) FROM events),
	             (SELECT COUNT(*) FROM participants),
	             (SELECT COUNT(*) FROM tickets),
	             (SELECT COUNT(*) FROM tickets WHERE is_verified = TRUE)`
	var s model.DashboardStats
	err := r.db.QueryRowContext(ctx, q).Scan(&s.TotalEvents, &s.TotalParticipants, &s.TotalTickets, &s.VerifiedTickets)
	return s, err
}

const summarySelect = `SELECT e.id, e.name, e.slug, e.type, e.location, e.description,
       e.start_time, e.end_time, e.quota, e.ticket_design, e.ticket_design_size, e.ticket_design_mime,
       e.created_at, e.updated_at,
       COUNT(t.id) AS total_tickets,
       COUNT(CASE WHEN t.is_verified = TRUE THEN 1 END) AS verified_tickets
FROM events e
LEFT JOIN tickets t ON e.id = t.event_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (*model.EventSummary, error) {
	var (
		s           model.EventSummary
		typ         string
		description sql.NullString
		design      sql.NullString
		size        sql.NullInt64
		mime        sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Slug, &typ, &s.Location, &description,
		&s.StartTime, &s.EndTime, &s.Quota, &design, &size, &mime,
		&s.CreatedAt, &s.UpdatedAt, &s.TotalTickets, &s.VerifiedTickets); err != nil {
		return nil, err
	}
	s.Type = model.EventType(typ)
	s.Description = description.String
	s.TicketDesign = stringPtr(design)
	s.DesignMime = stringPtr(mime)
	if size.Valid {
		v := size.Int64
		s.DesignSize = &v
	}
	return &s, nil
}

func insertTicketsTx(ctx context.Context, tx *sql.Tx, tickets []*model.Ticket) error {
	for start := 0; start < len(tickets); start += ticketInsertBatch {
		end := start + ticketInsertBatch
		if end > len(tickets) {
			end = len(tickets)
		}
		batch := tickets[start:end]
		var sb strings.Builder
		sb.WriteString(`INSERT INTO tickets (event_id, token, qr_code_url, is_verified) VALUES `)
		args := make([]any, 0, len(batch)*3)
		for i, t := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, FALSE)")
			args = append(args, t.EventID, t.Token, t.QRCodeURL)
		}
		res, err := tx.ExecContext(ctx, sb.String(), args...)
		if err != nil {
			return translateDuplicate(err)
		}
		// MySQL reports the id of the first row of a multi-row insert; with
		// the default auto-increment lock mode the ids are consecutive.
		first, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for i, t := range batch {
			t.ID = uint64(first) + uint64(i)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
