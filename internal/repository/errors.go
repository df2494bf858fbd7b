// Package repository defines error types that are reused across multiple
// repositories. Services translate these sentinels into the apperr taxonomy;
// handlers never see them directly.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrEventNotFound is returned when no event has the requested id.
	ErrEventNotFound = errors.New("event not found")
	// ErrTicketNotFound is returned when no ticket carries the token.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrTicketAlreadyUsed is returned when a claimed ticket is claimed again.
	ErrTicketAlreadyUsed = errors.New("ticket already used")
	// ErrDuplicateSlug is returned when the unique index on events.slug rejects a write.
	ErrDuplicateSlug = errors.New("duplicate slug")
	// ErrDuplicateToken is returned when the unique index on tickets.token rejects a write.
	ErrDuplicateToken = errors.New("duplicate ticket token")
	// ErrQuotaBelowIssued is returned when an update would leave more tickets than quota.
	ErrQuotaBelowIssued = errors.New("quota lower than issued tickets")
	// ErrInventoryChanged is returned when the ticket count moved between read and write.
	ErrInventoryChanged = errors.New("ticket inventory changed concurrently")
	// ErrEmailExists is returned when a staff email is already registered.
	ErrEmailExists = errors.New("email already exists")
)

const mysqlDuplicateEntry = 1062

// duplicateKey reports whether err is a MySQL duplicate-entry error, and on
// which index.
func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
		return "", false
	}
	// Message format: Duplicate entry 'x' for key 'events.uq_events_slug'
	msg := me.Message
	if i := strings.LastIndex(msg, "for key "); i >= 0 {
		return strings.Trim(msg[i+len("for key "):], "'`"), true
	}
	return "", true
}

// translateDuplicate maps unique-index violations onto the sentinels above.
func translateDuplicate(err error) error {
	key, ok := duplicateKey(err)
	if !ok {
		return err
	}
	switch {
	case strings.HasSuffix(key, "uq_events_slug"):
		return ErrDuplicateSlug
	case strings.HasSuffix(key, "uq_tickets_token"):
		return ErrDuplicateToken
	case strings.HasSuffix(key, "uq_participants_ticket"):
		return ErrTicketAlreadyUsed
	case strings.HasSuffix(key, "uq_users_email"):
		return ErrEmailExists
	}
	return err
}
