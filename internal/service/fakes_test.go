package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// fakeDB is an in-memory EventStore, TicketStore and CertificateStore.
type fakeDB struct {
	mu           sync.Mutex
	nextID       uint64
	events       map[uint64]*model.Event
	tickets      map[uint64][]*model.Ticket
	participants map[uint64]*model.ParticipantDetail // by ticket id
	uploads      []*model.FileUpload
	certs        []*model.CertificateDetail

	createErr error
	statsErr  error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		events:       map[uint64]*model.Event{},
		tickets:      map[uint64][]*model.Ticket{},
		participants: map[uint64]*model.ParticipantDetail{},
	}
}

func (f *fakeDB) id() uint64 {
	f.nextID++
	return f.nextID
}

func (f *fakeDB) SlugTaken(_ context.Context, slug string, excludeID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ev := range f.events {
		if ev.Slug == slug && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDB) CreateWithTickets(_ context.Context, ev *model.Event, tickets []*model.Ticket, design *model.FileUpload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, other := range f.events {
		if other.Slug == ev.Slug {
			return repository.ErrDuplicateSlug
		}
	}
	ev.ID = f.id()
	ev.CreatedAt = time.Now()
	cp := *ev
	f.events[ev.ID] = &cp
	for _, t := range tickets {
		t.ID = f.id()
		t.EventID = ev.ID
		f.tickets[ev.ID] = append(f.tickets[ev.ID], t)
	}
	if design != nil {
		design.RelatedID = &ev.ID
		f.uploads = append(f.uploads, design)
	}
	return nil
}

func (f *fakeDB) summary(id uint64) *model.EventSummary {
	s := &model.EventSummary{Event: *f.events[id]}
	for _, t := range f.tickets[id] {
		s.TotalTickets++
		if t.IsVerified {
			s.VerifiedTickets++
		}
	}
	return s
}

func (f *fakeDB) GetSummary(_ context.Context, id uint64) (*model.EventSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[id]; !ok {
		return nil, repository.ErrEventNotFound
	}
	return f.summary(id), nil
}

func (f *fakeDB) List(_ context.Context, limit int) ([]*model.EventSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uint64, 0, len(f.events))
	for id := range f.events {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*model.EventSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.summary(id))
	}
	return out, nil
}

func (f *fakeDB) Update(_ context.Context, ev *model.Event, issued int, extra []*model.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.events[ev.ID]
	if !ok {
		return repository.ErrEventNotFound
	}
	n := len(f.tickets[ev.ID])
	if n > ev.Quota {
		return repository.ErrQuotaBelowIssued
	}
	if n != issued {
		return repository.ErrInventoryChanged
	}
	for id, other := range f.events {
		if other.Slug == ev.Slug && id != ev.ID {
			return repository.ErrDuplicateSlug
		}
	}
	cp := *ev
	cp.TicketDesign, cp.DesignSize, cp.DesignMime = cur.TicketDesign, cur.DesignSize, cur.DesignMime
	f.events[ev.ID] = &cp
	for _, t := range extra {
		t.ID = f.id()
		t.EventID = ev.ID
		f.tickets[ev.ID] = append(f.tickets[ev.ID], t)
	}
	return nil
}

func (f *fakeDB) Delete(_ context.Context, id uint64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	var refs []string
	if ev.TicketDesign != nil {
		refs = append(refs, *ev.TicketDesign)
	}
	for _, t := range f.tickets[id] {
		refs = append(refs, t.QRCodeURL)
		delete(f.participants, t.ID)
	}
	delete(f.tickets, id)
	delete(f.events, id)
	return refs, nil
}

func (f *fakeDB) ListParticipants(_ context.Context, eventID uint64) ([]*model.ParticipantDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.ParticipantDetail{}
	for _, t := range f.tickets[eventID] {
		if p, ok := f.participants[t.ID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeDB) ListTickets(_ context.Context, eventID uint64) ([]*model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*model.Ticket{}, f.tickets[eventID]...), nil
}

func (f *fakeDB) Stats(_ context.Context) (model.DashboardStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statsErr != nil {
		return model.DashboardStats{}, f.statsErr
	}
	s := model.DashboardStats{TotalEvents: len(f.events), TotalParticipants: len(f.participants)}
	for _, ts := range f.tickets {
		for _, t := range ts {
			s.TotalTickets++
			if t.IsVerified {
				s.VerifiedTickets++
			}
		}
	}
	return s, nil
}

func (f *fakeDB) find(token string) (*model.Ticket, *model.Event) {
	token = strings.ToUpper(strings.TrimSpace(token))
	for id, ts := range f.tickets {
		for _, t := range ts {
			if t.Token == token {
				return t, f.events[id]
			}
		}
	}
	return nil, nil
}

func lookupOf(t *model.Ticket, ev *model.Event) *model.TicketLookup {
	return &model.TicketLookup{
		TicketID:   t.ID,
		Token:      t.Token,
		IsVerified: t.IsVerified,
		Event: model.EventBrief{
			ID: ev.ID, Name: ev.Name, Type: ev.Type, Location: ev.Location,
			Description: ev.Description, StartTime: ev.StartTime, EndTime: ev.EndTime,
		},
	}
}

func (f *fakeDB) LookupByToken(_ context.Context, token string) (*model.TicketLookup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ev := f.find(token)
	if t == nil {
		return nil, repository.ErrTicketNotFound
	}
	return lookupOf(t, ev), nil
}

func (f *fakeDB) Claim(_ context.Context, token string, p *model.Participant) (*model.TicketLookup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ev := f.find(token)
	if t == nil {
		return nil, repository.ErrTicketNotFound
	}
	if t.IsVerified {
		return nil, repository.ErrTicketAlreadyUsed
	}
	t.IsVerified = true
	p.ID = f.id()
	p.TicketID = t.ID
	f.participants[t.ID] = &model.ParticipantDetail{Participant: *p, Token: t.Token, IsVerified: true}
	return lookupOf(t, ev), nil
}

func (f *fakeDB) countParticipants() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.participants)
}

func (f *fakeDB) ticketCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ts := range f.tickets {
		n += len(ts)
	}
	return n
}

// List implements CertificateStore on a separate type to avoid clashing
// with EventStore.List.
type fakeCerts struct{ db *fakeDB }

func (c fakeCerts) List(context.Context) ([]*model.CertificateDetail, error) {
	return c.db.certs, nil
}

// memStore is an in-memory storage.Store.
type memStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	failAfter int // fail the Nth Put (1-based); 0 never
	puts      int
	deleteErr error
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.failAfter > 0 && m.puts >= m.failAfter {
		return "", errors.New("disk full")
	}
	ref := "/" + key
	m.objects[ref] = body
	return ref, nil
}

func (m *memStore) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.objects, ref)
	return nil
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func (m *memStore) has(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[ref]
	return ok
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []queue.RegistrationConfirmedEvent
	err  error
}

func (n *fakeNotifier) NotifyRegistration(_ context.Context, ev queue.RegistrationConfirmedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, ev)
	return n.err
}
