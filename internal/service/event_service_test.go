package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/event-ticketing/internal/apperr"
	"github.com/iliyamo/event-ticketing/internal/metrics"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

var tokenPattern = regexp.MustCompile(`^[0-9A-F]{12}$`)

func newEventSvc(db *fakeDB, st *memStore) (*EventService, *metrics.Metrics) {
	m := metrics.New()
	svc := NewEventService(db, st, m, zap.NewNop(), EventServiceConfig{
		BaseURL: "https://tickets.example.com", QRSize: 64, QRWorkers: 4,
	})
	return svc, m
}

func introTalk() EventInput {
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return EventInput{
		Name:      "Intro Talk",
		Type:      model.EventTypeSeminar,
		Location:  "Hall A",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Quota:     3,
	}
}

func TestEventService_Create_IssuesQuotaTickets(t *testing.T) {
	db, st := newFakeDB(), newMemStore()
	svc, m := newEventSvc(db, st)

	res, err := svc.Create(context.Background(), introTalk(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TicketsGenerated)

	ev := db.events[res.EventID]
	require.NotNil(t, ev)
	assert.Equal(t, "intro-talk", ev.Slug)
	assert.Nil(t, ev.TicketDesign)

	tickets := db.tickets[res.EventID]
	require.Len(t, tickets, 3)
	seen := map[string]bool{}
	for _, tk := range tickets {
		assert.Regexp(t, tokenPattern, tk.Token)
		assert.False(t, tk.IsVerified)
		assert.Equal(t, "/tickets/"+tk.Token+".png", tk.QRCodeURL)
		assert.True(t, st.has(tk.QRCodeURL))
		seen[tk.Token] = true
	}
	assert.Len(t, seen, 3, "tokens must be unique")
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TicketsIssued))
}

func TestEventService_Create_EncodesRegistrationLink(t *testing.T) {
	db, st := newFakeDB(), newMemStore()
	svc, _ := newEventSvc(db, st)
	var links []string
	svc.renderQR = func(content string, _ int) ([]byte, error) {
		links = append(links, content)
		return []byte("png"), nil
	}
	svc.cfg.QRWorkers = 1
	svc.newTokens = func(int) []string { return []string{"ABCDEF123456"} }

	in := introTalk()
	in.Quota = 1
	_, err := svc.Create(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://tickets.example.com/register?token=ABCDEF123456"}, links)
}

func TestEventService_Create_StoresDesign(t *testing.T) {
	db, st := newFakeDB(), newMemStore()
	svc, _ := newEventSvc(db, st)
	svc.now = func() time.Time { return time.Unix(0, 42) }

	res, err := svc.Create(context.Background(), introTalk(), &DesignUpload{
		Filename: "../my design.png", ContentType: "image/png", Data: []byte("design"),
	})
	require.NoError(t, err)

	ev := db.events[res.EventID]
	require.NotNil(t, ev.TicketDesign)
	assert.Equal(t, "/uploads/ticket-42-my_design.png", *ev.TicketDesign)
	assert.Equal(t, int64(6), *ev.DesignSize)
	assert.True(t, st.has(*ev.TicketDesign))
	require.Len(t, db.uploads, 1)
	assert.Equal(t, model.UploadTypeTicketDesign, db.uploads[0].UploadType)
}

func TestEventService_Create_Validation(t *testing.T) {
	svc, _ := newEventSvc(newFakeDB(), newMemStore())

	_, err := svc.Create(context.Background(), EventInput{Type: "Concert", Quota: 0}, nil)
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{"name", "type", "location", "startTime", "endTime", "quota"}, verr.Fields)

	in := introTalk()
	in.Name = "!!!"
	_, err = svc.Create(context.Background(), in, nil)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"slug"}, verr.Fields)
}

func TestEventService_Create_DuplicateSlug(t *testing.T) {
	db, st := newFakeDB(), newMemStore()
	svc, _ := newEventSvc(db, st)

	_, err := svc.Create(context.Background(), introTalk(), nil)
	require.NoError(t, err)

	again := introTalk()
	again.Slug = "Intro Talk"
	_, err = svc.Create(context.Background(), again, nil)
	assert.True(t, apperr.IsConflict(err))
	assert.Equal(t, 3, db.ticketCount(), "rejected attempt must not add tickets")
	assert.Equal(t, 3, st.len())
}

func TestEventService_Create_SlugRaceCleansUp(t *testing.T) {
	db, st := newFakeDB(), newMemStore()
	svc, _ := newEventSvc(db, st)
	// The pre-check passes but the unique index rejects the insert.
	svc.events = racingStore{fakeDB: db}

	_, err := svc.Create(context.Background(), introTalk(), &DesignUpload{Filename: "d.png", Data: []byte("x")})
	assert.True(t, apperr.IsConflict(err))
	assert.Equal(t, 0, st.len(), "written artifacts must be removed")
	assert.Equal(t, 0, db.ticketCount())
}

type racingStore struct{ *fakeDB }

func (racingStore) CreateWithTickets(context.Context, *model.Event, []*model.Ticket, *model.FileUpload) error {
	return repository.ErrDuplicateSlug
}

func TestEventService_Create_StorageFailureLeavesNothing(t *testing.T) {
	db, st := newFakeDB(), newMemStore()
	st.failAfter = 3
	svc, _ := newEventSvc(db, st)

	_, err := svc.Create(context.Background(), introTalk(), nil)
	assert.True(t, apperr.IsStorage(err))
	assert.Empty(t, db.events)
	assert.Equal(t, 0, st.len())
}

func TestEventService_Create_DatabaseFailureLeavesNothing(t *testing.T) {
	db, st := newFakeDB(), newMemStore()
	db.createErr = errors.New("connection reset")
	svc, _ := newEventSvc(db, st)

	_, err := svc.Create(context.Background(), introTalk(), nil)
	var serr *apperr.StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "insert event", serr.Op)
	assert.Equal(t, 0, st.len())
}

func TestEventService_Update(t *testing.T) {
	db, st := newFakeDB(), newMemStore()
	svc, _ := newEventSvc(db, st)
	ctx := context.Background()

	res, err := svc.Create(ctx, introTalk(), nil)
	require.NoError(t, err)
	other := introTalk()
	other.Name = "Deep Dive"
	_, err = svc.Create(ctx, other, nil)
	require.NoError(t, err)

	t.Run("raising quota issues the difference", func(t *testing.T) {
		in := introTalk()
		in.Slug = "intro-talk"
		in.Quota = 5
		in.Location = "Hall B"
		sum, err := svc.Update(ctx, res.EventID, in)
		require.NoError(t, err)
		assert.Equal(t, 5, sum.TotalTickets)
		assert.Equal(t, 5, sum.Quota)
		assert.Equal(t, "Hall B", sum.Location)
	})

	t.Run("quota below issued is rejected", func(t *testing.T) {
		in := introTalk()
		in.Slug = "intro-talk"
		in.Quota = 2
		_, err := svc.Update(ctx, res.EventID, in)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("slug of another event conflicts", func(t *testing.T) {
		in := introTalk()
		in.Slug = "deep-dive"
		in.Quota = 5
		_, err := svc.Update(ctx, res.EventID, in)
		assert.True(t, apperr.IsConflict(err))
	})

	t.Run("slug is required", func(t *testing.T) {
		in := introTalk()
		in.Quota = 5
		_, err := svc.Update(ctx, res.EventID, in)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("unknown event", func(t *testing.T) {
		in := introTalk()
		in.Slug = "x"
		_, err := svc.Update(ctx, 999, in)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestEventService_Delete(t *testing.T) {
	db, st := newFakeDB(), newMemStore()
	svc, _ := newEventSvc(db, st)
	ctx := context.Background()

	res, err := svc.Create(ctx, introTalk(), &DesignUpload{Filename: "d.png", ContentType: "image/png", Data: []byte("x")})
	require.NoError(t, err)
	require.Equal(t, 4, st.len())

	outcomes, err := svc.Delete(ctx, res.EventID)
	require.NoError(t, err)
	assert.Len(t, outcomes, 4)
	for _, o := range outcomes {
		assert.True(t, o.OK(), o.Ref)
	}
	assert.Equal(t, 0, st.len())
	assert.Equal(t, 0, db.ticketCount())

	_, err = svc.Get(ctx, res.EventID)
	assert.True(t, apperr.IsNotFound(err))

	_, err = svc.Delete(ctx, res.EventID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestEventService_Delete_ArtifactFailureIsReported(t *testing.T) {
	db, st := newFakeDB(), newMemStore()
	svc, m := newEventSvc(db, st)
	ctx := context.Background()

	res, err := svc.Create(ctx, introTalk(), nil)
	require.NoError(t, err)
	st.deleteErr = errors.New("permission denied")

	outcomes, err := svc.Delete(ctx, res.EventID)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.False(t, outcomes[0].OK())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ArtifactCleanup.WithLabelValues(metrics.ResultError)))
}

func TestEventService_GetListTickets(t *testing.T) {
	db, st := newFakeDB(), newMemStore()
	svc, _ := newEventSvc(db, st)
	ctx := context.Background()

	res, err := svc.Create(ctx, introTalk(), nil)
	require.NoError(t, err)

	d, err := svc.Get(ctx, res.EventID)
	require.NoError(t, err)
	assert.Equal(t, 3, d.TotalTickets)
	assert.Empty(t, d.Participants)

	list, err := svc.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	ts, err := svc.Tickets(ctx, res.EventID)
	require.NoError(t, err)
	assert.Len(t, ts, 3)

	_, err = svc.Tickets(ctx, 404)
	assert.True(t, apperr.IsNotFound(err))
}
