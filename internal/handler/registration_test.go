package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/event-ticketing/internal/apperr"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/service"
)

type fakeRegistrations struct {
	got       service.RegisterInput
	err       error
	notifyErr error
}

func (f *fakeRegistrations) Lookup(_ context.Context, token string) (*model.EventBrief, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.EventBrief{ID: 1, Name: "Go Day " + token}, nil
}

func (f *fakeRegistrations) Register(_ context.Context, in service.RegisterInput) (service.RegisterResult, error) {
	f.got = in
	if f.err != nil {
		return service.RegisterResult{}, f.err
	}
	return service.RegisterResult{
		ParticipantID: 11,
		Notification:  service.BestEffort{Op: "notify", Err: f.notifyErr},
	}, nil
}

func newRegistrationEcho(f *fakeRegistrations) *echo.Echo {
	h := NewRegistrationHandler(f, zap.NewNop(), time.Second)
	e := echo.New()
	e.GET("/register", h.Lookup)
	e.POST("/register", h.Register)
	return e
}

func TestRegistrationHandler_Lookup(t *testing.T) {
	rec := serve(newRegistrationEcho(&fakeRegistrations{}), httptest.NewRequest(http.MethodGet, "/register?token=ABC", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	ev := decode(t, rec)["event"].(map[string]any)
	assert.Equal(t, "Go Day ABC", ev["name"])

	f := &fakeRegistrations{err: &apperr.AlreadyUsedError{Token: "ABC"}}
	rec = serve(newRegistrationEcho(f), httptest.NewRequest(http.MethodGet, "/register?token=ABC", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "this ticket has already been used", decode(t, rec)["error"])
}

func TestRegistrationHandler_Register(t *testing.T) {
	f := &fakeRegistrations{}
	body := `{"token":"ABCDEF123456","name":"Ada","email":"ada@example.com","phone":"0812"}`
	rec := serve(newRegistrationEcho(f), jsonReq(http.MethodPost, "/register", body))

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "Registration successful", out["message"])
	assert.EqualValues(t, 11, out["participantId"])
	assert.Equal(t, true, out["emailSent"])
	assert.Equal(t, "ABCDEF123456", f.got.Token)
	assert.Equal(t, "0812", f.got.Phone)
}

func TestRegistrationHandler_RegisterNotificationFailureStillSucceeds(t *testing.T) {
	f := &fakeRegistrations{notifyErr: errors.New("smtp down")}
	rec := serve(newRegistrationEcho(f), jsonReq(http.MethodPost, "/register", `{"token":"T","name":"A","email":"a@b.co"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["emailSent"])
}

func TestRegistrationHandler_RegisterErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"malformed body", `{"token":`, nil, http.StatusBadRequest},
		{"unknown token", `{"token":"T"}`, &apperr.NotFoundError{Resource: "ticket"}, http.StatusNotFound},
		{"invalid fields", `{"token":"T"}`, apperr.Validation("name", "email"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newRegistrationEcho(&fakeRegistrations{err: tt.err}), jsonReq(http.MethodPost, "/register", tt.body))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

type fakeDashboard struct {
	recentLimit int
	err         error
}

func (f *fakeDashboard) Stats(context.Context) (model.DashboardStats, error) {
	return model.DashboardStats{TotalEvents: 2, TotalTickets: 10, VerifiedTickets: 4, TotalParticipants: 4}, f.err
}

func (f *fakeDashboard) RecentEvents(_ context.Context, limit int) ([]*model.EventSummary, error) {
	f.recentLimit = limit
	return []*model.EventSummary{}, nil
}

func (f *fakeDashboard) Certificates(context.Context) ([]*model.CertificateDetail, error) {
	return []*model.CertificateDetail{{ParticipantName: "Ada"}}, f.err
}

func TestDashboardHandler(t *testing.T) {
	f := &fakeDashboard{}
	h := NewDashboardHandler(f, zap.NewNop(), time.Second)
	e := echo.New()
	e.GET("/dashboard/stats", h.Stats)
	e.GET("/certificates", h.Certificates)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/dashboard/stats?recent=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)["stats"].(map[string]any)
	assert.EqualValues(t, 10, stats["totalTickets"])
	assert.Equal(t, 3, f.recentLimit)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/certificates", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["certificates"], 1)

	f.err = errors.New("db down")
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/certificates", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", Health(fakePinger{}))
	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)

	e = echo.New()
	e.GET("/healthz", Health(fakePinger{err: errors.New("down")}))
	assert.Equal(t, http.StatusServiceUnavailable, serve(e, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}
