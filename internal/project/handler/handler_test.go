package handler_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	donationservice "givers/internal/donation/service"
	donationstore "givers/internal/donation/store/donation"
	recurringstore "givers/internal/donation/store/recurring"
	"givers/internal/project/handler"
	projectservice "givers/internal/project/service"
	projectstore "givers/internal/project/store/project"
	userservice "givers/internal/user/service"
	userstore "givers/internal/user/store/user"
	id "givers/pkg/domain"
	"givers/pkg/platform/tx"
	"givers/pkg/requestcontext"
)

type fixture struct {
	router  chi.Router
	ownerID id.UserID
}

// authInject simulates the auth middleware by pinning the caller identity.
func authInject(userID id.UserID, now time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithUserID(r.Context(), userID)
			ctx = requestcontext.WithTime(ctx, now)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	users := userstore.NewInMemory()
	projects := projectstore.NewInMemory()
	userSvc := userservice.New(users)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	owner, err := userSvc.Register(requestcontext.WithTime(context.Background(), now),
		userservice.RegisterInput{Email: "owner@example.com"})
	require.NoError(t, err)

	donationSvc := donationservice.New(
		recurringstore.NewInMemory(), donationstore.NewInMemory(),
		userSvc, projectservice.New(projects, userSvc, nil), &tx.MemoryRunner{})
	projectSvc := projectservice.New(projects, userSvc, donationSvc)

	router := chi.NewRouter()
	router.Use(authInject(owner.ID, now))
	handler.New(projectSvc, slog.Default()).Register(router)

	return &fixture{router: router, ownerID: owner.ID}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) createProject(t *testing.T) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/projects", `{"name":"My Project"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.ID
}

func TestCreateAndGetProject(t *testing.T) {
	f := newFixture(t)
	projectID := f.createProject(t)

	w := f.do(t, http.MethodGet, "/api/projects/"+projectID, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, "My Project", resp.Name)
	require.Equal(t, "active", resp.Status)
}

func TestCreateProjectValidation(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/projects", `{"name":"  "}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/projects", `{bad json`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProjectBadID(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/projects/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/projects/"+uuid.NewString(), "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPledgeAndAchievement(t *testing.T) {
	f := newFixture(t)
	projectID := f.createProject(t)

	w := f.do(t, http.MethodPut, "/api/projects/"+projectID+"/pledge",
		`{"owner_want_monthly":30000,"cost_items":[{"label":"server","unit_price":5000,"quantity":10},{"label":"","unit_price":0,"quantity":3}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var proj struct {
		MonthlyTarget int64 `json:"monthly_target"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&proj))
	require.Equal(t, int64(50000), proj.MonthlyTarget, "itemized sum wins over the flat want, blank row dropped")

	w = f.do(t, http.MethodGet, "/api/projects/"+projectID+"/achievement", "")
	require.Equal(t, http.StatusOK, w.Code)

	var ach struct {
		Target    int64  `json:"target"`
		Rate      int    `json:"rate"`
		Signal    string `json:"signal"`
		HasTarget bool   `json:"has_target"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ach))
	require.True(t, ach.HasTarget)
	require.Equal(t, int64(50000), ach.Target)
	require.Equal(t, 0, ach.Rate)
	require.Equal(t, "critical", ach.Signal)
}

func TestAlertsValidation(t *testing.T) {
	f := newFixture(t)
	projectID := f.createProject(t)

	w := f.do(t, http.MethodPut, "/api/projects/"+projectID+"/alerts",
		`{"warning_threshold":30,"critical_threshold":60}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/api/projects/"+projectID+"/alerts",
		`{"warning_threshold":60,"critical_threshold":30}`)
	require.Equal(t, http.StatusOK, w.Code)
}
