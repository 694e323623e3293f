package guard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	held map[string]bool
	err  error
}

func (f *fakeResolver) HasAny(ctx context.Context, userID int64, codes ...string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, code := range codes {
		if f.held[code] {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeResolver) HasAll(ctx context.Context, userID int64, codes ...string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, code := range codes {
		if !f.held[code] {
			return false, nil
		}
	}
	return true, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestIdentityRejectsMissingOrInvalidActor(t *testing.T) {
	handler := Identity()(okHandler())

	for _, header := range []string{"", "abc", "0", "-3"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(ActorHeader, header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestIdentityStoresActorInContext(t *testing.T) {
	var got Actor
	handler := Identity()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		require.True(t, ok)
		got = actor
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, " 42 ")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, int64(42), got.ID)
}

func requestWithActor(id int64) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return req.WithContext(ContextWithActor(req.Context(), Actor{ID: id}))
}

func TestRequireAny(t *testing.T) {
	m := Middleware{Resolver: &fakeResolver{held: map[string]bool{"grants.view": true}}}
	handler := m.RequireAny("grants.view", "grants.manage")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithActor(1))
	require.Equal(t, http.StatusOK, rec.Code)

	// No actor in context means the identity layer was skipped.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	denied := Middleware{Resolver: &fakeResolver{held: map[string]bool{}}}
	rec = httptest.NewRecorder()
	denied.RequireAny("grants.manage")(okHandler()).ServeHTTP(rec, requestWithActor(1))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	m := Middleware{Resolver: &fakeResolver{held: map[string]bool{"grants.view": true}}}

	rec := httptest.NewRecorder()
	m.RequireAll("grants.view")(okHandler()).ServeHTTP(rec, requestWithActor(1))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	m.RequireAll("grants.view", "grants.manage")(okHandler()).ServeHTTP(rec, requestWithActor(1))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireNormalizesCodes(t *testing.T) {
	m := Middleware{Resolver: &fakeResolver{held: map[string]bool{"grants.view": true}}}

	rec := httptest.NewRecorder()
	m.RequireAny(" Grants.View ")(okHandler()).ServeHTTP(rec, requestWithActor(1))
	require.Equal(t, http.StatusOK, rec.Code)

	// Empty requirement lists never gate.
	rec = httptest.NewRecorder()
	m.RequireAll("", "  ")(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireFailsClosedOnResolverError(t *testing.T) {
	m := Middleware{Resolver: &fakeResolver{err: errors.New("store down")}}

	rec := httptest.NewRecorder()
	m.RequireAny("grants.view")(okHandler()).ServeHTTP(rec, requestWithActor(1))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	m.RequireAll("grants.view")(okHandler()).ServeHTTP(rec, requestWithActor(1))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
