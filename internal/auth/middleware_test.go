package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ariefcatur/go-storefront/internal/apperr"
)

func denyStatus(w http.ResponseWriter, _ *http.Request, err error) {
	if errors.Is(err, apperr.ErrForbidden) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	w.WriteHeader(http.StatusUnauthorized)
}

func TestRequireUserAndAdmin(t *testing.T) {
	svc, _ := newService()
	customer, _ := svc.Issue(Principal{UserID: "u-1", Role: RoleCustomer})
	admin, _ := svc.Issue(Principal{UserID: "u-2", Role: RoleAdmin})

	var seen Principal
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	user := RequireUser(svc, denyStatus)(ok)
	adminOnly := RequireUser(svc, denyStatus)(RequireAdmin(denyStatus)(ok))

	cases := []struct {
		name    string
		h       http.Handler
		header  string
		want    int
		wantUID string
	}{
		{"no header", user, "", http.StatusUnauthorized, ""},
		{"not bearer", user, "Basic abc", http.StatusUnauthorized, ""},
		{"bad token", user, "Bearer nope", http.StatusUnauthorized, ""},
		{"customer", user, "Bearer " + customer, http.StatusNoContent, "u-1"},
		{"lowercase scheme", user, "bearer " + customer, http.StatusNoContent, "u-1"},
		{"customer on admin route", adminOnly, "Bearer " + customer, http.StatusForbidden, ""},
		{"admin", adminOnly, "Bearer " + admin, http.StatusNoContent, "u-2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = Principal{}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			tc.h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
			assert.Equal(t, tc.wantUID, seen.UserID)
		})
	}
}
