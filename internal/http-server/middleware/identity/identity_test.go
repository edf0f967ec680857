package identity

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"session-scheduler/internal/models"
)

func TestNew(t *testing.T) {
	var got models.Actor
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	tests := []struct {
		name   string
		userID string
		role   string
		status int
	}{
		{name: "mentee", userID: "u1", role: "mentee", status: http.StatusOK},
		{name: "missing user", role: "mentor", status: http.StatusUnauthorized},
		{name: "unknown role", userID: "u1", role: "admin", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderUserID, tt.userID)
			req.Header.Set(HeaderRole, tt.role)
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
		})
	}

	assert.Equal(t, models.Actor{UserID: "u1", Role: models.RoleMentee}, got)
}
