package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClaims struct {
	operator string
}

func (c *stubClaims) GetOperator() string { return c.operator }

type stubValidator struct {
	validToken string
	operator   string
}

func (v *stubValidator) ValidateToken(tokenString string) (OperatorGetter, error) {
	if tokenString != v.validToken {
		return nil, fmt.Errorf("invalid token")
	}
	return &stubClaims{operator: v.operator}, nil
}

func TestAuthMiddleware(t *testing.T) {
	validator := &stubValidator{validToken: "good-token", operator: "alex@example.com"}

	var gotOperator string
	handler := AuthMiddleware(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		operator, err := GetOperator(r)
		require.NoError(t, err)
		gotOperator = operator
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid bearer token", "Bearer good-token", http.StatusOK},
		{"lowercase bearer prefix", "bearer good-token", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good-token", http.StatusUnauthorized},
		{"invalid token", "Bearer bad-token", http.StatusUnauthorized},
		{"bearer without token", "Bearer", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotOperator = ""
			req := httptest.NewRequest("POST", "/pipeline/runs/r1/approve", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "alex@example.com", gotOperator)
			}
		})
	}
}

func TestGetOperatorWithoutAuth(t *testing.T) {
	req := httptest.NewRequest("GET", "/campaigns", nil)
	_, err := GetOperator(req)
	require.Error(t, err)
}
