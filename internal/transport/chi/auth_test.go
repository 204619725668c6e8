package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		keys       []string
		path       string
		header     string
		wantStatus int
	}{
		{"no keys disables auth", nil, "/api/v1/search", "", http.StatusOK},
		{"blank keys disable auth", []string{"", ""}, "/api/v1/search", "", http.StatusOK},
		{"missing header", []string{"secret"}, "/api/v1/search", "", http.StatusUnauthorized},
		{"basic scheme", []string{"secret"}, "/api/v1/search", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"wrong key", []string{"secret"}, "/api/v1/search", "Bearer wrong-key", http.StatusUnauthorized},
		{"key prefix is not enough", []string{"secret"}, "/api/v1/search", "Bearer secre", http.StatusUnauthorized},
		{"valid key", []string{"secret"}, "/api/v1/index/stats", "Bearer secret", http.StatusOK},
		{"second of two keys", []string{"key1", "key2"}, "/api/v1/analytics", "Bearer key2", http.StatusOK},
		{"health exempt", []string{"secret"}, "/health", "", http.StatusOK},
		{"metrics exempt", []string{"secret"}, "/metrics", "", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := BearerAuthMiddleware(tc.keys)(okHandler())

			req := httptest.NewRequest(http.MethodGet, tc.path, http.NoBody)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
			if tc.wantStatus != http.StatusUnauthorized {
				return
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Code != ErrorCodeUnauthorized {
				t.Errorf("error code = %s, want %s", errResp.Code, ErrorCodeUnauthorized)
			}
		})
	}
}
