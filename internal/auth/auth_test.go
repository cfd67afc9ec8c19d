package auth_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"github.com/JaimeStill/rancoqc/internal/auth"
	"github.com/JaimeStill/rancoqc/internal/config"
	"github.com/JaimeStill/rancoqc/pkg/routes"
)

const secret = "test-secret"

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

func operatorClaims(exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "op-17",
		"email": "maria@ranco.cl",
		"name":  "Maria Soto",
		"role":  "operator",
		"iss":   "https://id.ranco.cl",
		"aud":   "rancoqc",
		"exp":   exp.Unix(),
	}
}

func TestHMACVerify(t *testing.T) {
	v := auth.HMAC(secret, "https://id.ranco.cl", "rancoqc")
	future := time.Now().Add(time.Hour)

	t.Run("valid token", func(t *testing.T) {
		raw := sign(t, jwt.SigningMethodHS256, []byte(secret), operatorClaims(future))
		c, err := v.Verify(context.Background(), raw)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if c.Subject != "op-17" || c.Email != "maria@ranco.cl" || c.Name != "Maria Soto" {
			t.Errorf("claims = %+v", c)
		}
		if c.Admin() {
			t.Error("admin = true, want false")
		}
	})

	tests := []struct {
		name string
		raw  func() string
	}{
		{"expired", func() string {
			return sign(t, jwt.SigningMethodHS256, []byte(secret), operatorClaims(time.Now().Add(-time.Hour)))
		}},
		{"wrong secret", func() string {
			return sign(t, jwt.SigningMethodHS256, []byte("other"), operatorClaims(future))
		}},
		{"wrong issuer", func() string {
			c := operatorClaims(future)
			c["iss"] = "https://evil.example"
			return sign(t, jwt.SigningMethodHS256, []byte(secret), c)
		}},
		{"wrong audience", func() string {
			c := operatorClaims(future)
			c["aud"] = "billing"
			return sign(t, jwt.SigningMethodHS256, []byte(secret), c)
		}},
		{"no expiry", func() string {
			c := operatorClaims(future)
			delete(c, "exp")
			return sign(t, jwt.SigningMethodHS256, []byte(secret), c)
		}},
		{"garbage", func() string { return "not.a.token" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.raw())
			if !errors.Is(err, auth.ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestOIDCVerify(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	v := auth.OIDC(oidc.NewVerifier("https://id.ranco.cl", keys, &oidc.Config{ClientID: "rancoqc"}))

	claims := operatorClaims(time.Now().Add(time.Hour))
	claims["is_admin"] = true
	raw := sign(t, jwt.SigningMethodRS256, key, claims)

	c, err := v.Verify(context.Background(), raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if c.Subject != "op-17" {
		t.Errorf("subject = %q, want op-17", c.Subject)
	}
	if !c.Admin() {
		t.Error("admin = false, want true")
	}

	claims["aud"] = "billing"
	if _, err := v.Verify(context.Background(), sign(t, jwt.SigningMethodRS256, key, claims)); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestNewVerifier(t *testing.T) {
	v, err := auth.NewVerifier(context.Background(), &config.AuthConfig{Mode: config.AuthModeDisabled})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if v.Enabled() {
		t.Error("enabled = true, want false")
	}
	if _, err := v.Verify(context.Background(), "anything"); !errors.Is(err, auth.ErrAuthDisabled) {
		t.Errorf("err = %v, want ErrAuthDisabled", err)
	}

	v, err = auth.NewVerifier(context.Background(), &config.AuthConfig{Mode: config.AuthModeHMAC, Secret: secret})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if !v.Enabled() {
		t.Error("enabled = false, want true")
	}

	if _, err := auth.NewVerifier(context.Background(), &config.AuthConfig{Mode: "ldap"}); err == nil {
		t.Error("unknown mode accepted")
	}
}

func TestClaimsDisplayName(t *testing.T) {
	tests := []struct {
		claims auth.Claims
		want   string
	}{
		{auth.Claims{Subject: "s", Email: "e@x", Name: "N"}, "N"},
		{auth.Claims{Subject: "s", Email: "e@x"}, "e@x"},
		{auth.Claims{Subject: "s"}, "s"},
	}
	for _, tt := range tests {
		if got := tt.claims.DisplayName(); got != tt.want {
			t.Errorf("DisplayName() = %q, want %q", got, tt.want)
		}
	}
}

func serveSession(t *testing.T, v auth.Verifier, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	h := auth.NewHandler("rancoqc_session", discard())
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes())

	rec := httptest.NewRecorder()
	auth.Middleware(v, "rancoqc_session", discard())(mux).ServeHTTP(rec, req)
	return rec
}

func TestSessionCheck(t *testing.T) {
	v := auth.HMAC(secret, "", "")
	raw := sign(t, jwt.SigningMethodHS256, []byte(secret), operatorClaims(time.Now().Add(time.Hour)))

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/session_check", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := serveSession(t, v, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var got auth.SessionCheck
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !got.Authenticated || got.Name != "Maria Soto" || got.Role != "operator" {
			t.Errorf("check = %+v", got)
		}
	})

	t.Run("session cookie", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/session_check", nil)
		req.AddCookie(&http.Cookie{Name: "rancoqc_session", Value: raw})
		if rec := serveSession(t, v, req); rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/session_check", nil)
		req.Header.Set("Authorization", "Bearer junk")
		if rec := serveSession(t, v, req); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/session_check", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		if rec := serveSession(t, auth.Disabled(), req); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestLogoutExpiresCookie(t *testing.T) {
	req := httptest.NewRequest("POST", "/logout", nil)
	rec := serveSession(t, auth.Disabled(), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "rancoqc_session" || cookies[0].MaxAge >= 0 {
		t.Errorf("cookies = %+v, want expired rancoqc_session", cookies)
	}
}

func TestGuardProtect(t *testing.T) {
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }
	group := routes.Group{
		Prefix: "/profiles",
		Routes: []routes.Route{{Method: "GET", Pattern: "", Handler: ok}},
		Children: []routes.Group{{
			Prefix: "/{profile}",
			Routes: []routes.Route{{Method: "POST", Pattern: "/defects", Handler: ok}},
		}},
	}

	v := auth.HMAC(secret, "", "")
	raw := sign(t, jwt.SigningMethodHS256, []byte(secret), operatorClaims(time.Now().Add(time.Hour)))

	tests := []struct {
		name     string
		verifier auth.Verifier
		method   string
		path     string
		token    string
		want     int
	}{
		{"read without token", v, "GET", "/profiles", "", http.StatusNoContent},
		{"write without token", v, "POST", "/profiles/packing_qc/defects", "", http.StatusUnauthorized},
		{"write with token", v, "POST", "/profiles/packing_qc/defects", raw, http.StatusNoContent},
		{"write with auth disabled", auth.Disabled(), "POST", "/profiles/packing_qc/defects", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			routes.Register(mux, auth.NewGuard(tt.verifier, discard()).Protect(group))
			handler := auth.Middleware(tt.verifier, "rancoqc_session", discard())(mux)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestGuardMarksSecured(t *testing.T) {
	group := routes.Group{Routes: []routes.Route{
		{Method: "GET", Pattern: "/database_status"},
		{Method: "POST", Pattern: "/save_to_cache"},
	}}

	secured := func(v auth.Verifier) map[string]bool {
		out := map[string]bool{}
		for pattern, r := range routes.Walk(auth.NewGuard(v, discard()).Protect(group)) {
			out[pattern] = r.Secured
		}
		return out
	}

	got := secured(auth.HMAC(secret, "", ""))
	if got["GET /database_status"] || !got["POST /save_to_cache"] {
		t.Errorf("enforcing guard secured = %v", got)
	}
	if got := secured(auth.Disabled()); got["POST /save_to_cache"] {
		t.Error("disabled guard marked a route secured")
	}
}
