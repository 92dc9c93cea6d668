package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mkulima/memstore"
	"mkulima/middleware"
	"mkulima/models"
)

func register(t *testing.T, h *Handlers, username, role string) *httptest.ResponseRecorder {
	t.Helper()
	b, _ := json.Marshal(map[string]any{
		"username": username,
		"password": "hunter22",
		"role":     role,
	})
	r := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(b))
	w := httptest.NewRecorder()
	h.Register(w, r, nil)
	return w
}

func login(t *testing.T, h *Handlers, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	b, _ := json.Marshal(map[string]any{"username": username, "password": password})
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(b))
	w := httptest.NewRecorder()
	h.Login(w, r, nil)
	return w
}

func TestRegisterAndLogin(t *testing.T) {
	st := memstore.New()
	h := NewHandlers(st.Users())

	if w := register(t, h, "wanjiku", models.RoleBuyer); w.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", w.Code, w.Body.String())
	}

	w := login(t, h, "wanjiku", "hunter22")
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Role != models.RoleBuyer {
		t.Errorf("role = %q, want buyer", resp.Role)
	}

	claims, err := middleware.ValidateJWT("Bearer " + resp.Token)
	if err != nil {
		t.Fatalf("token does not validate: %v", err)
	}
	if claims.Username != "wanjiku" || claims.Role != models.RoleBuyer {
		t.Errorf("claims = %+v", claims)
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	st := memstore.New()
	h := NewHandlers(st.Users())

	if w := register(t, h, "wanjiku", "admin"); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown role", w.Code)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	st := memstore.New()
	h := NewHandlers(st.Users())

	if w := register(t, h, "wanjiku", models.RoleFarmer); w.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", w.Code)
	}
	if w := register(t, h, "wanjiku", models.RoleBuyer); w.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", w.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	st := memstore.New()
	h := NewHandlers(st.Users())

	register(t, h, "wanjiku", models.RoleBuyer)

	if w := login(t, h, "wanjiku", "wrong"); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if w := login(t, h, "nobody", "hunter22"); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for unknown user", w.Code)
	}
}
