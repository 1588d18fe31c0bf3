package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/njoroge/inventory-allocation/internal/utils"
)

const testSecret = "unit-test-secret"

func doRequest(t *testing.T, mws []echo.MiddlewareFunc, header string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec, c
}

func TestJWTAuthValidToken(t *testing.T) {
	at, err := utils.NewAccessToken(testSecret, 7, true, 5)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	rec, c := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, "Bearer "+at.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if uid, _ := c.Get("user_id").(uint64); uid != 7 {
		t.Errorf("user_id = %v, want 7", c.Get("user_id"))
	}
	if isAdmin, _ := c.Get("is_admin").(bool); !isAdmin {
		t.Errorf("is_admin not propagated")
	}
}

func TestJWTAuthRejects(t *testing.T) {
	cases := map[string]string{
		"missing header": "",
		"not bearer":     "Basic abc",
		"garbage token":  "Bearer not.a.jwt",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rec, _ := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, header)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestJWTAuthWrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken("some-other-secret", 7, false, 5)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	rec, _ := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, "Bearer "+at.Token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	adminTok, err := utils.NewAccessToken(testSecret, 1, true, 5)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	memberTok, err := utils.NewAccessToken(testSecret, 2, false, 5)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	chain := []echo.MiddlewareFunc{JWTAuth(testSecret), RequireAdmin()}

	rec, _ := doRequest(t, chain, "Bearer "+adminTok.Token)
	if rec.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", rec.Code)
	}
	rec, _ = doRequest(t, chain, "Bearer "+memberTok.Token)
	if rec.Code != http.StatusForbidden {
		t.Errorf("member status = %d, want 403", rec.Code)
	}
}
