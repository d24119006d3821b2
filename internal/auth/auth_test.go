package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"ridersettle/internal/model"
)

type fakeTokens map[string]model.Caller

func (f fakeTokens) LookupToken(_ context.Context, token string) (*model.Caller, error) {
	c, ok := f[token]
	if !ok {
		return nil, model.ErrUnauthenticated
	}
	return &c, nil
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		caller *model.Caller
		branch string
		want   error
	}{
		{"nil caller", nil, "b1", model.ErrUnauthenticated},
		{"super admin", &model.Caller{Role: model.RoleSuperAdmin}, "b1", nil},
		{"company admin", &model.Caller{Role: model.RoleCompanyAdmin, CompanyID: "c1"}, "b9", nil},
		{"own branch", &model.Caller{Role: model.RoleBranchManager, BranchID: "b1"}, "b1", nil},
		{"other branch", &model.Caller{Role: model.RoleBranchManager, BranchID: "b1"}, "b2", model.ErrForbidden},
		{"rider", &model.Caller{Role: model.RoleRider, BranchID: "b1"}, "b1", model.ErrForbidden},
	}
	for _, tc := range cases {
		err := Authorize(tc.caller, tc.branch)
		if tc.want == nil && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	id := NewIdentity(fakeTokens{"good": {Role: model.RoleBranchManager, BranchID: "b1"}})
	r := gin.New()
	r.Use(Middleware(id))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, CallerFrom(c))
	})

	cases := map[string]int{
		"":            http.StatusUnauthorized,
		"Bearer bad":  http.StatusUnauthorized,
		"Basic good":  http.StatusUnauthorized,
		"Bearer good": http.StatusOK,
		"bearer good": http.StatusOK,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("header %q: status %d, want %d", header, w.Code, want)
		}
	}
}

func TestNewToken(t *testing.T) {
	t.Parallel()
	a, b := NewToken(), NewToken()
	if a == "" || a == b {
		t.Fatalf("tokens not random: %q %q", a, b)
	}
}
