package tests

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	. "github.com/darasahq/darasa/apps/api/echo"
	"github.com/darasahq/darasa/core/user"
)

func TestVideoURLEndpoint(t *testing.T) {
	student := createUser(t, "Miles Davis", "miles.davis", "miles@darasa.cd", "KindOfBlue", []string{user.RoleStudent})
	outsider := createUser(t, "Chet Baker", "chet.baker", "chet@darasa.cd", "MyFunnyValentine", []string{user.RoleStudent})
	admin := createUser(t, "Teo Macero", "teo.macero", "teo@darasa.cd", "InASilentWay", []string{user.RoleAdmin})

	crs, les := createCourseWithLesson(t, "Jazz Theory")
	enroll(t, student, crs)

	tests := []httpTest{
		{
			name:     "anonymous",
			path:     "/v1/lessons/" + les.ID + "/video-url",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "not enrolled",
			path:     "/v1/lessons/" + les.ID + "/video-url",
			token:    getToken(t, outsider),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "lesson not found",
			path:     "/v1/lessons/nonexistent/video-url",
			token:    getToken(t, student),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	for _, usr := range []user.User{student, admin} {
		usr := usr
		t.Run("grants "+usr.Username, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/lessons/"+les.ID+"/video-url", getToken(t, usr))
			app.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
			}
			var resp VideoURLResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if !strings.HasPrefix(resp.URL, "/v1/lessons/"+les.ID+"/video?token=") {
				t.Errorf("unexpected url %q", resp.URL)
			}
			if resp.ExpiresIn <= 0 {
				t.Errorf("expires_in = %d; want > 0", resp.ExpiresIn)
			}
		})
	}
}

func TestVideoResourceEndpoint(t *testing.T) {
	student := createUser(t, "John Coltrane", "john.coltrane", "trane@darasa.cd", "GiantSteps", []string{user.RoleStudent})

	crs, les := createCourseWithLesson(t, "Saxophone Basics")
	_, otherLesson := createCourseWithLesson(t, "Piano Basics")
	enroll(t, student, crs)

	token, err := issuer.Issue(student, les.ID)
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	tests := []httpTest{
		{
			name:     "missing token",
			path:     "/v1/lessons/" + les.ID + "/video",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errAccessDenied),
		},
		{
			name:     "garbage token",
			path:     "/v1/lessons/" + les.ID + "/video?token=not-a-jwt",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errAccessDenied),
		},
		{
			name:     "token bound to another lesson",
			path:     "/v1/lessons/" + otherLesson.ID + "/video?token=" + token,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errAccessDenied),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			// headers are attached regardless of outcome
			checkVideoHeaders(t, rec)
		})
	}

	t.Run("lesson gone", func(t *testing.T) {
		ghostToken, err := issuer.Issue(student, "ghost-lesson")
		if err != nil {
			t.Fatalf("issuing token: %v", err)
		}
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}
		req, rec := newRequest(http.MethodGet, "/v1/lessons/ghost-lesson/video?token="+ghostToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("grants and serves", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/lessons/"+les.ID+"/video?token="+token)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusFound {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusFound, rec.Body.String())
		}
		if loc := rec.Header().Get("Location"); loc != "/media/"+les.VideoKey {
			t.Errorf("Location = %q; want %q", loc, "/media/"+les.VideoKey)
		}
		checkVideoHeaders(t, rec)
	})
}

func checkVideoHeaders(t *testing.T, rec interface{ Header() http.Header }) {
	t.Helper()
	h := rec.Header()
	want := map[string]string{
		"Cache-Control":          "no-store, no-cache, must-revalidate",
		"Pragma":                 "no-cache",
		"Content-Disposition":    "inline",
		"X-Content-Type-Options": "nosniff",
	}
	for name, val := range want {
		if got := h.Get(name); got != val {
			t.Errorf("%s = %q; want %q", name, got, val)
		}
	}
}
