package controllers

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rangapin/forum/middleware"
	"github.com/rangapin/forum/models"
	"github.com/rangapin/forum/realtime"
	"github.com/rangapin/forum/store"
	"github.com/rangapin/forum/utils"
)

func newTestController(t *testing.T) (*ForumController, sqlmock.Sqlmock) {
	t.Helper()
	utils.Logger = zap.NewNop()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewForumController(store.New(db), realtime.NewMemoryHub()), mock
}

func newTestRouter(f *ForumController, user *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.New("home.html").Parse(
		`{{if .Prompt}}Enter a search term to find posts.{{end}}`)))
	if user != nil {
		r.Use(func(ctx *gin.Context) { ctx.Set(middleware.ContextUserKey, user) })
	}
	r.GET("/search", f.Search)
	r.POST("/report", f.Report)
	return r
}

func TestSearchWithoutQueryShowsPrompt(t *testing.T) {
	for _, target := range []string{"/search", "/search?q=", "/search?q=%20%20"} {
		f, mock := newTestController(t)
		r := newTestRouter(f, nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

		assert.Equal(t, http.StatusOK, w.Code, target)
		assert.Contains(t, w.Body.String(), "Enter a search term to find posts.", target)
		// No expectations were queued, so any query would fail the mock.
		assert.NoError(t, mock.ExpectationsWereMet(), target)
	}
}

func TestSearchTrimsQuery(t *testing.T) {
	f, mock := newTestController(t)
	r := newTestRouter(f, nil)

	mock.ExpectQuery("SELECT .* FROM `posts`").
		WithArgs("%monofin%", "%monofin%", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "reply_count"}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search?q=%20monofin%20", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportReturnPathStaysOnSite(t *testing.T) {
	f, mock := newTestController(t)
	r := newTestRouter(f, &models.User{ID: 1, Username: "janediver"})

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `posts`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("INSERT INTO `reports`").
		WillReturnResult(sqlmock.NewResult(1, 1))

	form := url.Values{
		"post_id": {"7"},
		"reason":  {"spam"},
		"back":    {"//evil.example/phish"},
	}
	req := httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/?reported=1", w.Header().Get("Location"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSafeReturnPath(t *testing.T) {
	for path, want := range map[string]bool{
		"/":                  true,
		"/post/7?reported=1": true,
		"":                   false,
		"post/7":             false,
		"https://evil.test":  false,
		"//evil.test":        false,
		`/\evil.test`:        false,
	} {
		assert.Equal(t, want, safeReturnPath(path), "path %q", path)
	}
}
