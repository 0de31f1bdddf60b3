package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cppla/bloghouse/models"
	"github.com/cppla/bloghouse/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("SECRET_KEY", "test-secret")
	dir, err := os.MkdirTemp("", "bloghouse-test")
	if err != nil {
		panic(err)
	}
	os.Setenv("GIN_PATH", filepath.Join(dir, "gin.log"))
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func setupRouter(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}))
	return SetupRouter(db), db
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == utils.SessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie in response: %s", w.Body.String())
	return nil
}

func register(t *testing.T, r http.Handler, email, password, name string) *http.Cookie {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return sessionCookie(t, w)
}

func login(t *testing.T, r http.Handler, email, password string) *http.Cookie {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return sessionCookie(t, w)
}

func createPost(t *testing.T, r http.Handler, cookie *http.Cookie, title string) uint {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/v1/posts", map[string]string{
		"title":    title,
		"subtitle": "a subtitle",
		"body":     "<p>hello world</p>",
		"img_url":  "https://example.com/cover.png",
	}, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Data struct {
			Post struct {
				ID uint `json:"id"`
			} `json:"post"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotZero(t, resp.Data.Post.ID)
	return resp.Data.Post.ID
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r, db := setupRouter(t)

	register(t, r, "alice@example.com", "secret123", "Alice")

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    "alice@example.com",
		"password": "another99",
		"name":     "Alice Again",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "alice@example.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRegisterMissingFields(t *testing.T) {
	r, db := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "bob@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Data struct {
			Fields map[string]string `json:"fields"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Data.Fields, "password")
	assert.Contains(t, resp.Data.Fields, "name")

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestLoginWrongPassword(t *testing.T) {
	r, _ := setupRouter(t)

	register(t, r, "carol@example.com", "secret123", "Carol")

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "carol@example.com",
		"password": "wrongpass",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "incorrect password")
	for _, c := range w.Result().Cookies() {
		assert.NotEqual(t, utils.SessionCookieName, c.Name)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever1",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "not registered")
}

func TestCreatePostRequiresAuth(t *testing.T) {
	r, db := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/posts", map[string]string{
		"title":    "No Session",
		"subtitle": "nope",
		"body":     "body",
		"img_url":  "https://example.com/x.png",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreatePostRecordsAuthor(t *testing.T) {
	r, db := setupRouter(t)

	cookie := register(t, r, "dave@example.com", "secret123", "Dave")
	postID := createPost(t, r, cookie, "Dave's First Post")

	var user models.User
	require.NoError(t, db.Where("email = ?", "dave@example.com").First(&user).Error)

	var post models.Post
	require.NoError(t, db.First(&post, postID).Error)
	assert.Equal(t, user.ID, post.AuthorID)
	assert.NotEmpty(t, post.Date)
}

func TestCreatePostDuplicateTitle(t *testing.T) {
	r, db := setupRouter(t)

	cookie := register(t, r, "erin@example.com", "secret123", "Erin")
	createPost(t, r, cookie, "Unique Title")

	w := doJSON(t, r, http.MethodPost, "/api/v1/posts", map[string]string{
		"title":    "Unique Title",
		"subtitle": "again",
		"body":     "body",
		"img_url":  "https://example.com/x.png",
	}, cookie)
	assert.Equal(t, http.StatusConflict, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpdatePostKeepsAuthorAndDate(t *testing.T) {
	r, db := setupRouter(t)

	cookie := register(t, r, "frank@example.com", "secret123", "Frank")
	postID := createPost(t, r, cookie, "Original Title")

	var before models.Post
	require.NoError(t, db.First(&before, postID).Error)

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/v1/posts/%d", postID), map[string]string{
		"title":    "Renamed Title",
		"subtitle": "new subtitle",
		"body":     "<p>rewritten</p>",
		"img_url":  "https://example.com/new.png",
	}, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var after models.Post
	require.NoError(t, db.First(&after, postID).Error)
	assert.Equal(t, "Renamed Title", after.Title)
	assert.Equal(t, "new subtitle", after.Subtitle)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.AuthorID, after.AuthorID)
	assert.Equal(t, before.Date, after.Date)
}

func TestUpdatePostOwnershipEnforced(t *testing.T) {
	r, _ := setupRouter(t)

	cookieA := register(t, r, "gina@example.com", "secret123", "Gina")
	postID := createPost(t, r, cookieA, "Gina's Post")

	cookieB := register(t, r, "hank@example.com", "secret123", "Hank")
	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/v1/posts/%d", postID), map[string]string{
		"title":    "Hijacked",
		"subtitle": "s",
		"body":     "b",
		"img_url":  "https://example.com/x.png",
	}, cookieB)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeletePostCascadesComments(t *testing.T) {
	r, db := setupRouter(t)

	cookie := register(t, r, "ivan@example.com", "secret123", "Ivan")
	postID := createPost(t, r, cookie, "Doomed Post")

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", postID), map[string]string{
		"text": "nice post",
	}, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", postID), nil, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", postID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCommentRequiresAuth(t *testing.T) {
	r, db := setupRouter(t)

	cookie := register(t, r, "judy@example.com", "secret123", "Judy")
	postID := createPost(t, r, cookie, "Open Post")

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", postID), map[string]string{
		"text": "anonymous drive-by",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCommentOnMissingPost(t *testing.T) {
	r, _ := setupRouter(t)

	cookie := register(t, r, "kate@example.com", "secret123", "Kate")
	w := doJSON(t, r, http.MethodPost, "/api/v1/posts/9999/comments", map[string]string{
		"text": "into the void",
	}, cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostIDRejectsSQLPredicates(t *testing.T) {
	r, db := setupRouter(t)

	cookie := register(t, r, "nina@example.com", "secret123", "Nina")
	createPost(t, r, cookie, "Only Post")

	for _, raw := range []string{"1 OR 1=1", "id > 0", "abc", "-1", "0"} {
		w := doJSON(t, r, http.MethodGet, "/api/v1/posts/"+url.PathEscape(raw), nil)
		assert.Equal(t, http.StatusNotFound, w.Code, "GET id=%q", raw)

		w = doJSON(t, r, http.MethodDelete, "/api/v1/posts/"+url.PathEscape(raw), nil, cookie)
		assert.Equal(t, http.StatusNotFound, w.Code, "DELETE id=%q", raw)
	}

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCommentAfterDeleteLeavesNoOrphan(t *testing.T) {
	r, db := setupRouter(t)

	cookie := register(t, r, "omar@example.com", "secret123", "Omar")
	postID := createPost(t, r, cookie, "Short-Lived Post")

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", postID), nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", postID), map[string]string{
		"text": "too late",
	}, cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestShowPostNotFound(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/posts/424242", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPostsIncludesAuthors(t *testing.T) {
	r, _ := setupRouter(t)

	cookie := register(t, r, "liam@example.com", "secret123", "Liam")
	createPost(t, r, cookie, "First")
	createPost(t, r, cookie, "Second")

	w := doJSON(t, r, http.MethodGet, "/api/v1/posts", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Items []struct {
				Title  string `json:"title"`
				Author struct {
					Name string `json:"name"`
				} `json:"author"`
			} `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Items, 2)
	for _, item := range resp.Data.Items {
		assert.Equal(t, "Liam", item.Author.Name)
	}
}

func TestAboutAndHealth(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/about", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "description")

	w = doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	r, _ := setupRouter(t)

	cookie := register(t, r, "mona@example.com", "secret123", "Mona")

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/auth/me", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFullLifecycle(t *testing.T) {
	r, db := setupRouter(t)

	// register -> login -> create -> logout -> login -> edit subtitle -> delete
	register(t, r, "zoe@example.com", "secret123", "Zoe")
	cookie := login(t, r, "zoe@example.com", "secret123")
	postID := createPost(t, r, cookie, "Lifecycle Post")

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	cookie = login(t, r, "zoe@example.com", "secret123")

	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/v1/posts/%d", postID), map[string]string{
		"title":    "Lifecycle Post",
		"subtitle": "updated subtitle",
		"body":     "<p>still here</p>",
		"img_url":  "https://example.com/cover.png",
	}, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var post models.Post
	require.NoError(t, db.First(&post, postID).Error)
	assert.Equal(t, "updated subtitle", post.Subtitle)
	assert.Equal(t, "Lifecycle Post", post.Title)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", postID), nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", postID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
