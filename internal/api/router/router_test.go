package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/anotoki/config"
	"github.com/d60-Lab/anotoki/internal/api/handler"
	"github.com/d60-Lab/anotoki/internal/api/middleware"
	"github.com/d60-Lab/anotoki/internal/auth"
	"github.com/d60-Lab/anotoki/internal/model"
	"github.com/d60-Lab/anotoki/internal/repository"
	"github.com/d60-Lab/anotoki/internal/service"
	"github.com/d60-Lab/anotoki/pkg/database"
	"github.com/d60-Lab/anotoki/pkg/response"
)

func init() { gin.SetMode(gin.TestMode) }

type app struct {
	db     *gorm.DB
	engine *gin.Engine
	tokens *auth.TokenManager
	users  service.UserService
	cats   service.CategoryService
}

func newApp(t *testing.T, provider *auth.Provider) *app {
	t.Helper()
	db := database.NewTestDB(t)
	postRepo := repository.NewPostRepository(db)
	userRepo := repository.NewUserRepository(db)
	catRepo := repository.NewCategoryRepository(db)
	reactRepo := repository.NewReactionRepository(db)

	a := &app{
		db:     db,
		tokens: auth.NewTokenManager("test-secret", time.Hour),
		users:  service.NewUserService(userRepo),
		cats:   service.NewCategoryService(catRepo, nil),
	}
	require.NoError(t, a.cats.EnsureDefaults(context.Background()))

	h := handler.NewHandler(handler.Deps{
		Posts:      service.NewPostService(postRepo, userRepo, catRepo, nil, reactRepo),
		Reactions:  service.NewReactionService(postRepo, reactRepo),
		Categories: a.cats,
		Users:      a.users,
		Tokens:     a.tokens,
		Provider:   provider,
		Session:    handler.SessionConfig{CookieName: "sid", PostLoginURL: "/dashboard"},
	})
	a.engine = Setup(h, a.tokens, Options{Limiter: middleware.NewLimiter(1000, 1000), Swagger: true})
	return a
}

// login 创建用户并返回 Bearer token
func (a *app) login(t *testing.T, name string) (string, *model.User) {
	t.Helper()
	u, err := a.users.UpsertFromProvider(context.Background(), service.Profile{Subject: "sub-" + name, Email: name + "@example.com", Name: name})
	require.NoError(t, err)
	tok, err := a.tokens.Sign(auth.Viewer{ID: u.ID, Name: u.Name, Email: u.Email})
	require.NoError(t, err)
	return tok, u
}

func (a *app) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	switch b := body.(type) {
	case nil:
		buf = &bytes.Buffer{}
	case string:
		buf = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		buf = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Error
}

func (a *app) categoryID(t *testing.T, slug string) string {
	t.Helper()
	c, err := a.cats.GetBySlug(context.Background(), slug)
	require.NoError(t, err)
	return c.ID
}

func postBody(categoryID, title string) map[string]any {
	return map[string]any{
		"title":      title,
		"lesson":     "Write down what went wrong.",
		"categoryId": categoryID,
		"tags":       []string{"retro"},
	}
}

func TestUnauthenticated(t *testing.T) {
	a := newApp(t, nil)
	for _, path := range []string{"/api/session", "/api/categories", "/api/posts", "/api/posts/x"} {
		w := a.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "UNAUTHORIZED", errorOf(t, w).Code)
	}
	w := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionAndCategories(t *testing.T) {
	a := newApp(t, nil)
	tok, u := a.login(t, "alice")

	w := a.do(t, http.MethodGet, "/api/session", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sess handler.SessionEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	assert.Equal(t, u.ID, sess.User.ID)

	w = a.do(t, http.MethodGet, "/api/categories", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cats handler.CategoriesEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cats))
	assert.Len(t, cats.Categories, len(service.DefaultCategories))

	w = a.do(t, http.MethodGet, "/api/categories/finance", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var one handler.CategoryEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &one))
	assert.Equal(t, "finance", one.Category.Slug)

	w = a.do(t, http.MethodGet, "/api/categories/unknown", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CATEGORY_NOT_FOUND", errorOf(t, w).Code)
}

func TestSession_UserGone(t *testing.T) {
	a := newApp(t, nil)
	tok, u := a.login(t, "alice")
	require.NoError(t, a.db.Delete(&model.User{}, "id = ?", u.ID).Error)

	w := a.do(t, http.MethodGet, "/api/session", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorOf(t, w).Code)
}

func TestReaction_MissingPost(t *testing.T) {
	a := newApp(t, nil)
	tok, _ := a.login(t, "alice")

	w := a.do(t, http.MethodPost, "/api/posts/no-such-post/reactions?type=like", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	e := errorOf(t, w)
	assert.Equal(t, "POST_NOT_FOUND", e.Code)
	assert.Equal(t, "errors.notFound", e.Details["messageKey"])

	w = a.do(t, http.MethodDelete, "/api/posts/no-such-post/reactions?type=like", tok, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestPostLifecycle(t *testing.T) {
	a := newApp(t, nil)
	alice, _ := a.login(t, "alice")
	bob, _ := a.login(t, "bob")
	career := a.categoryID(t, "career")

	w := a.do(t, http.MethodPost, "/api/posts", alice, postBody(career, "Retro every sprint"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created handler.PostEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.Post.ID
	assert.Equal(t, "career", created.Post.Category.Slug)
	assert.Equal(t, []string{"retro"}, created.Post.Tags)

	w = a.do(t, http.MethodGet, "/api/posts/"+id, bob, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodPost, "/api/posts/"+id+"/reactions?type=like", bob, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"reaction":{"postId":%q,"type":"like"}}`, id), w.Body.String())
	w = a.do(t, http.MethodPost, "/api/posts/"+id+"/reactions?type=like", bob, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = a.do(t, http.MethodGet, "/api/posts", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page model.PostPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Posts, 1)
	assert.Equal(t, model.ReactionSummary{LikeCount: 1, ViewerHasLiked: true}, page.Posts[0].Reactions)
	assert.Nil(t, page.NextCursor)
	assert.NotContains(t, w.Body.String(), "nextCursor")

	update := postBody(career, "Retro every other sprint")
	w = a.do(t, http.MethodPut, "/api/posts/"+id, bob, update)
	assert.Equal(t, http.StatusForbidden, w.Code)
	e := errorOf(t, w)
	assert.Equal(t, "FORBIDDEN", e.Code)
	assert.Equal(t, "errors.forbidden", e.Details["messageKey"])

	w = a.do(t, http.MethodPut, "/api/posts/"+id, alice, update)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Retro every other sprint")

	w = a.do(t, http.MethodDelete, "/api/posts/"+id+"/reactions?type=like", bob, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(t, http.MethodDelete, "/api/posts/"+id, bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.do(t, http.MethodDelete, "/api/posts/"+id, alice, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(t, http.MethodGet, "/api/posts/"+id, alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorOf(t, w).Code)

	w = a.do(t, http.MethodDelete, "/api/posts/"+id, alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "POST_NOT_FOUND", errorOf(t, w).Code)
}

func TestCreatePost_Errors(t *testing.T) {
	a := newApp(t, nil)
	tok, _ := a.login(t, "alice")
	career := a.categoryID(t, "career")

	w := a.do(t, http.MethodPost, "/api/posts", tok, `{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_JSON", errorOf(t, w).Code)

	body := postBody(career, "ab")
	w = a.do(t, http.MethodPost, "/api/posts", tok, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	e := errorOf(t, w)
	assert.Equal(t, "VALIDATION_ERROR", e.Code)
	assert.Equal(t, "title.min", e.Message)
	assert.Equal(t, map[string]any{"title": "title.min"}, e.Details["fields"])

	w = a.do(t, http.MethodPost, "/api/posts", tok, `{"title": 42}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorOf(t, w).Code)

	w = a.do(t, http.MethodPost, "/api/posts", tok, postBody("missing", "Valid title"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CATEGORY_NOT_FOUND", errorOf(t, w).Code)
}

func TestListPosts_QueryValidation(t *testing.T) {
	a := newApp(t, nil)
	tok, _ := a.login(t, "alice")

	w := a.do(t, http.MethodGet, "/api/posts?limit=100", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "limit.range", errorOf(t, w).Message)

	w = a.do(t, http.MethodGet, "/api/posts?category=unknown", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"posts":[]}`, w.Body.String())
}

func TestReaction_InvalidType(t *testing.T) {
	a := newApp(t, nil)
	tok, _ := a.login(t, "alice")
	w := a.do(t, http.MethodPost, "/api/posts/p1/reactions?type=love", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "reaction.invalid", errorOf(t, w).Message)
}

func TestPagination_OverHTTP(t *testing.T) {
	a := newApp(t, nil)
	tok, _ := a.login(t, "alice")
	career := a.categoryID(t, "career")
	for i := 0; i < 12; i++ {
		w := a.do(t, http.MethodPost, "/api/posts", tok, postBody(career, fmt.Sprintf("Lesson number %d", i)))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := a.do(t, http.MethodGet, "/api/posts?category=career&limit=10", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var first model.PostPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.Len(t, first.Posts, 10)
	require.NotNil(t, first.NextCursor)

	w = a.do(t, http.MethodGet, "/api/posts?category=career&limit=10&cursor="+url.QueryEscape(*first.NextCursor), tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var second model.PostPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Len(t, second.Posts, 2)
	assert.Nil(t, second.NextCursor)
}

func TestOAuthFlow(t *testing.T) {
	idp := http.NewServeMux()
	idp.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
	})
	idp.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sub":"g-1","email":"Ren@Example.com","name":"Ren","picture":"https://img/ren.png"}`))
	})
	srv := httptest.NewServer(idp)
	defer srv.Close()

	provider := auth.NewProvider(config.OAuthConfig{
		ClientID: "cid", ClientSecret: "sec", RedirectURL: "http://localhost/api/auth/callback",
		AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token", UserInfoURL: srv.URL + "/userinfo",
	})
	a := newApp(t, provider)

	w := a.do(t, http.MethodGet, "/api/auth/login", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	var stateCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "anotoki_oauth_state" {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie)

	// state 不匹配
	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=c&state=wrong", nil)
	req.AddCookie(stateCookie)
	w = httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=c&state="+state, nil)
	req.AddCookie(stateCookie)
	w = httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "sid" {
			session = c
		}
	}
	require.NotNil(t, session)

	req = httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(session)
	w = httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `"email":"ren@example.com"`), w.Body.String())

	w = a.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestLogin_NotConfigured(t *testing.T) {
	a := newApp(t, nil)
	w := a.do(t, http.MethodGet, "/api/auth/login", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOAuthCallback_ExchangeFails(t *testing.T) {
	idp := http.NewServeMux()
	idp.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	})
	srv := httptest.NewServer(idp)
	defer srv.Close()

	provider := auth.NewProvider(config.OAuthConfig{
		ClientID: "cid", ClientSecret: "sec", RedirectURL: "http://localhost/api/auth/callback",
		AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token", UserInfoURL: srv.URL + "/userinfo",
	})
	a := newApp(t, provider)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=c&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: "anotoki_oauth_state", Value: "s1"})
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	e := errorOf(t, w)
	assert.Equal(t, "UNAUTHORIZED", e.Code)
	assert.Equal(t, "Sign-in failed", e.Message)
	assert.NotContains(t, w.Body.String(), "invalid_grant")
}
