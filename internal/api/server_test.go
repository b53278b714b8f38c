package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recipebox/internal/api/auth"
	"recipebox/internal/catalog"
	"recipebox/internal/config"
	"recipebox/internal/model"
	"recipebox/internal/pkg/token"
	"recipebox/internal/service"

	"github.com/gin-gonic/gin"
)

type mockVerifier struct {
	claims *token.Claims
	err    error
}

func (m *mockVerifier) VerifyToken(raw string) (*token.Claims, error) {
	if raw == "" {
		return nil, service.ErrUnauthorized
	}
	return m.claims, m.err
}

type mockProfiles struct {
	getFunc    func(ctx context.Context, id string) (*model.User, error)
	updateFunc func(ctx context.Context, id string, in service.ProfileUpdate) (*model.User, error)
	lastUpdate service.ProfileUpdate
}

func (m *mockProfiles) GetProfile(ctx context.Context, id string) (*model.User, error) {
	return m.getFunc(ctx, id)
}

func (m *mockProfiles) UpdateUser(ctx context.Context, id string, in service.ProfileUpdate) (*model.User, error) {
	m.lastUpdate = in
	return m.updateFunc(ctx, id, in)
}

type mockFavorites struct {
	addFunc    func(ctx context.Context, userID string, recipeID model.RecipeID) (model.Favorites, error)
	removeFunc func(ctx context.Context, userID string, recipeID model.RecipeID) (model.Favorites, error)
	listFunc   func(ctx context.Context, userID string) (model.Favorites, error)
	addCalls   int
}

func (m *mockFavorites) Add(ctx context.Context, userID string, recipeID model.RecipeID) (model.Favorites, error) {
	m.addCalls++
	return m.addFunc(ctx, userID, recipeID)
}

func (m *mockFavorites) Remove(ctx context.Context, userID string, recipeID model.RecipeID) (model.Favorites, error) {
	return m.removeFunc(ctx, userID, recipeID)
}

func (m *mockFavorites) List(ctx context.Context, userID string) (model.Favorites, error) {
	return m.listFunc(ctx, userID)
}

type mockCatalog struct {
	searchFunc  func(ctx context.Context, ingredients []string, number int) ([]catalog.RecipeSummary, error)
	recipeFunc  func(ctx context.Context, id model.RecipeID) (*catalog.Recipe, error)
	recipesFunc func(ctx context.Context, ids []model.RecipeID) ([]catalog.Recipe, error)
}

func (m *mockCatalog) SearchByIngredients(ctx context.Context, ingredients []string, number int) ([]catalog.RecipeSummary, error) {
	return m.searchFunc(ctx, ingredients, number)
}

func (m *mockCatalog) Recipe(ctx context.Context, id model.RecipeID) (*catalog.Recipe, error) {
	return m.recipeFunc(ctx, id)
}

func (m *mockCatalog) Recipes(ctx context.Context, ids []model.RecipeID) ([]catalog.Recipe, error) {
	return m.recipesFunc(ctx, ids)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(profiles ProfileService, favorites FavoritesService, cat RecipeCatalog) *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		cfg:       &config.Config{App: config.AppConfig{Env: "test", BasePath: "/api"}},
		logger:    testLogger(),
		auth:      auth.NewHandler(nil, testLogger()),
		verifier:  &mockVerifier{claims: &token.Claims{UserID: "7", Email: "ana@x.com"}},
		profiles:  profiles,
		favorites: favorites,
		catalog:   cat,
	}
	s.router = s.newRouter()
	return s
}

func doJSON(h http.Handler, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func messageOf(w *httptest.ResponseRecorder) string {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Message
}

func TestProfile_ReturnsUserFields(t *testing.T) {
	profiles := &mockProfiles{getFunc: func(ctx context.Context, id string) (*model.User, error) {
		if id != "7" {
			t.Fatalf("expected user id from token, got %q", id)
		}
		return &model.User{ID: "7", Name: "Ana", Email: "ana@x.com", PasswordHash: "secret-hash", Favorites: model.Favorites{"637"}}, nil
	}}
	s := newTestServer(profiles, nil, nil)

	w := doJSON(s.Router(), http.MethodGet, "/api/users/profile", nil, "tok")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != `{"id":"7","name":"Ana","email":"ana@x.com","favorites":["637"]}` {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestProfile_RequiresToken(t *testing.T) {
	s := newTestServer(&mockProfiles{}, nil, nil)

	w := doJSON(s.Router(), http.MethodGet, "/api/users/profile", nil, "")
	if w.Code != http.StatusUnauthorized || messageOf(w) != "Unauthorized." {
		t.Fatalf("unexpected response: %d %s", w.Code, w.Body.String())
	}
}

func TestProfile_NotFound(t *testing.T) {
	profiles := &mockProfiles{getFunc: func(ctx context.Context, id string) (*model.User, error) {
		return nil, service.ErrNotFound
	}}
	s := newTestServer(profiles, nil, nil)

	w := doJSON(s.Router(), http.MethodGet, "/api/users/profile", nil, "tok")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestUpdateUser_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", service.ErrNotFound, http.StatusNotFound, "User not found."},
		{"duplicate", service.ErrDuplicateEmail, http.StatusBadRequest, "Email already exists."},
		{"validation", &service.ValidationError{Field: "email", Message: service.MsgInvalidEmail}, http.StatusBadRequest, "Invalid email address."},
		{"internal", errors.New("Error 1040: Too many connections"), http.StatusInternalServerError, "Server error."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			profiles := &mockProfiles{updateFunc: func(ctx context.Context, id string, in service.ProfileUpdate) (*model.User, error) {
				return nil, tc.err
			}}
			s := newTestServer(profiles, nil, nil)

			w := doJSON(s.Router(), http.MethodPut, "/api/users/7", gin.H{"name": "Ana"}, "tok")
			if w.Code != tc.status || messageOf(w) != tc.msg {
				t.Fatalf("unexpected response: %d %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestUpdateUser_PassesOnlySuppliedFields(t *testing.T) {
	profiles := &mockProfiles{updateFunc: func(ctx context.Context, id string, in service.ProfileUpdate) (*model.User, error) {
		return &model.User{ID: id, Name: "Ana", Email: "ana@x.com"}, nil
	}}
	s := newTestServer(profiles, nil, nil)

	w := doJSON(s.Router(), http.MethodPut, "/api/users/7", gin.H{"password": "newpass"}, "tok")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	in := profiles.lastUpdate
	if in.Password == nil || *in.Password != "newpass" || in.Name != nil || in.Email != nil {
		t.Fatalf("unexpected update: %+v", in)
	}
}

func TestUpdateUser_OtherUserForbidden(t *testing.T) {
	profiles := &mockProfiles{updateFunc: func(ctx context.Context, id string, in service.ProfileUpdate) (*model.User, error) {
		t.Fatalf("update must not be called")
		return nil, nil
	}}
	s := newTestServer(profiles, nil, nil)

	w := doJSON(s.Router(), http.MethodPut, "/api/users/8", gin.H{"name": "x"}, "tok")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestAddFavorite(t *testing.T) {
	favs := &mockFavorites{addFunc: func(ctx context.Context, userID string, recipeID model.RecipeID) (model.Favorites, error) {
		if userID != "7" || recipeID != "637" {
			t.Fatalf("unexpected args %q %q", userID, recipeID)
		}
		return model.Favorites{"637"}, nil
	}}
	s := newTestServer(nil, favs, nil)

	w := doJSON(s.Router(), http.MethodPost, "/api/users/favoris/add", map[string]any{"userId": 7, "recipeId": 637}, "tok")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != `{"favoris":["637"]}` {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	w = doJSON(s.Router(), http.MethodPost, "/api/users/favoris/add", map[string]any{"userId": "7", "recipeId": "637"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestAddFavorite_MissingData(t *testing.T) {
	favs := &mockFavorites{}
	s := newTestServer(nil, favs, nil)

	for _, body := range []map[string]any{
		{"userId": "7"},
		{"recipeId": "637"},
		{"userId": "7", "recipeId": "  "},
		{"userId": true, "recipeId": "637"},
	} {
		w := doJSON(s.Router(), http.MethodPost, "/api/users/favoris/add", body, "tok")
		if w.Code != http.StatusBadRequest || messageOf(w) != "Missing data." {
			t.Fatalf("body %v: unexpected response %d %s", body, w.Code, w.Body.String())
		}
	}
	if favs.addCalls != 0 {
		t.Fatalf("service must not be called")
	}
}

func TestRemoveFavorite_NoTokenRequired(t *testing.T) {
	favs := &mockFavorites{removeFunc: func(ctx context.Context, userID string, recipeID model.RecipeID) (model.Favorites, error) {
		if recipeID != "637" {
			t.Fatalf("expected normalized id, got %q", recipeID)
		}
		return model.Favorites{}, nil
	}}
	s := newTestServer(nil, favs, nil)

	w := doJSON(s.Router(), http.MethodPost, "/api/users/favoris/remove", map[string]any{"userId": "7", "recipeId": 637.0}, "")
	if w.Code != http.StatusOK || w.Body.String() != `{"favoris":[]}` {
		t.Fatalf("unexpected response: %d %s", w.Code, w.Body.String())
	}
}

func TestRemoveFavorite_UserNotFound(t *testing.T) {
	favs := &mockFavorites{removeFunc: func(ctx context.Context, userID string, recipeID model.RecipeID) (model.Favorites, error) {
		return nil, service.ErrNotFound
	}}
	s := newTestServer(nil, favs, nil)

	w := doJSON(s.Router(), http.MethodPost, "/api/users/favoris/remove", map[string]any{"userId": "9", "recipeId": "1"}, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListFavorites_Expand(t *testing.T) {
	favs := &mockFavorites{listFunc: func(ctx context.Context, userID string) (model.Favorites, error) {
		return model.Favorites{"637", "42"}, nil
	}}
	var requested []model.RecipeID
	cat := &mockCatalog{recipesFunc: func(ctx context.Context, ids []model.RecipeID) ([]catalog.Recipe, error) {
		requested = ids
		return []catalog.Recipe{{ID: 637, Title: "Pasta"}}, nil
	}}
	s := newTestServer(nil, favs, cat)

	w := doJSON(s.Router(), http.MethodGet, "/api/users/favoris/7", nil, "")
	if w.Code != http.StatusOK || w.Body.String() != `{"favoris":["637","42"]}` {
		t.Fatalf("unexpected response: %d %s", w.Code, w.Body.String())
	}
	if requested != nil {
		t.Fatalf("catalog must not be called without expand")
	}

	w = doJSON(s.Router(), http.MethodGet, "/api/users/favoris/7?expand=true", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Favoris []catalog.Recipe `json:"favoris"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Favoris) != 1 || body.Favoris[0].Title != "Pasta" || len(requested) != 2 {
		t.Fatalf("unexpected expand result: %s", w.Body.String())
	}
}

func TestListFavorites_CatalogFailure(t *testing.T) {
	favs := &mockFavorites{listFunc: func(ctx context.Context, userID string) (model.Favorites, error) {
		return model.Favorites{"637"}, nil
	}}
	cat := &mockCatalog{recipesFunc: func(ctx context.Context, ids []model.RecipeID) ([]catalog.Recipe, error) {
		return nil, catalog.ErrUpstream
	}}
	s := newTestServer(nil, favs, cat)

	w := doJSON(s.Router(), http.MethodGet, "/api/users/favoris/7?expand=1", nil, "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestRecipes(t *testing.T) {
	cat := &mockCatalog{
		searchFunc: func(ctx context.Context, ingredients []string, number int) ([]catalog.RecipeSummary, error) {
			if len(ingredients) != 1 || ingredients[0] != "apples,flour" || number != 3 {
				t.Fatalf("unexpected search args %v %d", ingredients, number)
			}
			return []catalog.RecipeSummary{{ID: 1, Title: "Tart"}}, nil
		},
		recipeFunc: func(ctx context.Context, id model.RecipeID) (*catalog.Recipe, error) {
			if id == "404" {
				return nil, catalog.ErrNotFound
			}
			return &catalog.Recipe{ID: 637, Title: "Pasta"}, nil
		},
	}
	s := newTestServer(nil, nil, cat)

	w := doJSON(s.Router(), http.MethodGet, "/api/recipes/search?ingredients=apples,flour&number=3", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("search: expected 200, got %d", w.Code)
	}
	w = doJSON(s.Router(), http.MethodGet, "/api/recipes/search", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("search without ingredients: expected 400, got %d", w.Code)
	}
	w = doJSON(s.Router(), http.MethodGet, "/api/recipes/637", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("recipe: expected 200, got %d", w.Code)
	}
	w = doJSON(s.Router(), http.MethodGet, "/api/recipes/404", nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("recipe: expected 404, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(nil, nil, nil)
	s.checks = map[string]func(ctx context.Context) error{
		"store": func(ctx context.Context) error { return nil },
	}

	w := doJSON(s.Router(), http.MethodGet, "/healthz", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	s.checks["redis"] = func(ctx context.Context) error { return errors.New("connection refused") }
	w = doJSON(s.Router(), http.MethodGet, "/healthz", nil, "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestClose_WithoutResources(t *testing.T) {
	s := &Server{cfg: &config.Config{App: config.AppConfig{ShutdownTimeout: time.Second}}}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func decode(t *testing.T, data []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
}
