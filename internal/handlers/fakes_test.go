package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prodvault/apiserver/config"
	"github.com/prodvault/apiserver/internal/services"
	"github.com/prodvault/apiserver/internal/store"
	"github.com/prodvault/apiserver/types"
)

const testJWTSecret = "test-secret"

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int]types.User)}
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type fakeProductRepo struct {
	mu       sync.Mutex
	nextID   int
	clock    time.Time
	products map[int]types.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{
		nextID:   1,
		clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		products: make(map[int]types.Product),
	}
}

// tick hands out strictly increasing timestamps so newest-first ordering
// is deterministic in tests.
func (r *fakeProductRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *fakeProductRepo) ListByUser(ctx context.Context, userID int) ([]types.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	products := make([]types.Product, 0)
	for _, product := range r.products {
		if product.UserID == userID {
			products = append(products, product)
		}
	}
	sort.Slice(products, func(i, j int) bool {
		if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		}
		return products[i].ID > products[j].ID
	})
	return products, nil
}

func (r *fakeProductRepo) Get(ctx context.Context, id int) (types.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	product, ok := r.products[id]
	if !ok {
		return types.Product{}, store.ErrNotFound
	}
	return product, nil
}

func (r *fakeProductRepo) Create(ctx context.Context, product types.Product) (types.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	product.ID = r.nextID
	r.nextID++
	now := r.tick()
	product.CreatedAt = now
	product.UpdatedAt = now
	r.products[product.ID] = product
	return product, nil
}

func (r *fakeProductRepo) UpdateOwned(ctx context.Context, product types.Product) (types.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.products[product.ID]
	if !ok || existing.UserID != product.UserID {
		return types.Product{}, store.ErrNotFound
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = r.tick()
	r.products[product.ID] = product
	return product, nil
}

func (r *fakeProductRepo) DeleteOwned(ctx context.Context, id, userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.products[id]
	if !ok || existing.UserID != userID {
		return store.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

type testEnv struct {
	router   *chi.Mux
	users    *fakeUserRepo
	products *fakeProductRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newFakeUserRepo()
	products := newFakeProductRepo()

	userService := services.NewUserService(users)
	productService := services.NewProductService(products)

	jwtCfg := config.JWTConfig{Secret: testJWTSecret, TTLHours: 720}
	authMiddleware := RequireAuth(userService, testJWTSecret)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, userService, jwtCfg)
	})
	router.Route("/products", func(r chi.Router) {
		ProductRouter(r, productService, authMiddleware)
	})

	return &testEnv{router: router, users: users, products: products}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// signup registers a user and returns the issued token.
func (e *testEnv) signup(t *testing.T, name, email, password string) string {
	t.Helper()

	rec := e.request(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp AuthResponse
	decodeBody(t, rec, &resp)
	if resp.Token == "" {
		t.Fatalf("signup returned empty token")
	}
	return resp.Token
}

func (e *testEnv) createProduct(t *testing.T, token string, body map[string]any) types.Product {
	t.Helper()

	rec := e.request(t, http.MethodPost, "/products", token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp ProductResponse
	decodeBody(t, rec, &resp)
	return resp.Product
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}
