package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/prodvault/apiserver/types"
)

func penBody() map[string]any {
	return map[string]any{
		"name":        "Pen",
		"description": "Blue pen",
		"price":       1.5,
		"category":    "Other",
	}
}

func TestCreateProductDefaults(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "Al", "x@example.com", "Abcdef1!")

	product := env.createProduct(t, token, penBody())

	if product.ID == 0 {
		t.Errorf("product ID not set")
	}
	if product.UserID != 1 {
		t.Errorf("owner = %d, want caller id 1", product.UserID)
	}
	if product.ImageURL != types.DefaultImageURL {
		t.Errorf("imageUrl = %q, want default placeholder", product.ImageURL)
	}
	if product.Name != "Pen" || product.Description != "Blue pen" || product.Price != 1.5 || product.Category != "Other" {
		t.Errorf("submitted fields changed: %+v", product)
	}
}

func TestCreateProductRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "Al", "x@example.com", "Abcdef1!")

	body := penBody()
	body["imageUrl"] = "https://example.com/pen.jpg"
	created := env.createProduct(t, token, body)

	rec := env.request(t, http.MethodGet, fmt.Sprintf("/products/%d", created.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp ProductResponse
	decodeBody(t, rec, &resp)
	got := resp.Product
	if got.Name != "Pen" || got.Description != "Blue pen" || got.Price != 1.5 ||
		got.Category != "Other" || got.ImageURL != "https://example.com/pen.jpg" {
		t.Errorf("round trip changed fields: %+v", got)
	}
}

func TestCreateProductValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "Al", "x@example.com", "Abcdef1!")

	tests := []struct {
		name    string
		mutate  func(map[string]any)
		message string
	}{
		{"missing name", func(b map[string]any) { delete(b, "name") }, "please provide all required fields"},
		{"missing description", func(b map[string]any) { delete(b, "description") }, "please provide all required fields"},
		{"missing price", func(b map[string]any) { delete(b, "price") }, "please provide all required fields"},
		{"missing category", func(b map[string]any) { delete(b, "category") }, "please provide all required fields"},
		{"zero price", func(b map[string]any) { b["price"] = 0 }, "price must be a positive number"},
		{"negative price", func(b map[string]any) { b["price"] = -5 }, "price must be a positive number"},
		{"unknown category", func(b map[string]any) { b["category"] = "Gadgets" }, `unknown category "Gadgets"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := penBody()
			tt.mutate(body)
			rec := env.request(t, http.MethodPost, "/products", token, body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
			}
			var resp ErrorResponse
			decodeBody(t, rec, &resp)
			if resp.Message != tt.message {
				t.Errorf("message = %q, want %q", resp.Message, tt.message)
			}
		})
	}
}

func TestListProductsOwnedNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	tokenA := env.signup(t, "Alice", "a@example.com", "Abcdef1!")
	tokenB := env.signup(t, "Bob", "b@example.com", "Abcdef1!")

	first := env.createProduct(t, tokenA, map[string]any{
		"name": "First", "description": "d", "price": 1.0, "category": "Other",
	})
	second := env.createProduct(t, tokenA, map[string]any{
		"name": "Second", "description": "d", "price": 2.0, "category": "Books",
	})
	env.createProduct(t, tokenB, map[string]any{
		"name": "Bobs", "description": "d", "price": 3.0, "category": "Toys",
	})

	rec := env.request(t, http.MethodGet, "/products", tokenA, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp ProductListResponse
	decodeBody(t, rec, &resp)
	if resp.Count != 2 || len(resp.Products) != 2 {
		t.Fatalf("count = %d, products = %d, want 2 owned products", resp.Count, len(resp.Products))
	}
	if resp.Products[0].ID != second.ID || resp.Products[1].ID != first.ID {
		t.Errorf("not newest-first: got ids %d, %d", resp.Products[0].ID, resp.Products[1].ID)
	}
	for _, product := range resp.Products {
		if product.UserID != 1 {
			t.Errorf("foreign product leaked into list: %+v", product)
		}
	}
}

func TestOwnershipForbiddenNotNotFound(t *testing.T) {
	env := newTestEnv(t)
	tokenA := env.signup(t, "Alice", "a@example.com", "Abcdef1!")
	tokenB := env.signup(t, "Bob", "b@example.com", "Abcdef1!")

	product := env.createProduct(t, tokenA, penBody())
	path := fmt.Sprintf("/products/%d", product.ID)

	tests := []struct {
		name   string
		method string
		body   any
	}{
		{"get", http.MethodGet, nil},
		{"update", http.MethodPut, map[string]any{"name": "Stolen"}},
		{"delete", http.MethodDelete, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.request(t, tt.method, path, tokenB, tt.body)
			if rec.Code != http.StatusForbidden {
				t.Errorf("status = %d, want 403, body %s", rec.Code, rec.Body.String())
			}
		})
	}

	// The owner still sees the product untouched.
	rec := env.request(t, http.MethodGet, path, tokenA, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner get status = %d", rec.Code)
	}
	var resp ProductResponse
	decodeBody(t, rec, &resp)
	if resp.Product.Name != "Pen" {
		t.Errorf("product mutated by forbidden request: %+v", resp.Product)
	}
}

func TestGetUnknownProduct(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "Al", "x@example.com", "Abcdef1!")

	rec := env.request(t, http.MethodGet, "/products/42", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUpdateProductPartialMerge(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "Al", "x@example.com", "Abcdef1!")

	product := env.createProduct(t, token, penBody())
	path := fmt.Sprintf("/products/%d", product.ID)

	rec := env.request(t, http.MethodPut, path, token, map[string]any{"price": 2.75})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp ProductResponse
	decodeBody(t, rec, &resp)
	got := resp.Product
	if got.Price != 2.75 {
		t.Errorf("price = %v, want 2.75", got.Price)
	}
	if got.Name != "Pen" || got.Description != "Blue pen" || got.Category != "Other" {
		t.Errorf("untouched fields changed: %+v", got)
	}
	if got.UserID != product.UserID {
		t.Errorf("owner changed on update: %d -> %d", product.UserID, got.UserID)
	}
}

func TestUpdateProductValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "Al", "x@example.com", "Abcdef1!")

	product := env.createProduct(t, token, penBody())
	path := fmt.Sprintf("/products/%d", product.ID)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"zero price", map[string]any{"price": 0}},
		{"empty name", map[string]any{"name": "  "}},
		{"unknown category", map[string]any{"category": "Gadgets"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.request(t, http.MethodPut, path, token, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUpdateCannotReassignOwner(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "Alice", "a@example.com", "Abcdef1!")
	env.signup(t, "Bob", "b@example.com", "Abcdef1!")

	product := env.createProduct(t, token, penBody())

	// The owner field in the body is silently ignored.
	rec := env.request(t, http.MethodPut, fmt.Sprintf("/products/%d", product.ID), token, map[string]any{
		"name": "Renamed",
		"user": 2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp ProductResponse
	decodeBody(t, rec, &resp)
	if resp.Product.UserID != 1 {
		t.Errorf("owner reassigned to %d", resp.Product.UserID)
	}
}

func TestDeleteProduct(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "Al", "x@example.com", "Abcdef1!")

	product := env.createProduct(t, token, penBody())
	path := fmt.Sprintf("/products/%d", product.ID)

	rec := env.request(t, http.MethodDelete, path, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp ProductDeleteResponse
	decodeBody(t, rec, &resp)
	if !resp.Success {
		t.Errorf("success = false")
	}

	// Deleted product is gone for good.
	if rec := env.request(t, http.MethodGet, path, token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
	if rec := env.request(t, http.MethodDelete, path, token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestInvalidProductID(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "Al", "x@example.com", "Abcdef1!")

	for _, path := range []string{"/products/abc", "/products/0", "/products/-1"} {
		rec := env.request(t, http.MethodGet, path, token, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("get %s status = %d, want 400", path, rec.Code)
		}
	}
}
