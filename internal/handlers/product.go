package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prodvault/apiserver/internal/services"
	"github.com/prodvault/apiserver/internal/store"
	"github.com/prodvault/apiserver/types"
)

const (
	maxImageMemory = 8 << 20
	maxImageBytes  = 16 << 20
	formFieldImage = "image"
)

// ProductHandler provides HTTP handlers for products. Every route requires
// an authenticated user; ownership is enforced per operation.
type ProductHandler struct {
	productService *services.ProductService
}

// NewProductHandler constructs a handler with the provided service.
func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// ProductRouter registers product routes on the given router.
func ProductRouter(
	r chi.Router,
	productService *services.ProductService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewProductHandler(productService)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}
	r.Get("/", handler.ListProducts)
	r.Post("/", handler.CreateProduct)
	r.Route("/{productID}", func(r chi.Router) {
		r.Get("/", handler.GetProduct)
		r.Put("/", handler.UpdateProduct)
		r.Delete("/", handler.DeleteProduct)
		if productService.HasStorage() {
			r.Post("/image", handler.UploadProductImage)
		}
	})
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authorized")
		return
	}

	products, err := h.productService.ListByUser(r.Context(), userID)
	if err != nil {
		writeInternalError(w, "failed to list products", err)
		return
	}

	writeJSON(w, http.StatusOK, ProductListResponse{
		Success:  true,
		Count:    len(products),
		Products: products,
	})
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.loadOwnedProduct(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ProductResponse{Success: true, Product: product})
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authorized")
		return
	}

	var req ProductCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)
	if name == "" || description == "" || req.Price == nil || strings.TrimSpace(req.Category) == "" {
		writeError(w, http.StatusBadRequest, "please provide all required fields")
		return
	}
	if *req.Price <= 0 {
		writeError(w, http.StatusBadRequest, "price must be a positive number")
		return
	}
	category := strings.TrimSpace(req.Category)
	if !types.ValidCategory(category) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown category %q", category))
		return
	}

	created, err := h.productService.Create(r.Context(), types.Product{
		Name:        name,
		Description: description,
		Price:       *req.Price,
		Category:    category,
		ImageURL:    strings.TrimSpace(req.ImageURL),
		UserID:      userID,
	})
	if err != nil {
		writeInternalError(w, "failed to create product", err)
		return
	}

	writeJSON(w, http.StatusCreated, ProductResponse{
		Success: true,
		Message: "product created successfully",
		Product: created,
	})
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.loadOwnedProduct(w, r)
	if !ok {
		return
	}

	var req ProductUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Partial merge; the owner field is never touched.
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			writeError(w, http.StatusBadRequest, "description cannot be empty")
			return
		}
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			writeError(w, http.StatusBadRequest, "price must be a positive number")
			return
		}
		product.Price = *req.Price
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if !types.ValidCategory(category) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown category %q", category))
			return
		}
		product.Category = category
	}
	if req.ImageURL != nil {
		product.ImageURL = strings.TrimSpace(*req.ImageURL)
		if product.ImageURL == "" {
			product.ImageURL = types.DefaultImageURL
		}
	}

	updated, err := h.productService.Update(r.Context(), product)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeInternalError(w, "failed to update product", err)
		return
	}

	writeJSON(w, http.StatusOK, ProductResponse{
		Success: true,
		Message: "product updated successfully",
		Product: updated,
	})
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.loadOwnedProduct(w, r)
	if !ok {
		return
	}

	if err := h.productService.Delete(r.Context(), product.ID, product.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeInternalError(w, "failed to delete product", err)
		return
	}

	writeJSON(w, http.StatusOK, ProductDeleteResponse{
		Success: true,
		Message: "product deleted successfully",
	})
}

// UploadProductImage stores an uploaded image for an owned product and
// rewrites its image reference.
func (h *ProductHandler) UploadProductImage(w http.ResponseWriter, r *http.Request) {
	product, ok := h.loadOwnedProduct(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	data, err := readFileLimited(file, maxImageBytes)
	_ = file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.productService.AttachImage(r.Context(), product, data, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeInternalError(w, "failed to store product image", err)
		return
	}

	writeJSON(w, http.StatusOK, ProductResponse{
		Success: true,
		Message: "product image updated successfully",
		Product: updated,
	})
}

// loadOwnedProduct resolves the product in the URL and enforces ownership.
// Existence is checked first, so a missing product reports 404 and a product
// owned by someone else reports 403. On failure the response is already
// written and ok is false.
func (h *ProductHandler) loadOwnedProduct(w http.ResponseWriter, r *http.Request) (types.Product, bool) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authorized")
		return types.Product{}, false
	}

	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return types.Product{}, false
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return types.Product{}, false
		}
		writeInternalError(w, "failed to fetch product", err)
		return types.Product{}, false
	}

	if product.UserID != userID {
		writeError(w, http.StatusForbidden, "not authorized to access this product")
		return types.Product{}, false
	}

	return product, true
}

// ProductCreateRequest is the JSON payload for product creation. Price is a
// pointer so a missing field can be told apart from zero.
type ProductCreateRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Category    string   `json:"category"`
	ImageURL    string   `json:"imageUrl"`
}

// ProductUpdateRequest is the JSON payload for partial product updates.
// Nil fields are left unchanged.
type ProductUpdateRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Category    *string  `json:"category"`
	ImageURL    *string  `json:"imageUrl"`
}

// ProductResponse wraps a single product payload.
type ProductResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Product types.Product `json:"product"`
}

// ProductListResponse is the owned-products list payload.
type ProductListResponse struct {
	Success  bool            `json:"success"`
	Count    int             `json:"count"`
	Products []types.Product `json:"products"`
}

// ProductDeleteResponse confirms a deletion.
type ProductDeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func parseProductID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "productID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid product id")
	}
	return id, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
