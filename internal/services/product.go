package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/prodvault/apiserver/internal/mq"
	"github.com/prodvault/apiserver/internal/storage"
	"github.com/prodvault/apiserver/types"
)

// EventChannel is the broker channel product lifecycle events are published to.
const EventChannel = "product-events"

// Product lifecycle event names.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	ListByUser(ctx context.Context, userID int) ([]types.Product, error)
	Get(ctx context.Context, id int) (types.Product, error)
	Create(ctx context.Context, product types.Product) (types.Product, error)
	UpdateOwned(ctx context.Context, product types.Product) (types.Product, error)
	DeleteOwned(ctx context.Context, id, userID int) error
}

// ProductEvent is the payload published on product lifecycle changes.
type ProductEvent struct {
	Event     string    `json:"event"`
	ProductID int       `json:"product_id"`
	UserID    int       `json:"user_id"`
	At        time.Time `json:"at"`
}

// ProductService encapsulates product use-cases. Storage and events are
// optional collaborators; a nil value disables the corresponding feature.
type ProductService struct {
	repo    ProductRepository
	storage *storage.Storage
	events  *mq.MQ
}

func NewProductService(repo ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// WithStorage enables image uploads backed by the given object storage.
func (s *ProductService) WithStorage(st *storage.Storage) *ProductService {
	s.storage = st
	return s
}

// WithEvents enables lifecycle event publishing on the given broker.
func (s *ProductService) WithEvents(events *mq.MQ) *ProductService {
	s.events = events
	return s
}

// HasStorage reports whether image uploads are available.
func (s *ProductService) HasStorage() bool {
	return s.storage != nil
}

func (s *ProductService) ListByUser(ctx context.Context, userID int) ([]types.Product, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *ProductService) Get(ctx context.Context, id int) (types.Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *ProductService) Create(ctx context.Context, product types.Product) (types.Product, error) {
	if product.ImageURL == "" {
		product.ImageURL = types.DefaultImageURL
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return types.Product{}, err
	}
	s.publish(ctx, EventProductCreated, created.ID, created.UserID)
	return created, nil
}

func (s *ProductService) Update(ctx context.Context, product types.Product) (types.Product, error) {
	updated, err := s.repo.UpdateOwned(ctx, product)
	if err != nil {
		return types.Product{}, err
	}
	s.publish(ctx, EventProductUpdated, updated.ID, updated.UserID)
	return updated, nil
}

func (s *ProductService) Delete(ctx context.Context, id, userID int) error {
	if err := s.repo.DeleteOwned(ctx, id, userID); err != nil {
		return err
	}
	s.publish(ctx, EventProductDeleted, id, userID)
	return nil
}

// AttachImage stores the uploaded image bytes and rewrites the product's
// image reference to point at the stored object. The object key is derived
// from the content hash, so re-uploading identical bytes is idempotent.
func (s *ProductService) AttachImage(ctx context.Context, product types.Product, data []byte, contentType string) (types.Product, error) {
	if s.storage == nil {
		return types.Product{}, errors.New("object storage is not configured")
	}
	if len(data) == 0 {
		return types.Product{}, errors.New("empty image data")
	}

	hash := sha256.Sum256(data)
	key := fmt.Sprintf("products/%d/%s", product.ID, hex.EncodeToString(hash[:]))

	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return types.Product{}, err
	}

	product.ImageURL = key
	return s.Update(ctx, product)
}

func (s *ProductService) publish(ctx context.Context, event string, productID, userID int) {
	if s.events == nil {
		return
	}
	payload, err := json.Marshal(ProductEvent{
		Event:     event,
		ProductID: productID,
		UserID:    userID,
		At:        time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if _, err := s.events.Publish(ctx, EventChannel, payload, map[string]string{"event": event}); err != nil {
		// The write already committed; a lost event must not fail the request.
		log.Printf("products: publish %s for product %d: %v", event, productID, err)
	}
}
