package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tire-shop/internal/domain"
	"tire-shop/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CatalogObserver is told about every committed catalog change.
type CatalogObserver interface {
	CatalogChanged(ctx context.Context, event domain.CatalogEvent) error
}

// ProductSearcher finds product ids matching free text, best match first.
type ProductSearcher interface {
	Search(ctx context.Context, text string, from, size int) (ids []primitive.ObjectID, total int, err error)
}

// ProductService defines the interface for catalog business logic
type ProductService interface {
	List(ctx context.Context, query domain.ProductQuery) (*domain.ProductPage, error)
	All(ctx context.Context) ([]*domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, input domain.ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	AddThumbnail(ctx context.Context, id, url string) (*domain.Product, error)
	Filters(ctx context.Context) (*domain.Filters, error)
	Search(ctx context.Context, text string, page, limit int) (*domain.SearchResult, error)
	// Upsert creates the product or overwrites the one sharing its code.
	Upsert(ctx context.Context, input domain.ProductInput) (product *domain.Product, created bool, err error)
}

// ProductOption configures optional collaborators of the product service.
type ProductOption func(*productService)

// WithObservers registers observers notified after each catalog change.
func WithObservers(observers ...CatalogObserver) ProductOption {
	return func(s *productService) {
		s.observers = append(s.observers, observers...)
	}
}

// WithSearcher enables full-text search.
func WithSearcher(searcher ProductSearcher) ProductOption {
	return func(s *productService) {
		s.searcher = searcher
	}
}

type productService struct {
	repo      repository.ProductRepository
	searcher  ProductSearcher
	observers []CatalogObserver
	logger    *zap.Logger
	now       func() time.Time
}

// NewProductService creates a new instance of ProductService
func NewProductService(repo repository.ProductRepository, logger *zap.Logger, opts ...ProductOption) ProductService {
	s := &productService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *productService) List(ctx context.Context, query domain.ProductQuery) (*domain.ProductPage, error) {
	page, err := s.repo.List(ctx, query.Normalize())
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return page, nil
}

func (s *productService) All(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *productService) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	pid, err := domain.ParseID(id)
	if err != nil {
		return nil, err
	}
	product, err := s.repo.FindByID(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *productService) Create(ctx context.Context, input domain.ProductInput) (*domain.Product, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	product := input.Product(s.now())
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.notify(ctx, domain.ProductCreated, product.ID, product)
	return product, nil
}

func (s *productService) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(product, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	s.notify(ctx, domain.ProductUpdated, product.ID, product)
	return product, nil
}

func (s *productService) Delete(ctx context.Context, id string) error {
	pid, err := domain.ParseID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, pid); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	s.notify(ctx, domain.ProductDeleted, pid, nil)
	return nil
}

// AddThumbnail puts url in front of the existing thumbnails.
func (s *productService) AddThumbnail(ctx context.Context, id, url string) (*domain.Product, error) {
	if strings.TrimSpace(url) == "" {
		return nil, domain.InvalidArgument("thumbnail url is required")
	}
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Thumbnails = append([]string{url}, product.Thumbnails...)
	product.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	s.notify(ctx, domain.ProductUpdated, product.ID, product)
	return product, nil
}

func (s *productService) Filters(ctx context.Context) (*domain.Filters, error) {
	brands, err := s.repo.Distinct(ctx, repository.FieldBrand)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	categories, err := s.repo.Distinct(ctx, repository.FieldCategory)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	sizes, err := s.repo.Distinct(ctx, repository.FieldSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list sizes: %w", err)
	}
	return &domain.Filters{Brands: brands, Categories: categories, Sizes: sizes}, nil
}

// Search resolves index hits against the store so stale index entries are skipped.
func (s *productService) Search(ctx context.Context, text string, page, limit int) (*domain.SearchResult, error) {
	if s.searcher == nil {
		return nil, domain.Unavailable("search is not configured")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.InvalidArgument("search text is required")
	}
	if page < 1 {
		page = domain.DefaultPage
	}
	if limit < 1 {
		limit = domain.DefaultLimit
	}

	ids, total, err := s.searcher.Search(ctx, text, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	found, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load search hits: %w", err)
	}
	byID := make(map[primitive.ObjectID]*domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	products := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			products = append(products, p)
		}
	}
	return &domain.SearchResult{Products: products, Total: total, Page: page, Limit: limit}, nil
}

func (s *productService) Upsert(ctx context.Context, input domain.ProductInput) (*domain.Product, bool, error) {
	if err := input.Validate(); err != nil {
		return nil, false, err
	}
	existing, err := s.repo.FindByCode(ctx, strings.TrimSpace(input.Code))
	if errors.Is(err, domain.ErrNotFound) {
		product, err := s.Create(ctx, input)
		return product, err == nil, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to find product by code: %w", err)
	}

	next := input.Product(s.now())
	next.ID = existing.ID
	next.CreatedAt = existing.CreatedAt
	if len(input.Thumbnails) == 0 {
		next.Thumbnails = existing.Thumbnails
	}
	if err := s.repo.Update(ctx, next); err != nil {
		return nil, false, fmt.Errorf("failed to update product: %w", err)
	}
	s.notify(ctx, domain.ProductUpdated, next.ID, next)
	return next, false, nil
}

func (s *productService) notify(ctx context.Context, kind domain.CatalogEventType, id primitive.ObjectID, product *domain.Product) {
	event := domain.CatalogEvent{Type: kind, ProductID: id, Product: product, At: s.now()}
	for _, o := range s.observers {
		if err := o.CatalogChanged(ctx, event); err != nil {
			s.logger.Warn("Catalog observer failed",
				zap.String("event", string(kind)),
				zap.String("product_id", id.Hex()),
				zap.Error(err),
			)
		}
	}
}
