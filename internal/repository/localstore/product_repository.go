package localstore

import (
	"context"
	"sort"

	"tire-shop/internal/domain"
	"tire-shop/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type productRepository struct {
	db *DB
}

// NewProductRepository creates a ProductRepository backed by db
func NewProductRepository(db *DB) repository.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if r.codeTaken(product.Code, product.ID) {
		return repository.ErrDuplicateCode
	}
	return commit(r.db, productsFile, r.db.products, product.ID, cloneProduct(product))
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	if r.codeTaken(product.Code, product.ID) {
		return repository.ErrDuplicateCode
	}
	return commit(r.db, productsFile, r.db.products, product.ID, cloneProduct(product))
}

func (r *productRepository) codeTaken(code string, self primitive.ObjectID) bool {
	for id, p := range r.db.products {
		if id != self && p.Code == code {
			return true
		}
	}
	return false
}

func (r *productRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	return commit(r.db, productsFile, r.db.products, id, nil)
}

func (r *productRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := []*domain.Product{}
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if p, ok := r.db.products[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, cloneProduct(p))
		}
	}
	return out, nil
}

func (r *productRepository) FindByCode(ctx context.Context, code string) (*domain.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, p := range r.db.products {
		if p.Code == code {
			return cloneProduct(p), nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (r *productRepository) List(ctx context.Context, q domain.ProductQuery) (*domain.ProductPage, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	return domain.ApplyQuery(all, q), nil
}

func (r *productRepository) All(ctx context.Context) ([]*domain.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*domain.Product, 0, len(r.db.products))
	for _, p := range r.db.products {
		out = append(out, cloneProduct(p))
	}
	domain.SortProducts(out, domain.SortNone)
	return out, nil
}

func (r *productRepository) Distinct(ctx context.Context, field repository.ProductField) ([]string, error) {
	if !field.Valid() {
		return nil, domain.InvalidArgument("cannot list distinct values of %q", field)
	}

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	set := make(map[string]struct{})
	for _, p := range r.db.products {
		switch field {
		case repository.FieldBrand:
			set[p.Brand] = struct{}{}
		case repository.FieldCategory:
			set[p.Category] = struct{}{}
		case repository.FieldSize:
			set[p.Size] = struct{}{}
		}
	}

	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}
