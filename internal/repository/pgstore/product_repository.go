package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tire-shop/internal/domain"
	"tire-shop/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const productColumns = `id, brand, model, code, size, category, description, price, stock, thumbnails, created_at, updated_at`

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) repository.ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	thumbs, err := encodeThumbnails(product.Thumbnails)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		product.ID.Hex(),
		product.Brand,
		product.Model,
		product.Code,
		product.Size,
		product.Category,
		product.Description,
		product.Price,
		product.Stock,
		thumbs,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateCode
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update overwrites every mutable column of an existing product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	thumbs, err := encodeThumbnails(product.Thumbnails)
	if err != nil {
		return err
	}

	query := `
		UPDATE products
		SET brand = $2, model = $3, code = $4, size = $5, category = $6,
		    description = $7, price = $8, stock = $9, thumbnails = $10::jsonb, updated_at = $11
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID.Hex(),
		product.Brand,
		product.Model,
		product.Code,
		product.Size,
		product.Category,
		product.Description,
		product.Price,
		product.Stock,
		thumbs,
		product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateCode
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return repository.ErrProductNotFound
	}

	return nil
}

// Delete removes a product from the database
func (r *productRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id.Hex())
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return repository.ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id.Hex())

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindByIDs returns the products that exist among ids, in no particular order
func (r *productRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return []*domain.Product{}, nil
	}

	hexIDs := make([]string, len(ids))
	for i, id := range ids {
		hexIDs[i] = id.Hex()
	}
	in, args := inClause(hexIDs, 1)

	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE id IN (`+in+`)`, args...)
}

// FindByCode retrieves a product by its catalog code
func (r *productRepository) FindByCode(ctx context.Context, code string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE code = $1`, code)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by code: %w", err)
	}

	return product, nil
}

// List retrieves one page of products with filtering and sorting
func (r *productRepository) List(ctx context.Context, q domain.ProductQuery) (*domain.ProductPage, error) {
	q = q.Normalize()
	where, args := whereClause(q)

	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, productColumns, where, orderBy(q.Sort), len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset())

	products, err := r.queryProducts(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return domain.NewProductPage(products, total, q), nil
}

// All returns the whole catalog ordered by id
func (r *productRepository) All(ctx context.Context) ([]*domain.Product, error) {
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY id COLLATE "C"`)
}

// Distinct lists the different values stored in one column
func (r *productRepository) Distinct(ctx context.Context, field repository.ProductField) ([]string, error) {
	if !field.Valid() {
		return nil, domain.InvalidArgument("cannot list distinct values of %q", field)
	}

	// field is whitelisted above, so it is safe to interpolate
	query := fmt.Sprintf(`SELECT DISTINCT %[1]s FROM products ORDER BY %[1]s COLLATE "C"`, field)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list distinct %s: %w", field, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", field, err)
		}
		values = append(values, v)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s values: %w", field, err)
	}

	return values, nil
}

func (r *productRepository) queryProducts(ctx context.Context, query string, args ...any) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		id     string
		thumbs []byte
	)
	product := &domain.Product{}
	err := row.Scan(
		&id,
		&product.Brand,
		&product.Model,
		&product.Code,
		&product.Size,
		&product.Category,
		&product.Description,
		&product.Price,
		&product.Stock,
		&thumbs,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if product.ID, err = primitive.ObjectIDFromHex(strings.TrimSpace(id)); err != nil {
		return nil, fmt.Errorf("corrupt product id %q: %w", id, err)
	}
	if err := json.Unmarshal(thumbs, &product.Thumbnails); err != nil {
		return nil, fmt.Errorf("corrupt thumbnails for product %s: %w", id, err)
	}
	if product.Thumbnails == nil {
		product.Thumbnails = []string{}
	}

	return product, nil
}

func encodeThumbnails(thumbs []string) (string, error) {
	if thumbs == nil {
		thumbs = []string{}
	}
	data, err := json.Marshal(thumbs)
	if err != nil {
		return "", fmt.Errorf("failed to encode thumbnails: %w", err)
	}
	return string(data), nil
}

// whereClause turns the structured filters into SQL with positional parameters
func whereClause(q domain.ProductQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)

	for _, f := range []struct {
		column string
		values []string
	}{
		{"category", q.Categories},
		{"brand", q.Brands},
		{"size", q.Sizes},
	} {
		if len(f.values) == 0 {
			continue
		}
		in, inArgs := inClause(f.values, len(args)+1)
		conds = append(conds, fmt.Sprintf("%s IN (%s)", f.column, in))
		args = append(args, inArgs...)
	}

	switch q.Stock {
	case domain.InStock:
		conds = append(conds, "stock > 0")
	case domain.OutOfStock:
		conds = append(conds, "stock <= 0")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func inClause(values []string, start int) (string, []any) {
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = fmt.Sprintf("$%d", start+i)
		args[i] = v
	}
	return strings.Join(placeholders, ", "), args
}

// orderBy always ends with the id so pagination is stable
func orderBy(sort domain.SortOrder) string {
	const tiebreak = `id COLLATE "C" ASC`
	switch sort {
	case domain.SortPriceAsc:
		return "price ASC, " + tiebreak
	case domain.SortPriceDesc:
		return "price DESC, " + tiebreak
	case domain.SortBrandAsc:
		return `brand COLLATE "C" ASC, ` + tiebreak
	case domain.SortBrandDesc:
		return `brand COLLATE "C" DESC, ` + tiebreak
	default:
		return tiebreak
	}
}
