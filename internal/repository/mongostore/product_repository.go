package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"tire-shop/internal/domain"
	"tire-shop/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type productRepository struct {
	coll *mongo.Collection
}

// NewProductRepository creates a ProductRepository over the products collection
func NewProductRepository(db *mongo.Database) repository.ProductRepository {
	return &productRepository{coll: db.Collection(productsCollection)}
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	if product.Thumbnails == nil {
		product.Thumbnails = []string{}
	}
	if _, err := r.coll.InsertOne(ctx, product); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicateCode
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	if product.Thumbnails == nil {
		product.Thumbnails = []string{}
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": product.ID}, product)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicateCode
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *productRepository) FindByCode(ctx context.Context, code string) (*domain.Product, error) {
	return r.findOne(ctx, bson.M{"code": code})
}

func (r *productRepository) findOne(ctx context.Context, filter bson.M) (*domain.Product, error) {
	var product domain.Product
	if err := r.coll.FindOne(ctx, filter).Decode(&product); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	normalize(&product)
	return &product, nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return []*domain.Product{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

// List runs the count and the page query with the same filter
func (r *productRepository) List(ctx context.Context, q domain.ProductQuery) (*domain.ProductPage, error) {
	q = q.Normalize()
	filter := buildFilter(q)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	opts := options.Find().
		SetSort(sortSpec(q.Sort)).
		SetSkip(int64(q.Offset())).
		SetLimit(int64(q.Limit))

	products, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	return domain.NewProductPage(products, int(total), q), nil
}

func (r *productRepository) All(ctx context.Context) ([]*domain.Product, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (r *productRepository) Distinct(ctx context.Context, field repository.ProductField) ([]string, error) {
	if !field.Valid() {
		return nil, domain.InvalidArgument("cannot list distinct values of %q", field)
	}

	raw, err := r.coll.Distinct(ctx, string(field), bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list distinct %s: %w", field, err)
	}

	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			values = append(values, s)
		}
	}
	sort.Strings(values)
	return values, nil
}

func (r *productRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Product, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer cur.Close(ctx)

	products := []*domain.Product{}
	for cur.Next(ctx) {
		var p domain.Product
		if err := cur.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		normalize(&p)
		products = append(products, &p)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

func normalize(p *domain.Product) {
	if p.Thumbnails == nil {
		p.Thumbnails = []string{}
	}
}

func buildFilter(q domain.ProductQuery) bson.M {
	filter := bson.M{}
	if len(q.Categories) > 0 {
		filter["category"] = bson.M{"$in": q.Categories}
	}
	if len(q.Brands) > 0 {
		filter["brand"] = bson.M{"$in": q.Brands}
	}
	if len(q.Sizes) > 0 {
		filter["size"] = bson.M{"$in": q.Sizes}
	}
	switch q.Stock {
	case domain.InStock:
		filter["stock"] = bson.M{"$gt": 0}
	case domain.OutOfStock:
		filter["stock"] = bson.M{"$lte": 0}
	}
	return filter
}

// sortSpec always ends with _id so skip/limit pages never overlap
func sortSpec(order domain.SortOrder) bson.D {
	tiebreak := bson.E{Key: "_id", Value: 1}
	switch order {
	case domain.SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, tiebreak}
	case domain.SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, tiebreak}
	case domain.SortBrandAsc:
		return bson.D{{Key: "brand", Value: 1}, tiebreak}
	case domain.SortBrandDesc:
		return bson.D{{Key: "brand", Value: -1}, tiebreak}
	default:
		return bson.D{tiebreak}
	}
}
