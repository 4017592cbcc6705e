// Package localstore keeps the catalog, carts and users in process memory,
// optionally persisted as extended JSON files in a data directory.
package localstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"tire-shop/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	productsFile = "products.json"
	cartsFile    = "carts.json"
	usersFile    = "users.json"
)

// DB is the shared state behind the local repositories.
type DB struct {
	mu       sync.RWMutex
	dir      string
	products map[primitive.ObjectID]*domain.Product
	carts    map[primitive.ObjectID]*domain.Cart
	users    map[primitive.ObjectID]*domain.User
}

type fileOf[T any] struct {
	Items []T `bson:"items"`
}

// Open loads any existing data files from dir. An empty dir gives a memory-only store.
func Open(dir string) (*DB, error) {
	db := &DB{
		dir:      dir,
		products: make(map[primitive.ObjectID]*domain.Product),
		carts:    make(map[primitive.ObjectID]*domain.Cart),
		users:    make(map[primitive.ObjectID]*domain.User),
	}
	if dir == "" {
		return db, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	products, err := load[domain.Product](filepath.Join(dir, productsFile))
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if p.Thumbnails == nil {
			p.Thumbnails = []string{}
		}
		db.products[p.ID] = p
	}

	carts, err := load[domain.Cart](filepath.Join(dir, cartsFile))
	if err != nil {
		return nil, err
	}
	for _, c := range carts {
		if c.Products == nil {
			c.Products = []domain.LineItem{}
		}
		db.carts[c.ID] = c
	}

	users, err := load[domain.User](filepath.Join(dir, usersFile))
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		db.users[u.ID] = u
	}

	return db, nil
}

func load[T any](path string) ([]*T, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var f fileOf[*T]
	if err := bson.UnmarshalExtJSON(data, false, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return f.Items, nil
}

// save writes one collection atomically. Callers hold db.mu.
func save[T any](db *DB, name string, items map[primitive.ObjectID]*T) error {
	if db.dir == "" {
		return nil
	}

	f := fileOf[*T]{Items: make([]*T, 0, len(items))}
	for _, v := range items {
		f.Items = append(f.Items, v)
	}
	data, err := bson.MarshalExtJSONIndent(f, false, false, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	path := filepath.Join(db.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// commit stores next under id (nil deletes it) and persists the collection.
// A failed write restores the previous entry. Callers hold db.mu.
func commit[T any](db *DB, name string, items map[primitive.ObjectID]*T, id primitive.ObjectID, next *T) error {
	prev, had := items[id]
	if next == nil {
		delete(items, id)
	} else {
		items[id] = next
	}
	if err := save(db, name, items); err != nil {
		if had {
			items[id] = prev
		} else {
			delete(items, id)
		}
		return err
	}
	return nil
}

func cloneProduct(p *domain.Product) *domain.Product {
	cp := *p
	cp.Thumbnails = append([]string{}, p.Thumbnails...)
	return &cp
}
