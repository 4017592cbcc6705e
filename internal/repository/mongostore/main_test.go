package mongostore

import (
	"context"
	"log"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var testDB *mongo.Database

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	ctx := context.Background()

	container, err := tcmongo.Run(ctx, "mongo:7")
	if err != nil {
		return nil, err
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		return container.Terminate, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return container.Terminate, err
	}

	testDB = client.Database("tire_shop_test")
	if err := EnsureIndexes(ctx, testDB); err != nil {
		return container.Terminate, err
	}

	return container.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start mongo container: %v", err)
	}

	code := m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("could not teardown mongo container: %v", err)
		}
	}

	if code != 0 {
		log.Fatalf("tests failed with code %d", code)
	}
}

func resetCollections(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, name := range []string{productsCollection, cartsCollection, usersCollection} {
		if _, err := testDB.Collection(name).DeleteMany(ctx, map[string]any{}); err != nil {
			t.Fatalf("failed to clear %s: %v", name, err)
		}
	}
}
