// Package repotest opens throwaway SQLite databases for tests.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

// New returns a migrated repository over a private in-memory database.
func New(t testing.TB) *repo.GormRepo {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	r := repo.New(gdb)
	require.NoError(t, r.Migrate(context.Background()))
	return r
}

func Product(t testing.TB, r *repo.GormRepo, name string, price int64, featured bool) models.Product {
	t.Helper()

	p := models.Product{
		Name:        name,
		Description: name + " description",
		Price:       price,
		Category:    "hats",
		IsFeatured:  featured,
	}
	require.NoError(t, r.CreateProduct(context.Background(), &p))
	return p
}

func User(t testing.TB, r *repo.GormRepo, email, role string) models.User {
	t.Helper()

	u := models.User{Name: "Test", Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, r.CreateUserIfNotExists(context.Background(), &u))
	return u
}
