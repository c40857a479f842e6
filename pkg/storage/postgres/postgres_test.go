package postgres_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/loom/pkg/storage"
	"github.com/papercomputeco/loom/pkg/storage/postgres"
	"github.com/papercomputeco/loom/pkg/storage/storagetest"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("LOOM_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("LOOM_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = storagetest.DescribeStore("postgres", func() storage.Store {
	ctx := context.Background()
	d, err := postgres.NewDriver(ctx, connStr())
	Expect(err).NotTo(HaveOccurred())

	// Clean all rows before each spec for isolation.
	_, err = d.Driver.DB().ExecContext(ctx, "TRUNCATE memories, checkpoints")
	Expect(err).NotTo(HaveOccurred())
	return d
})
