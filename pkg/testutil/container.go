// Package testutil provides testing utilities for the idscan service.
// It includes a PostgreSQL integration suite, sqlmock helpers,
// HTTP request helpers and record fixtures.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/medflow/idscan/pkg/database"
	"github.com/medflow/idscan/pkg/logger"
)

// ExternalDatabaseEnv points integration tests at an existing database instead of a container
const ExternalDatabaseEnv = "IDSCAN_TEST_DATABASE_URL"

const postgresImage = "postgres:15-alpine"

var (
	shared     *postgres.PostgresContainer
	sharedDSN  string
	sharedErr  error
	sharedOnce sync.Once
)

// IntegrationSuite is a migrated PostgreSQL database shared by the integration tests of a package
type IntegrationSuite struct {
	DB       *database.DB
	Fixtures *FixtureFactory
}

// NewIntegrationSuite connects to the shared test database and applies the embedded migrations.
// Call it from TestMain and pair it with TerminateContainer:
//
//	func TestMain(m *testing.M) {
//	    flag.Parse()
//	    if testing.Short() {
//	        os.Exit(m.Run())
//	    }
//	    ctx := context.Background()
//	    var err error
//	    suite, err = testutil.NewIntegrationSuite(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    code := m.Run()
//	    testutil.TerminateContainer(ctx)
//	    os.Exit(code)
//	}
func NewIntegrationSuite(ctx context.Context) (*IntegrationSuite, error) {
	dsn, err := testDatabaseDSN(ctx)
	if err != nil {
		return nil, err
	}

	db, err := database.NewWithDSN(dsn, logger.Nop())
	if err != nil {
		return nil, err
	}

	if _, err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}

	return &IntegrationSuite{DB: db, Fixtures: NewFixtureFactory()}, nil
}

// testDatabaseDSN prefers ExternalDatabaseEnv and otherwise starts one container per test binary
func testDatabaseDSN(ctx context.Context) (string, error) {
	if dsn := os.Getenv(ExternalDatabaseEnv); dsn != "" {
		return dsn, nil
	}

	sharedOnce.Do(func() {
		shared, sharedErr = postgres.RunContainer(ctx,
			testcontainers.WithImage(postgresImage),
			postgres.WithDatabase("idscan_test"),
			postgres.WithUsername("idscan"),
			postgres.WithPassword("idscan"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if sharedErr != nil {
			sharedErr = fmt.Errorf("failed to start postgres container: %w", sharedErr)
			return
		}
		sharedDSN, sharedErr = shared.ConnectionString(ctx, "sslmode=disable")
	})

	return sharedDSN, sharedErr
}

// Reset empties the record table so a test starts from a known state
func (s *IntegrationSuite) Reset(t *testing.T, ctx context.Context) {
	t.Helper()
	if _, err := s.DB.ExecContext(ctx, "TRUNCATE identity_records"); err != nil {
		t.Fatalf("failed to reset identity_records: %v", err)
	}
}

// Close releases the suite's connection pool. The shared container stays up.
func (s *IntegrationSuite) Close() error {
	return s.DB.Close()
}

// TerminateContainer stops the shared container, if one was started.
// Only call this in TestMain after all tests have completed.
func TerminateContainer(ctx context.Context) {
	if shared != nil {
		_ = shared.Terminate(ctx)
	}
}
