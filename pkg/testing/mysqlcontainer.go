package testing

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
)

const MySQLImage = "mysql:8.4"

// MySQLContainer is a throwaway MySQL server. DSN is in go-sql-driver form.
type MySQLContainer struct {
	Container testcontainers.Container
	DSN       string
}

func NewMySQLContainerWithCleanup(ctx context.Context, tb testing.TB) *MySQLContainer {
	tb.Helper()
	SkipWithoutDocker(tb)

	ctr, err := mysql.Run(ctx, MySQLImage,
		mysql.WithDatabase("bench_test_db"),
		mysql.WithUsername("test"),
		mysql.WithPassword("test"),
	)
	if err != nil {
		tb.Fatalf("failed to start mysql container: %v", err)
	}

	tb.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			tb.Logf("failed to terminate mysql container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "parseTime=true")
	if err != nil {
		tb.Fatalf("failed to get mysql connection string: %v", err)
	}

	return &MySQLContainer{Container: ctr, DSN: dsn}
}

// SkipWithoutDocker skips container tests in -short mode or when no
// container provider is reachable.
func SkipWithoutDocker(tb testing.TB) {
	tb.Helper()
	if testing.Short() {
		tb.Skip("skipping container test in short mode")
	}

	var ok bool
	func() {
		defer func() {
			if r := recover(); r != nil {
				ok = false
			}
		}()
		provider, err := testcontainers.NewDockerProvider()
		if err != nil {
			return
		}
		defer provider.Close()
		ok = provider.Health(context.Background()) == nil
	}()
	if !ok {
		tb.Skipf("docker unavailable, skipping %s", tb.Name())
	}
}
