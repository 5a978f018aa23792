//go:build database

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// runBackendScenario migrates the hive, fills the source and processes two days.
func runBackendScenario(t *testing.T, env []string) {
	t.Helper()

	_, err := runPipelineCommand(t, env, "hive", "migrate")
	require.NoError(t, err)

	_, err = runPipelineCommand(t, env, "source", "import", "integration/testdata/stops.csv")
	require.NoError(t, err)

	out, err := runPipelineCommand(t, env, "process", "--start", "2019/03/14", "--end", "2019/03/15")
	require.NoError(t, err)
	assert.Contains(t, out, "done")

	out, err = runPipelineCommand(t, env, "hive", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Latest processed day: 2019/3/14")

	_, err = runPipelineCommand(t, env, "reprocess", "--start", "2019/03/14")
	require.NoError(t, err)

	_, err = runPipelineCommand(t, env, "views", "create")
	require.NoError(t, err)
}

// TestPipelineWithMySQL tests the pipeline CLI with a MySQL backend.
func TestPipelineWithMySQL(t *testing.T) {
	ctx := context.Background()

	// Start MySQL container
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306:3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "ctran",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(30 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	// Get connection details
	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/ctran?parseTime=true", host, port.Port())

	runBackendScenario(t, []string{
		"PIPELINE_HIVE_BACKEND=mysql",
		"PIPELINE_HIVE_DB_CONNECT=" + connStr,
		"PIPELINE_SOURCE_BACKEND=mysql",
		"PIPELINE_SOURCE_DB_CONNECT=" + connStr,
	})
}

// TestPipelineWithPostgres tests the pipeline CLI with a PostgreSQL backend.
func TestPipelineWithPostgres(t *testing.T) {
	ctx := context.Background()

	// Start Postgres container
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432:5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()
	time.Sleep(5 * time.Second)

	// Get connection details
	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres", host, port.Port())

	runBackendScenario(t, []string{
		"PIPELINE_HIVE_BACKEND=postgresql",
		"PIPELINE_HIVE_DB_CONNECT=" + connStr,
		"PIPELINE_HIVE_SCHEMA=hive",
		"PIPELINE_SOURCE_BACKEND=postgresql",
		"PIPELINE_SOURCE_DB_CONNECT=" + connStr,
	})
}
