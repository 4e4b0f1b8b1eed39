package db_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/billingstats/internal/db"
	"github.com/gyeh/billingstats/internal/ingest"
	"github.com/gyeh/billingstats/internal/logging"
	"github.com/gyeh/billingstats/internal/model"
)

const (
	testPort     = 15433
	testDB       = "billingtest"
	testUser     = "postgres"
	testPassword = "postgres"
)

var testDSN string

// The embedded server downloads Postgres binaries on first use, so these
// tests only run when BILLINGSTATS_PG_TESTS=1.
func TestMain(m *testing.M) {
	if os.Getenv("BILLINGSTATS_PG_TESTS") != "1" {
		fmt.Fprintln(os.Stderr, "SKIP: set BILLINGSTATS_PG_TESTS=1 to run Postgres tests")
		os.Exit(0)
	}

	testDSN = fmt.Sprintf("postgresql://%s:%s@localhost:%d/%s?sslmode=disable",
		testUser, testPassword, testPort, testDB)

	pg := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(uint32(testPort)).
			Database(testDB).
			Username(testUser).
			Password(testPassword).
			Version(embeddedpostgres.V16).
			StartTimeout(30 * time.Second),
	)
	if err := pg.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start embedded postgres: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if err := pg.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop embedded postgres: %v\n", err)
	}
	os.Exit(code)
}

// seed loads the fixture documents into a fresh episodes table through COPY.
func seed(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	admin, err := pgxpool.New(ctx, testDSN)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer admin.Close()

	for _, stmt := range []string{
		"DROP TABLE IF EXISTS episodes",
		"CREATE TABLE episodes (id int PRIMARY KEY, doc jsonb)",
	} {
		if _, err := admin.Exec(ctx, stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}

	raw, err := os.ReadFile("../../testdata/episodes.json")
	if err != nil {
		t.Fatal(err)
	}
	var docs []json.RawMessage
	if err := json.Unmarshal(raw, &docs); err != nil {
		t.Fatal(err)
	}
	rows := make([][]any, len(docs))
	for i, d := range docs {
		rows[i] = []any{i, []byte(d)}
	}
	n, err := admin.CopyFrom(ctx, pgx.Identifier{"episodes"}, []string{"id", "doc"}, pgx.CopyFromRows(rows))
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if int(n) != len(docs) {
		t.Fatalf("copied %d rows, want %d", n, len(docs))
	}

	pool, err := db.NewPool(ctx, testDSN, 10*time.Second)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestLoadEpisodes(t *testing.T) {
	pool := seed(t)
	log := logging.Setup("json", "error")

	records, rejected, err := db.LoadEpisodes(context.Background(), pool, log, "SELECT doc FROM episodes ORDER BY id", 0)
	if err != nil {
		t.Fatalf("LoadEpisodes: %v", err)
	}
	if len(records) != 5 {
		t.Errorf("records: got %d, want 5", len(records))
	}
	if len(rejected) != 1 || rejected[0].Index != 4 {
		t.Errorf("rejected: got %+v, want index 4", rejected)
	}
	if got := model.ServiceCount(records); got != 8 {
		t.Errorf("services: got %d, want 8", got)
	}
	if v, _ := records[0].Get(model.FieldEpisode); v != "EP-1001" {
		t.Errorf("first episode: got %v", v)
	}

	ds, err := ingest.Build(context.Background(), log, records, rejected, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ds.Episodes.Len() != 5 || ds.Services.Len() != 8 {
		t.Errorf("dataset: got %d episodes, %d services", ds.Episodes.Len(), ds.Services.Len())
	}
}

func TestLoadEpisodes_Errors(t *testing.T) {
	pool := seed(t)
	log := logging.Setup("json", "error")
	ctx := context.Background()

	t.Run("two_columns", func(t *testing.T) {
		if _, _, err := db.LoadEpisodes(ctx, pool, log, "SELECT id, doc FROM episodes", 0); err == nil {
			t.Error("expected error for two columns")
		}
	})
	t.Run("max_rows", func(t *testing.T) {
		_, _, err := db.LoadEpisodes(ctx, pool, log, "SELECT doc FROM episodes ORDER BY id", 2)
		if !errors.Is(err, ingest.ErrTooManyRecords) {
			t.Errorf("got %v, want ErrTooManyRecords", err)
		}
	})
	t.Run("max_rows_stops_scanning", func(t *testing.T) {
		// Row 4 fails on the server; the cap of 2 must stop reading at row 3.
		query := `SELECT CASE WHEN i < 4 THEN '{}'::jsonb ELSE (1 / (i - i))::text::jsonb END
			FROM generate_series(1, 5) AS i`
		_, _, err := db.LoadEpisodes(ctx, pool, log, query, 2)
		if !errors.Is(err, ingest.ErrTooManyRecords) {
			t.Errorf("got %v, want ErrTooManyRecords", err)
		}
	})
	t.Run("null_document", func(t *testing.T) {
		_, rejected, err := db.LoadEpisodes(ctx, pool, log, "SELECT NULL::jsonb", 0)
		if err != nil {
			t.Fatalf("LoadEpisodes: %v", err)
		}
		if len(rejected) != 1 {
			t.Errorf("rejected: got %+v, want 1", rejected)
		}
	})
	t.Run("read_only", func(t *testing.T) {
		if _, err := pool.Exec(ctx, "DELETE FROM episodes"); err == nil {
			t.Error("expected read-only session to refuse DELETE")
		}
	})
}
