package parquetread

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/billingstats/internal/model"
)

func strPtr(s string) *string   { return &s }
func numPtr(f float64) *float64 { return &f }

func TestOpen_ReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.parquet")
	rows := []model.ServiceRow{
		{Episode: strPtr("EP-1"), ServiceName: strPtr("Consulta"), NetAmount: numPtr(100)},
		{Episode: strPtr("EP-1"), ServiceName: strPtr("Examen")},
		{Episode: strPtr("EP-2"), ServiceName: strPtr("Estancia"), NetAmount: numPtr(300)},
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if r.NumRows() != 3 || r.RowGroups() < 1 {
		t.Errorf("NumRows/RowGroups: got %d/%d", r.NumRows(), r.RowGroups())
	}

	got, err := r.ReadAll(2)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadAll(2): got %d rows", len(got))
	}

	tb := Table(got)
	if tb.Columns()[0] != model.FieldEpisode {
		t.Errorf("first column: got %s, want %s", tb.Columns()[0], model.FieldEpisode)
	}
	amounts, _ := tb.Column(model.FieldNetAmountNum)
	if amounts[0] != 100.0 || amounts[1] != nil {
		t.Errorf("amounts: got %v, want [100 <nil>]", amounts)
	}
}

func TestOpen_Rejects(t *testing.T) {
	dir := t.TempDir()

	t.Run("not_parquet", func(t *testing.T) {
		path := filepath.Join(dir, "x.parquet")
		if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Open(path); err == nil {
			t.Error("expected error for non-parquet file")
		}
	})

	t.Run("missing_columns", func(t *testing.T) {
		type other struct {
			Episode string `parquet:"episodio"`
		}
		path := filepath.Join(dir, "other.parquet")
		if err := parquet.WriteFile(path, []other{{Episode: "EP-1"}}); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		_, err := Open(path)
		if err == nil || !strings.Contains(err.Error(), "nom_prestacion") {
			t.Errorf("got %v, want missing nom_prestacion", err)
		}
	})
}
