// mkfixture creates a small representative episode fixture from a larger file.
// Two-pass: first scans all records to find diverse candidates, then selects the best N.
// Usage: go run ./cmd/mkfixture --in testdata/episodes-full.json.gz --out testdata/episodes-small.json --rows 200
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/gyeh/billingstats/internal/export"
	"github.com/gyeh/billingstats/internal/ingest"
	"github.com/gyeh/billingstats/internal/model"
)

func main() {
	in := flag.String("in", "testdata/episodes-full.json.gz", "input episode file (.json or .json.gz)")
	out := flag.String("out", "testdata/episodes-small.json", "output episode file")
	parquetOut := flag.String("parquet", "", "also write the selected services as Parquet to this path")
	maxRows := flag.Int("rows", 200, "max records to output")
	checkOnly := flag.Bool("check", false, "only print stats, don't write")
	flag.Parse()

	rc, err := ingest.Open(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open input: %v\n", err)
		os.Exit(1)
	}
	records, rejected, err := ingest.Decode(rc, 0)
	rc.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode: %v\n", err)
		os.Exit(1)
	}

	if *checkOnly {
		textAmounts, noServices := 0, 0
		for i := range records {
			if hasTextAmount(&records[i]) {
				textAmounts++
			}
			if len(records[i].Services) == 0 {
				noServices++
			}
		}
		fmt.Printf("Total: %d, Rejected: %d, Services: %d, NoServices: %d, TextAmounts: %d\n",
			len(records), len(rejected), model.ServiceCount(records), noServices, textAmounts)
		return
	}

	// Pass 1: read ALL records, bucket by interesting traits.
	type bucket struct {
		name string
		recs []model.Record
		want int
	}
	buckets := []*bucket{
		{name: "no_services", want: 10},
		{name: "text_amount", want: 30},
		{name: "missing_amount", want: 30},
		{name: "multi_service", want: 30},
		{name: "general", want: 0},
	}
	bucketMap := make(map[string]*bucket)
	for _, b := range buckets {
		bucketMap[b.name] = b
	}
	take := func(name string, rec model.Record) bool {
		b := bucketMap[name]
		if len(b.recs) >= b.want {
			return false
		}
		b.recs = append(b.recs, rec)
		return true
	}

	for i := range records {
		rec := records[i]
		placed := false
		if len(rec.Services) == 0 && take("no_services", rec) {
			placed = true
		}
		if !placed && hasTextAmount(&rec) && take("text_amount", rec) {
			placed = true
		}
		if !placed && hasMissingAmount(&rec) && take("missing_amount", rec) {
			placed = true
		}
		if !placed && len(rec.Services) >= 3 && take("multi_service", rec) {
			placed = true
		}
		if !placed && len(bucketMap["general"].recs) < *maxRows {
			bucketMap["general"].recs = append(bucketMap["general"].recs, rec)
		}
	}
	fmt.Printf("Scanned %d records (%d rejected)\n", len(records), len(rejected))

	// Merge buckets in priority order
	var selected []model.Record
	for _, b := range buckets {
		for _, rec := range b.recs {
			if len(selected) >= *maxRows {
				break
			}
			selected = append(selected, rec)
		}
	}

	// Write output
	data, err := json.MarshalIndent(selected, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		os.Exit(1)
	}

	if *parquetOut != "" {
		n, err := export.ToFile(*parquetOut, export.FormatParquet, ingest.Flatten(selected))
		if err != nil {
			fmt.Fprintf(os.Stderr, "write parquet: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d service rows to %s\n", n, *parquetOut)
	}

	// Print summary
	fmt.Printf("Wrote %d records (%d services) to %s\n", len(selected), model.ServiceCount(selected), *out)
	fmt.Println("Bucket distribution:")
	for _, b := range buckets {
		fmt.Printf("  %-15s %d\n", b.name, len(b.recs))
	}
}

// hasTextAmount reports whether any amount of rec arrived as text.
func hasTextAmount(rec *model.Record) bool {
	for _, f := range model.EpisodeFields {
		if f.Kind != model.KindAmount {
			continue
		}
		if v, _ := rec.Get(f.Name); isText(v) {
			return true
		}
	}
	for i := range rec.Services {
		if v, _ := rec.Services[i].Get(model.FieldNetAmount); isText(v) {
			return true
		}
	}
	return false
}

// hasMissingAmount reports whether a known amount of rec is null or absent.
func hasMissingAmount(rec *model.Record) bool {
	for _, f := range model.EpisodeFields {
		if f.Kind != model.KindAmount {
			continue
		}
		if v, _ := rec.Get(f.Name); v == nil {
			return true
		}
	}
	return false
}

func isText(v any) bool {
	_, ok := v.(string)
	return ok
}
