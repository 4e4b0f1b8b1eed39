package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"

	"github.com/gyeh/billingstats/internal/model"
)

// ErrTooManyRecords is returned when a document holds more records than the
// configured cap.
var ErrTooManyRecords = errors.New("record limit exceeded")

// RecordError describes a structurally invalid record that was rejected
// during decoding.
type RecordError struct {
	Index  int
	Reason string
}

func (e RecordError) Error() string {
	return fmt.Sprintf("record %d: %s", e.Index, e.Reason)
}

var gzipMagic = []byte{0x1f, 0x8b}

// Open opens an episode file for decoding. Gzip input is detected from its
// magic bytes and decompressed with pgzip.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	br := bufio.NewReader(f)
	head, _ := br.Peek(2)
	if !bytes.Equal(head, gzipMagic) {
		return readCloser{Reader: br, close: f.Close}, nil
	}
	zr, err := pgzip.NewReader(br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("gzip %s: %w", path, err)
	}
	return readCloser{Reader: zr, close: func() error {
		zerr := zr.Close()
		if err := f.Close(); err != nil {
			return err
		}
		return zerr
	}}, nil
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

// Decode reads a JSON array of episode objects. Field order of every object is
// preserved. Records that are not objects, or whose "prestaciones" is neither
// an array of objects nor null, are returned as RecordErrors and skipped.
// A malformed document is a hard error. maxRecords <= 0 disables the cap.
func Decode(r io.Reader, maxRecords int) ([]model.Record, []RecordError, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("read document start: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, nil, fmt.Errorf("document must be a JSON array of episodes")
	}

	var (
		records  []model.Record
		rejected []RecordError
	)
	for idx := 0; dec.More(); idx++ {
		if maxRecords > 0 && idx >= maxRecords {
			return nil, nil, fmt.Errorf("%w: more than %d records", ErrTooManyRecords, maxRecords)
		}
		v, err := readValue(dec)
		if err != nil {
			return nil, nil, fmt.Errorf("record %d: %w", idx, err)
		}
		rec, reason := toRecord(v)
		if reason != "" {
			rejected = append(rejected, RecordError{Index: idx, Reason: reason})
			continue
		}
		records = append(records, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("read document end: %w", err)
	}
	return records, rejected, nil
}

// DecodeRecords decodes an in-memory JSON array, as received over HTTP.
func DecodeRecords(raw []byte, maxRecords int) ([]model.Record, []RecordError, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil, nil
	}
	return Decode(bytes.NewReader(raw), maxRecords)
}

// object is a JSON object with its key order preserved.
type object []model.Field

// readValue reads one JSON value. Objects become object, arrays []any,
// numbers json.Number.
func readValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		obj := object{}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", kt)
			}
			v, err := readValue(dec)
			if err != nil {
				return nil, err
			}
			obj = append(obj, model.Field{Name: key, Value: v})
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			v, err := readValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %v", d)
}

// toRecord validates a decoded value. A non-empty reason means rejection.
func toRecord(v any) (model.Record, string) {
	obj, ok := v.(object)
	if !ok {
		return model.Record{}, fmt.Sprintf("expected object, got %s", kindOf(v))
	}
	var rec model.Record
	for _, f := range obj {
		if f.Name != model.FieldServices {
			rec.Fields = append(rec.Fields, model.Field{Name: f.Name, Value: scalar(f.Value)})
			continue
		}
		switch svcs := f.Value.(type) {
		case nil:
		case []any:
			for i, s := range svcs {
				so, ok := s.(object)
				if !ok {
					return model.Record{}, fmt.Sprintf("%s[%d]: expected object, got %s", model.FieldServices, i, kindOf(s))
				}
				svc := model.Service{Fields: make([]model.Field, 0, len(so))}
				for _, sf := range so {
					svc.Fields = append(svc.Fields, model.Field{Name: sf.Name, Value: scalar(sf.Value)})
				}
				rec.Services = append(rec.Services, svc)
			}
		default:
			return model.Record{}, fmt.Sprintf("%s: expected array, got %s", model.FieldServices, kindOf(f.Value))
		}
	}
	return rec, ""
}

// scalar converts a decoded value to a table cell. Numbers become float64;
// nested objects and arrays are kept as their JSON text.
func scalar(v any) any {
	switch x := v.(type) {
	case nil, string, bool:
		return x
	case json.Number:
		f, err := strconv.ParseFloat(string(x), 64)
		if err != nil {
			return string(x)
		}
		return f
	default:
		var b strings.Builder
		writeJSON(&b, v)
		return b.String()
	}
}

func writeJSON(b *strings.Builder, v any) {
	switch x := v.(type) {
	case object:
		b.WriteByte('{')
		for i, f := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSON(b, f.Name)
			b.WriteByte(':')
			writeJSON(b, f.Value)
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSON(b, e)
		}
		b.WriteByte(']')
	case json.Number:
		b.WriteString(string(x))
	default:
		enc, _ := json.Marshal(x)
		b.Write(enc)
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case object:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
