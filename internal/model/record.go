package model

import (
	"bytes"
	"encoding/json"
)

// Field is one scalar key/value pair of a record or service. Value is nil
// (missing), float64, string or bool.
type Field struct {
	Name  string
	Value any
}

// Service is a single billed line item ("prestación") of an episode.
type Service struct {
	Fields []Field
}

// Record is one billing episode. Fields keep the key order of the source
// document; Services keep their array order.
type Record struct {
	Fields   []Field
	Services []Service
}

// Get returns the value of the named field.
func (r *Record) Get(name string) (any, bool) {
	return lookup(r.Fields, name)
}

// Get returns the value of the named field.
func (s *Service) Get(name string) (any, bool) {
	return lookup(s.Fields, name)
}

// Set replaces the named field, appending it when absent.
func (r *Record) Set(name string, v any) {
	r.Fields = set(r.Fields, name, v)
}

// Set replaces the named field, appending it when absent.
func (s *Service) Set(name string, v any) {
	s.Fields = set(s.Fields, name, v)
}

// ServiceCount returns the total number of services across records.
func ServiceCount(records []Record) int {
	n := 0
	for i := range records {
		n += len(records[i].Services)
	}
	return n
}

func lookup(fields []Field, name string) (any, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

func set(fields []Field, name string, v any) []Field {
	for i := range fields {
		if fields[i].Name == name {
			fields[i].Value = v
			return fields
		}
	}
	return append(fields, Field{Name: name, Value: v})
}

// MarshalJSON writes the record as an object in field order, followed by its
// services under "prestaciones". The services array is always present.
func (r Record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	if err := writeFields(&b, r.Fields); err != nil {
		return nil, err
	}
	if len(r.Fields) > 0 {
		b.WriteByte(',')
	}
	b.WriteString(`"` + FieldServices + `":[`)
	for i, svc := range r.Services {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('{')
		if err := writeFields(&b, svc.Fields); err != nil {
			return nil, err
		}
		b.WriteByte('}')
	}
	b.WriteString("]}")
	return b.Bytes(), nil
}

func writeFields(b *bytes.Buffer, fields []Field) error {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	return nil
}
