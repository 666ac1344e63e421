// Package metadata describes the columns of a converted table.
//
// A Document is built once from the final column list of a conversion and is
// not mutated afterwards:
//
//	{ "version": "1.0",
//	  "columns": [
//	    { "name": "price", "id": "price", "type": "Number",
//	      "analyticalType": "measure", "aggregationFunction": "NONE" } ] }
package metadata

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Version is the document format version.
const Version = "1.0"

// Type is the inferred data type of a column.
type Type string

const (
	TypeUnset  Type = ""
	TypeNumber Type = "Number"
	TypeString Type = "String"
)

// AnalyticalType classifies a column for analysis tools.
type AnalyticalType string

const (
	Measure   AnalyticalType = "measure"
	Dimension AnalyticalType = "dimension"
)

// AggregationNone is the aggregation marker carried by measure columns.
const AggregationNone = "NONE"

// Field is the input to Build: a column name as discovered and its type.
type Field struct {
	Name string
	Type Type
}

// Column is one entry of the document.
type Column struct {
	Name                string         `json:"name" yaml:"name"`
	ID                  string         `json:"id" yaml:"id"`
	Type                Type           `json:"type" yaml:"type"`
	AnalyticalType      AnalyticalType `json:"analyticalType" yaml:"analyticalType"`
	AggregationFunction string         `json:"aggregationFunction,omitempty" yaml:"aggregationFunction,omitempty"`
}

// Document is the schema description of a converted table.
type Document struct {
	Version string   `json:"version" yaml:"version"`
	Columns []Column `json:"columns" yaml:"columns"`
}

var nonIdent = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// CleanName strips double quotes from a column name.
func CleanName(name string) string { return strings.ReplaceAll(name, `"`, "") }

// SanitizeID replaces each run of characters outside [a-zA-Z0-9_] with "_".
func SanitizeID(name string) string { return nonIdent.ReplaceAllString(name, "_") }

// Build creates the document for fields given in ordinal order. Fields whose
// type was never determined are left out.
func Build(fields []Field) *Document {
	doc := &Document{Version: Version, Columns: make([]Column, 0, len(fields))}
	for _, f := range fields {
		if f.Type == TypeUnset {
			continue
		}
		name := CleanName(f.Name)
		col := Column{Name: name, ID: SanitizeID(name), Type: f.Type, AnalyticalType: Dimension}
		if f.Type == TypeNumber {
			col.AnalyticalType = Measure
			col.AggregationFunction = AggregationNone
		}
		doc.Columns = append(doc.Columns, col)
	}
	return doc
}

// Format selects a rendering of the document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml"; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("metadata: unknown format %q", s)
}

// JSON renders the document as compact JSON.
func (d *Document) JSON() ([]byte, error) { return json.Marshal(d) }

// YAML renders the document as YAML.
func (d *Document) YAML() ([]byte, error) { return yaml.Marshal(d) }

// Render renders the document in the given format.
func (d *Document) Render(f Format) ([]byte, error) {
	if f == FormatYAML {
		return d.YAML()
	}
	return d.JSON()
}

// Names returns the column names in ordinal order.
func (d *Document) Names() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}
