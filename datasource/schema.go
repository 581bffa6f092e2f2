// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package datasource

import (
	"cloud.google.com/go/bigquery"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
)

// Column describes one column of a table to be created.
type Column struct {
	Name string
	Type bigquery.FieldType
}

// Col is shorthand for constructing a Column.
func Col(name string, typ bigquery.FieldType) Column {
	return Column{Name: name, Type: typ}
}

// Schema is an ordered list of columns.
//
// Order is meaningful: the created table lays its columns out in schema
// order. Column names must be unique.
type Schema []Column

// fieldSchema converts s to the client schema representation, preserving
// order and rejecting empty or duplicate column names.
func (s Schema) fieldSchema() (bigquery.Schema, error) {
	seen := stringset.New(len(s))
	out := make(bigquery.Schema, 0, len(s))
	for _, col := range s {
		if col.Name == "" {
			return nil, errors.Reason("schema has a column with an empty name").Err()
		}
		if !seen.Add(col.Name) {
			return nil, errors.Reason("schema has duplicate column %q", col.Name).Err()
		}
		out = append(out, &bigquery.FieldSchema{Name: col.Name, Type: col.Type})
	}
	return out, nil
}
