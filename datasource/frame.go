// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package datasource

import (
	"cloud.google.com/go/bigquery"
)

// Frame is one fully materialized query result: named columns in result
// order plus every row.
//
// The whole result lives in memory, so a Frame is only suitable for modest
// result sets.
type Frame struct {
	columns []string
	rows    [][]bigquery.Value
}

// Columns returns a copy of the column names, in result order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// NumRows returns the number of rows in the result.
func (f *Frame) NumRows() int {
	return len(f.rows)
}

// Row returns the i-th row. The returned slice is shared with the Frame,
// not copied; values line up with Columns.
func (f *Frame) Row(i int) []bigquery.Value {
	return f.rows[i]
}
