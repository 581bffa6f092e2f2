// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package datasource

import (
	"context"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// memBQ is the in-memory backend used by tests.
//
// Tables live in a map keyed by "dataset.table". Each operation can have a
// fault injected; when a fault function is set it runs first and its error,
// if any, wins over the in-memory behavior.
type memBQ struct {
	tables   map[string]*bigquery.TableMetadata
	inserted map[string][]map[string]bigquery.Value

	queryColumns []string
	queryRows    [][]bigquery.Value

	metadataCalls int
	createCalls   int
	deleteCalls   int
	insertCalls   int
	queryCalls    int

	failMetadata func() error
	failCreate   func() error
	failDelete   func() error
	failInsert   func() error
	failQuery    func() error
}

var _ backend = &memBQ{}

func newMemBQ() *memBQ {
	return &memBQ{
		tables:   map[string]*bigquery.TableMetadata{},
		inserted: map[string][]map[string]bigquery.Value{},
	}
}

func memKey(dataset, table string) string {
	return dataset + "." + table
}

func notFoundErr() error {
	return &googleapi.Error{
		Code: http.StatusNotFound,
		Errors: []googleapi.ErrorItem{
			{Reason: "notFound", Message: "Not found"},
		},
	}
}

func (m *memBQ) tableMetadata(ctx context.Context, dataset, table string) (*bigquery.TableMetadata, error) {
	m.metadataCalls++
	if m.failMetadata != nil {
		if err := m.failMetadata(); err != nil {
			return nil, err
		}
	}
	md, ok := m.tables[memKey(dataset, table)]
	if !ok {
		return nil, notFoundErr()
	}
	return md, nil
}

func (m *memBQ) createTable(ctx context.Context, dataset, table string, md *bigquery.TableMetadata) error {
	m.createCalls++
	if m.failCreate != nil {
		if err := m.failCreate(); err != nil {
			return err
		}
	}
	key := memKey(dataset, table)
	if _, ok := m.tables[key]; ok {
		return &googleapi.Error{
			Code: http.StatusConflict,
			Errors: []googleapi.ErrorItem{
				{Reason: "duplicate", Message: "Already exists"},
			},
		}
	}
	m.tables[key] = md
	return nil
}

func (m *memBQ) deleteTable(ctx context.Context, dataset, table string) error {
	m.deleteCalls++
	if m.failDelete != nil {
		if err := m.failDelete(); err != nil {
			return err
		}
	}
	key := memKey(dataset, table)
	if _, ok := m.tables[key]; !ok {
		return notFoundErr()
	}
	delete(m.tables, key)
	return nil
}

func (m *memBQ) insertRows(ctx context.Context, dataset, table string, rows []bigquery.ValueSaver) error {
	m.insertCalls++
	if m.failInsert != nil {
		if err := m.failInsert(); err != nil {
			return err
		}
	}
	key := memKey(dataset, table)
	if _, ok := m.tables[key]; !ok {
		return notFoundErr()
	}
	for _, r := range rows {
		row, _, err := r.Save()
		if err != nil {
			return err
		}
		m.inserted[key] = append(m.inserted[key], row)
	}
	return nil
}

func (m *memBQ) runQuery(ctx context.Context, query string) (rowSource, error) {
	m.queryCalls++
	if m.failQuery != nil {
		if err := m.failQuery(); err != nil {
			return nil, err
		}
	}
	return &memRows{columns: m.queryColumns, rows: m.queryRows}, nil
}

func (m *memBQ) close() error {
	return nil
}

// memRows serves canned rows as a rowSource.
type memRows struct {
	columns []string
	rows    [][]bigquery.Value
	pos     int
}

func (r *memRows) next(row *[]bigquery.Value) error {
	if r.pos >= len(r.rows) {
		return iterator.Done
	}
	*row = r.rows[r.pos]
	r.pos++
	return nil
}

func (r *memRows) schema() bigquery.Schema {
	s := make(bigquery.Schema, len(r.columns))
	for i, name := range r.columns {
		s[i] = &bigquery.FieldSchema{Name: name}
	}
	return s
}
