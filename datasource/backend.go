// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package datasource

import (
	"context"

	"cloud.google.com/go/bigquery"
)

// backend is the subset of the BigQuery API that the data source uses.
//
// It has two implementations: cloudBQ, the production one, and memBQ, the
// in-memory one that the tests use.
type backend interface {
	tableMetadata(ctx context.Context, dataset, table string) (*bigquery.TableMetadata, error)
	createTable(ctx context.Context, dataset, table string, md *bigquery.TableMetadata) error
	deleteTable(ctx context.Context, dataset, table string) error
	insertRows(ctx context.Context, dataset, table string, rows []bigquery.ValueSaver) error
	runQuery(ctx context.Context, query string) (rowSource, error)
	close() error
}

// rowSource iterates over the rows of one query result.
//
// next fills in the next row and returns iterator.Done after the last one.
// schema is valid once next has been called at least once.
type rowSource interface {
	next(row *[]bigquery.Value) error
	schema() bigquery.Schema
}

// cloudBQ is the production backend, a thin shim over bigquery.Client.
type cloudBQ struct {
	client *bigquery.Client
}

var _ backend = &cloudBQ{}

func (c *cloudBQ) tableMetadata(ctx context.Context, dataset, table string) (*bigquery.TableMetadata, error) {
	return c.client.Dataset(dataset).Table(table).Metadata(ctx)
}

func (c *cloudBQ) createTable(ctx context.Context, dataset, table string, md *bigquery.TableMetadata) error {
	return c.client.Dataset(dataset).Table(table).Create(ctx, md)
}

func (c *cloudBQ) deleteTable(ctx context.Context, dataset, table string) error {
	return c.client.Dataset(dataset).Table(table).Delete(ctx)
}

func (c *cloudBQ) insertRows(ctx context.Context, dataset, table string, rows []bigquery.ValueSaver) error {
	return c.client.Dataset(dataset).Table(table).Inserter().Put(ctx, rows)
}

func (c *cloudBQ) runQuery(ctx context.Context, query string) (rowSource, error) {
	it, err := c.client.Query(query).Read(ctx)
	if err != nil {
		return nil, err
	}
	return &cloudRows{it: it}, nil
}

func (c *cloudBQ) close() error {
	return c.client.Close()
}

// cloudRows adapts the client row iterator to rowSource.
type cloudRows struct {
	it *bigquery.RowIterator
}

func (r *cloudRows) next(row *[]bigquery.Value) error {
	return r.it.Next(row)
}

func (r *cloudRows) schema() bigquery.Schema {
	return r.it.Schema
}
