// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package datasource is a thin facade over the BigQuery client, scoped to
// one project and one dataset.
//
// It does very little on purpose. Query execution, storage and quota
// enforcement all happen in the service; the facade formats table names,
// materializes query results into an in-memory Frame, and retries table
// creation and deletion when the service throttles them.
//
// It does not expose very much (only what the projects using it need).
// If you need more functionality, please send a CL.
package datasource

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/retry"
	"go.chromium.org/luci/common/retry/transient"
)

// DataSource is a BigQuery handle bound to a single project and dataset.
//
// A DataSource is not safe for concurrent use; concurrent callers must each
// own their own instance or synchronize externally.
type DataSource struct {
	project string
	dataset string
	bq      backend
}

// New connects to BigQuery and binds the data source to one project and
// dataset.
//
// Options are passed through to the underlying client, which is where
// credentials come from. A connection or credential failure is returned
// immediately, never retried.
func New(ctx context.Context, project, dataset string, opts ...option.ClientOption) (*DataSource, error) {
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, errors.Annotate(err, "connecting to BigQuery project %q", project).Err()
	}
	return &DataSource{
		project: project,
		dataset: dataset,
		bq:      &cloudBQ{client: client},
	}, nil
}

// Close releases the underlying client. The data source is unusable
// afterwards.
func (ds *DataSource) Close() error {
	return ds.bq.close()
}

// tableName returns the fully-qualified form the service expects.
func (ds *DataSource) tableName(tableID string) string {
	return fmt.Sprintf("%s.%s", ds.dataset, tableID)
}

// RunQuery runs the literal query text and materializes the full result.
//
// The query is not escaped or parameterized; the caller owns producing safe
// SQL. Every failure, transient or not, is returned as-is with no retry.
// The whole result set is buffered in memory, so keep result sizes modest.
func (ds *DataSource) RunQuery(ctx context.Context, query string) (*Frame, error) {
	src, err := ds.bq.runQuery(ctx, query)
	if err != nil {
		return nil, errors.Annotate(err, "running query").Err()
	}
	var rows [][]bigquery.Value
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var row []bigquery.Value
		switch err := src.next(&row); {
		case err == iterator.Done:
			return &Frame{columns: columnNames(src.schema()), rows: rows}, nil
		case err != nil:
			return nil, errors.Annotate(err, "reading query result").Err()
		}
		rows = append(rows, row)
	}
}

// GetTable introspects dataset.tableID against the live catalog.
//
// It returns (nil, nil) when the service reports that the table does not
// exist, the table metadata when it does, and an error when the check
// itself failed. "Missing" and "could not check" are distinct outcomes, so
// callers can decide how to treat the ambiguity.
func (ds *DataSource) GetTable(ctx context.Context, tableID string) (*bigquery.TableMetadata, error) {
	md, err := ds.bq.tableMetadata(ctx, ds.dataset, tableID)
	switch {
	case err == nil:
		return md, nil
	case isNotFound(err):
		return nil, nil
	default:
		logging.Debugf(ctx, "Introspecting table %q: %s", ds.tableName(tableID), err)
		return nil, errors.Annotate(err, "introspecting table %q", ds.tableName(tableID)).Err()
	}
}

// CreateOption adjusts the layout of a table created by CreateTable.
type CreateOption func(*bigquery.TableMetadata)

// WithTimePartitioning partitions the new table by day on the given
// timestamp column.
func WithTimePartitioning(field string) CreateOption {
	return func(md *bigquery.TableMetadata) {
		md.TimePartitioning = &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: field,
		}
	}
}

// CreateTable creates dataset.tableID with one column per schema entry, in
// schema order.
//
// When the service throttles the creation job, the call is retried up to
// maxRetries times with exponential backoff plus jitter. Exhausting the
// budget is reported as an error satisfying Exhausted; any other failure is
// returned after the first attempt. On success the table is immediately
// usable.
func (ds *DataSource) CreateTable(ctx context.Context, tableID string, schema Schema, opts ...CreateOption) error {
	name := ds.tableName(tableID)
	fields, err := schema.fieldSchema()
	if err != nil {
		return errors.Annotate(err, "creating table %q", name).Err()
	}
	md := &bigquery.TableMetadata{Schema: fields}
	for _, opt := range opts {
		opt(md)
	}
	err = retry.Retry(ctx, transient.Only(rateLimitRetry), func() error {
		return tagRateLimited(ds.bq.createTable(ctx, ds.dataset, tableID, md))
	}, logRetry(ctx, fmt.Sprintf("create table %q", name)))
	if err != nil {
		return errors.Annotate(err, "creating table %q", name).Err()
	}
	logging.Infof(ctx, "Table %q created successfully.", name)
	return nil
}

// DeleteTable drops dataset.tableID. A table that does not exist counts as
// already deleted.
//
// Quota errors on table update operations are retried on a short backoff;
// exhausting the budget is reported as an error satisfying Exhausted, and
// any other failure is returned after the first attempt.
func (ds *DataSource) DeleteTable(ctx context.Context, tableID string) error {
	name := ds.tableName(tableID)
	err := retry.Retry(ctx, transient.Only(quotaRetry), func() error {
		err := ds.bq.deleteTable(ctx, ds.dataset, tableID)
		if isNotFound(err) {
			return nil
		}
		return tagQuotaExceeded(err)
	}, logRetry(ctx, fmt.Sprintf("delete table %q", name)))
	if err != nil {
		return errors.Annotate(err, "deleting table %q", name).Err()
	}
	logging.Infof(ctx, "Table %q deleted successfully.", name)
	return nil
}

// InsertRows streams rows into dataset.tableID.
//
// Quota errors are retried on the default schedule; anything else is
// returned after the first attempt.
func (ds *DataSource) InsertRows(ctx context.Context, tableID string, rows []bigquery.ValueSaver) error {
	if len(rows) == 0 {
		return nil
	}
	name := ds.tableName(tableID)
	err := retry.Retry(ctx, transient.Only(retry.Default), func() error {
		return tagQuotaExceeded(ds.bq.insertRows(ctx, ds.dataset, tableID, rows))
	}, logRetry(ctx, fmt.Sprintf("insert into %q", name)))
	if err != nil {
		return errors.Annotate(err, "inserting %d rows into %q", len(rows), name).Err()
	}
	logging.Infof(ctx, "Inserted %d rows into %q.", len(rows), name)
	return nil
}

func columnNames(s bigquery.Schema) []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}
