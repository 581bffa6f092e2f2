// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package datasource

import (
	"context"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"

	"go.chromium.org/luci/common/data/rand/mathrand"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/retry"
	"go.chromium.org/luci/common/retry/transient"
)

// maxRetries caps how many backoff sleeps a throttled operation gets before
// it gives up.
const maxRetries = 5

// rateLimitBackoff is the table-creation retry schedule: 2^n seconds plus
// up to one second of jitter, for n = 0..maxRetries-1.
type rateLimitBackoff struct {
	attempt int
}

func (b *rateLimitBackoff) Next(ctx context.Context, err error) time.Duration {
	if b.attempt >= maxRetries {
		return retry.Stop
	}
	d := time.Duration(1<<uint(b.attempt))*time.Second +
		time.Duration(mathrand.Float64(ctx)*float64(time.Second))
	b.attempt++
	return d
}

// quotaBackoff is the table-deletion retry schedule: 0.1 * 2^n seconds, no
// jitter, for n = 0..maxRetries-1.
type quotaBackoff struct {
	attempt int
}

func (b *quotaBackoff) Next(ctx context.Context, err error) time.Duration {
	if b.attempt >= maxRetries {
		return retry.Stop
	}
	d := time.Duration(1<<uint(b.attempt)) * 100 * time.Millisecond
	b.attempt++
	return d
}

func rateLimitRetry() retry.Iterator {
	return &rateLimitBackoff{}
}

func quotaRetry() retry.Iterator {
	return &quotaBackoff{}
}

// hasReason reports whether err is a service error carrying one of the
// given error reasons.
func hasReason(err error, reasons ...string) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, e := range apiErr.Errors {
		for _, r := range reasons {
			if e.Reason == r {
				return true
			}
		}
	}
	return false
}

// tagRateLimited marks creation-job rate limit errors as transient so the
// retry loop picks them up. Everything else passes through untouched.
func tagRateLimited(err error) error {
	if hasReason(err, "rateLimitExceeded", "jobRateLimitExceeded") {
		return transient.Tag.Apply(err)
	}
	return err
}

// tagQuotaExceeded marks quota errors on table update operations as
// transient. Everything else passes through untouched.
func tagQuotaExceeded(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden && hasReason(err, "quotaExceeded") {
		return transient.Tag.Apply(err)
	}
	return err
}

// isNotFound reports whether err is the service's 404.
func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

// logRetry logs each backoff at debug level. Retry noise stays out of the
// default log output; successes are reported at info level by the callers.
func logRetry(ctx context.Context, name string) retry.Callback {
	return func(err error, d time.Duration) {
		logging.Debugf(ctx, "%s throttled: %s. Retrying in %s...", name, err, d)
	}
}

// Exhausted reports whether err, as returned by CreateTable, DeleteTable or
// InsertRows, means the operation kept being throttled until its retry
// budget ran out. Fatal errors are never marked this way.
func Exhausted(err error) bool {
	return transient.Tag.In(err)
}
