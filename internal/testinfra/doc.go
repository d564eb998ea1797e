// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

// Package testinfra provides container helpers for integration tests.
//
// It uses testcontainers-go to start real PostgreSQL and Redis instances so
// the store implementations are exercised against the same engines they run
// on in production:
//
//	func TestPostgresStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg)
//
//	    s, err := store.OpenPostgres(ctx, nil, store.PostgresOptions{DSN: pg.DSN})
//	    // ...
//	}
//
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./...
//
// Tests are skipped when Docker is unavailable.
package testinfra
