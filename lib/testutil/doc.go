// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Courier packages.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern for channel assertions. They are the only places in the test
// suite that wait on the real wall clock; everything else drives time
// through lib/clock's fake clock.
//
// Both helpers call t.Fatalf on failure.
//
// This package has no Courier-internal dependencies.
package testutil
