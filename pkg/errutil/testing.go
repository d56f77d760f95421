// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireOops stops the test unless err carries oops metadata.
func requireOops(t *testing.T, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.Truef(t, ok, "%T carries no oops metadata: %v", err, err)
	return oopsErr
}

// AssertErrorCode checks the code of err. oops reports the innermost code
// in the chain, so a repository code survives service wrapping.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	assert.Equal(t, code, requireOops(t, err).Code(), "code of %v", err)
}

// AssertErrorContext checks one key of the merged oops context of err.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	got, ok := requireOops(t, err).Context()[key]
	if assert.Truef(t, ok, "context of %v has no %q", err, key) {
		assert.Equal(t, value, got, "context %q of %v", key, err)
	}
}

// AssertErrorDomain checks the oops domain err was raised in.
func AssertErrorDomain(t *testing.T, err error, domain string) {
	t.Helper()
	assert.Equal(t, domain, requireOops(t, err).Domain(), "domain of %v", err)
}
