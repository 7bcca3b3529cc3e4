package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	version int
	dirty   bool
	max     int
	err     error
}

func (f *fakeMigrator) Version(context.Context) (int, bool, error) {
	return f.version, f.dirty, f.err
}

func (f *fakeMigrator) Up(_ context.Context, n int) (int, int, error) {
	if f.err != nil {
		return f.version, 0, f.err
	}
	start := f.version
	if n < 1 || f.version+n > f.max {
		f.version = f.max
	} else {
		f.version += n
	}
	return f.version, f.version - start, nil
}

func (f *fakeMigrator) Down(_ context.Context, n int) (int, int, error) {
	if f.err != nil {
		return f.version, 0, f.err
	}
	start := f.version
	if n < 1 || n > f.version {
		f.version = 0
	} else {
		f.version -= n
	}
	return f.version, start - f.version, nil
}

func TestMigrateUp(t *testing.T) {
	m := &fakeMigrator{max: 2}

	var out bytes.Buffer
	require.NoError(t, migrateUp(context.Background(), m, 0, &out))
	assert.Equal(t, "applied 2 migration(s), version 2\n", out.String())

	out.Reset()
	require.NoError(t, migrateUp(context.Background(), m, 0, &out))
	assert.Equal(t, "no migrations applied, version 2\n", out.String())
}

func TestMigrateDown(t *testing.T) {
	m := &fakeMigrator{version: 2, max: 2}

	var out bytes.Buffer
	require.NoError(t, migrateDown(context.Background(), m, 1, &out))
	assert.Equal(t, "rolled back 1 migration(s), version 1\n", out.String())
}

func TestPrintVersion(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printVersion(context.Background(), &fakeMigrator{version: 1, dirty: true}, &out))
	assert.Equal(t, "version 1 (dirty)\n", out.String())
}

func TestMigrate_PropagatesErrors(t *testing.T) {
	boom := errors.New("connection refused")
	m := &fakeMigrator{err: boom}

	assert.ErrorIs(t, migrateUp(context.Background(), m, 0, &bytes.Buffer{}), boom)
	assert.ErrorIs(t, migrateDown(context.Background(), m, 0, &bytes.Buffer{}), boom)
	assert.ErrorIs(t, printVersion(context.Background(), m, &bytes.Buffer{}), boom)
}
