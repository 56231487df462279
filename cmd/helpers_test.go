//go:build !integration

package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-cleanup/internal/classify"
	"github.com/sells-group/crm-cleanup/internal/store"
)

const contactsCSV = "First,Last,Email,Phone\n" +
	"John,Smith,john@x.com,\n" +
	"John,Smith,johnsmith@gmail.com,\n" +
	"Sam,,sam@acmewidgets.com,\n"

const phoneCSV = "First,Last,Phone\n" +
	"Ann,Lee,555-867-5309\n"

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return st
}

func newTestEnv(st store.Store) *cleanupEnv {
	return &cleanupEnv{
		Rules:     classify.DefaultRules(),
		SliceSize: 1000,
		Threshold: 2000,
		Store:     st,
	}
}
