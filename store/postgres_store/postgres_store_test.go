package postgres_store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopesDoNotHoldConnections(t *testing.T) {
	// Nothing listens on this address; the pool only dials on first use.
	config, err := pgxpool.ParseConfig("postgres://docqa@127.0.0.1:1/docqa?connect_timeout=1")
	require.NoError(t, err)
	config.MaxConns = 2
	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	require.NoError(t, err)

	st := New(pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer st.Close()

	scopes := make([]interface{ Close() error }, 0, 8)
	for i := 0; i < 8; i++ {
		scope, err := st.Scope(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, scope.Documents())
		assert.NotNil(t, scope.Interactions())
		scopes = append(scopes, scope)
	}
	assert.Equal(t, int32(0), pool.Stat().AcquiredConns())
	assert.Equal(t, int32(0), pool.Stat().TotalConns())

	for _, scope := range scopes {
		assert.NoError(t, scope.Close())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = st.Scope(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpdateStatement(t *testing.T) {
	tests := []struct {
		column   string
		requires string
		expected string
	}{
		{
			column:   "text_content",
			expected: "UPDATE documents SET text_content = $2 WHERE id = $1 AND text_content IS NULL",
		},
		{
			column:   "summary",
			requires: "text_content",
			expected: "UPDATE documents SET summary = $2 WHERE id = $1 AND summary IS NULL AND text_content IS NOT NULL",
		},
		{
			column:   "audio_path",
			requires: "summary",
			expected: "UPDATE documents SET audio_path = $2 WHERE id = $1 AND audio_path IS NULL AND summary IS NOT NULL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			assert.Equal(t, tt.expected, updateStatement(tt.column, tt.requires))
		})
	}
}

func TestDecodeQuotes(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected []string
		wantErr  bool
	}{
		{name: "sql null", data: nil, expected: []string{}},
		{name: "json null", data: []byte("null"), expected: []string{}},
		{name: "empty list", data: []byte("[]"), expected: []string{}},
		{name: "quotes", data: []byte(`["a quote", "another"]`), expected: []string{"a quote", "another"}},
		{name: "not a list", data: []byte(`{"a": 1}`), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quotes, err := decodeQuotes(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, quotes)
		})
	}
}
