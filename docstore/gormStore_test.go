package docstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/grampanchayat/villagestats_backend/docstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Needs a MySQL 8 database: INTEGRATION_TESTS=1 TEST_MYSQL_DSN=user:pass@tcp(host:3306)/db?parseTime=true
func TestGormStore_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run MySQL integration tests")
	}
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	s := docstore.NewGormStore(db, nil)
	require.NoError(t, s.Migrate())

	ctx := context.Background()
	c := "gramPanchayats/it-" + uuid.NewString()[:8] + "/statisticsYears"
	require.NoError(t, s.Set(ctx, c+"/2023", docstore.Record{"year": 2023}))
	require.NoError(t, s.Set(ctx, c+"/2024", docstore.Record{"year": 2024, "createdAt": docstore.ServerTimestamp}))

	snaps, err := s.List(ctx, c, docstore.Query{
		OrderBy: []docstore.Order{docstore.OrderBy("year", docstore.Desc)},
	})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "2024", snaps[0].ID)

	snaps, err = s.List(ctx, c, docstore.Query{Filters: []docstore.Filter{docstore.Where("year", 2023)}})
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	require.NoError(t, s.Update(ctx, c+"/2023", docstore.Record{"note": "x"}))
	assert.ErrorIs(t, s.Update(ctx, c+"/1999", docstore.Record{"note": "x"}), docstore.ErrNotFound)

	require.NoError(t, s.BatchWrite(ctx, []docstore.Write{
		{Path: c + "/2023", Delete: true},
		{Path: c + "/2024", Delete: true},
	}))
	snaps, err = s.List(ctx, c, docstore.Query{})
	require.NoError(t, err)
	assert.Empty(t, snaps)
}
