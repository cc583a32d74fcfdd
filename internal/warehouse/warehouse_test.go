package warehouse

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplychain/internal/config"
	"supplychain/internal/models"
)

func openTest(t *testing.T) *Warehouse {
	t.Helper()

	cfg := config.WarehouseConfig{
		Driver:    DriverSQLite,
		DSN:       filepath.Join(t.TempDir(), "warehouse.db"),
		BatchSize: 2,
	}

	w, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	require.NoError(t, w.EnsureSchema(context.Background()))

	return w
}

var scraped = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func bookTables(titles ...string) []*models.Table {
	books := make([]models.Book, 0, len(titles))
	for i, title := range titles {
		books = append(books, models.Book{
			BookID: "BK_00000" + string(rune('1'+i)), Title: title, UnitPrice: 12.99,
			AuthorCode: "HRB", Availability: "In Stock", LinkID: "lnk", ScrapedAt: scraped,
		})
	}

	return []*models.Table{
		// Deliberately out of group order; the loader sorts.
		models.NewTable(models.TableBookCategoryXref, []models.BookCategoryBridge{
			{BookID: "BK_000001", CategoryCode: "CLS"},
			{BookID: "BK_000001", CategoryCode: "SCF"},
		}),
		models.NewTable(models.TableBookCatalog, books),
		models.DimensionTable(models.TableBookCategoryRef, []models.DimensionEntry{
			{Code: "CLS", Name: "Classics"}, {Code: "SCF", Name: "Sci-Fi"}, {Code: "UNK", Name: "Unknown"},
		}),
		models.DimensionTable(models.TableAuthorRef, []models.DimensionEntry{
			{Code: "HRB", Name: "Frank Herbert"}, {Code: "UNK", Name: "Unknown"},
		}),
	}
}

func counts(t *testing.T, w *Warehouse) map[string]int64 {
	t.Helper()

	list, err := w.Verify(context.Background())
	require.NoError(t, err)
	require.Len(t, list, len(models.Catalog))

	out := make(map[string]int64, len(list))
	for _, c := range list {
		out[c.Table] = c.Rows
	}

	return out
}

func TestLoadSourceIsIdempotent(t *testing.T) {
	w := openTest(t)
	ctx := context.Background()

	for range 2 {
		res, err := w.LoadSource(ctx, models.SourceBooks, bookTables("Dune", "Emma", "Ulysses"))
		require.NoError(t, err)
		assert.Equal(t, 10, res.Inserted)
	}

	c := counts(t, w)
	assert.Equal(t, int64(3), c[models.TableBookCatalog])
	assert.Equal(t, int64(2), c[models.TableBookCategoryXref])
	assert.Equal(t, int64(3), c[models.TableBookCategoryRef])
	assert.Equal(t, int64(0), c[models.TableInventory])
}

func TestLoadSourceFailureRollsBackOnlyThatSource(t *testing.T) {
	w := openTest(t)
	ctx := context.Background()

	_, err := w.LoadSource(ctx, models.SourceBooks, bookTables("Dune"))
	require.NoError(t, err)

	products := []*models.Table{
		models.DimensionTable(models.TableCategoryRef, []models.DimensionEntry{{Code: "UNK", Name: "Unknown"}}),
	}
	_, err = w.LoadSource(ctx, models.SourceProducts, products)
	require.NoError(t, err)

	// Duplicate primary key inside the books reload.
	broken := bookTables("Dune", "Emma")
	broken[1].Rows = append(broken[1].Rows, broken[1].Rows[0])

	_, err = w.LoadSource(ctx, models.SourceBooks, broken)
	require.Error(t, err)

	c := counts(t, w)
	assert.Equal(t, int64(1), c[models.TableBookCatalog], "previous books load survives")
	assert.Equal(t, int64(1), c[models.TableCategoryRef], "other source untouched")
}

func TestLoadSourceRejectsForeignTables(t *testing.T) {
	w := openTest(t)

	_, err := w.LoadSource(context.Background(), models.SourceFilms, bookTables("Dune"))
	assert.ErrorIs(t, err, ErrSourceMismatch)
}

func TestLoadSourceStoresNulls(t *testing.T) {
	w := openTest(t)
	ctx := context.Background()

	_, err := w.LoadSource(ctx, models.SourceBooks, bookTables("Dune"))
	require.NoError(t, err)

	res, err := w.RunQuery(ctx, "SELECT rtg_val, scrp_dt FROM BK_CATALOG WHERE rtg_val IS NULL", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)
	assert.Equal(t, []string{"", "2026-03-01T12:00:00Z"}, res.Sample[0])
}

func TestCreateViews(t *testing.T) {
	w := openTest(t)
	ctx := context.Background()

	_, err := w.LoadSource(ctx, models.SourceBooks, bookTables("Dune"))
	require.NoError(t, err)

	require.NoError(t, w.CreateViews(ctx))
	require.NoError(t, w.CreateViews(ctx), "views are replaceable")

	res, err := w.RunQuery(ctx, "SELECT bk_ttl, auth_nm, categories, cat_cnt FROM VW_BK_ANALYTICS", 5)
	require.NoError(t, err)
	require.Equal(t, 1, res.Rows)

	row := res.Sample[0]
	assert.Equal(t, "Dune", row[0])
	assert.Equal(t, "Frank Herbert", row[1])
	assert.ElementsMatch(t, []string{"Classics", "Sci-Fi"}, strings.Split(row[2], ","))
	assert.Equal(t, "2", row[3])

	for _, view := range []string{ViewInventoryAnalytics, ViewMediaAnalytics} {
		_, err := w.RunQuery(ctx, "SELECT * FROM "+view, 1)
		assert.NoError(t, err, view)
	}
}

func TestOrphans(t *testing.T) {
	w := openTest(t)
	ctx := context.Background()

	tables := bookTables("Dune")
	tables[0].Rows = append(tables[0].Rows, []any{"BK_999999", "HOR"})

	_, err := w.LoadSource(ctx, models.SourceBooks, tables)
	require.NoError(t, err, "dangling references never block a load")

	orphans, err := w.Orphans(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 2)

	assert.Equal(t, Orphan{Table: models.TableBookCategoryXref, Column: "bk_cat_cd", Parent: models.TableBookCategoryRef, Rows: 1, Samples: []string{"HOR"}}, orphans[0])
	assert.Equal(t, "bk_id", orphans[1].Column)
	assert.Equal(t, []string{"BK_999999"}, orphans[1].Samples)
}

func TestTaskRegistry(t *testing.T) {
	w := openTest(t)
	ctx := context.Background()

	name, err := w.CreateTask(ctx, "task_q1_cross-domain analysis", "USING CRON 0 6 * * * UTC", "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, "TASK_Q1_CROSS_DOMAIN_ANALYSIS", name)

	task, err := w.GetTask(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, TaskStarted, task.State)
	assert.False(t, task.CreatedAt.IsZero())

	require.NoError(t, w.SuspendTask(ctx, name))

	task, err = w.GetTask(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, TaskSuspended, task.State)

	_, err = w.CreateTask(ctx, name, "USING CRON 0 7 * * * UTC", "SELECT 2")
	require.NoError(t, err)

	tasks, err := w.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "SELECT 2", tasks[0].Query)
	assert.Equal(t, TaskStarted, tasks[0].State, "replace restarts the task")

	assert.ErrorIs(t, w.ResumeTask(ctx, "TASK_MISSING"), ErrTaskNotFound)

	dropped, err := w.DropTask(ctx, name)
	require.NoError(t, err)
	assert.True(t, dropped)

	dropped, err = w.DropTask(ctx, name)
	require.NoError(t, err)
	assert.False(t, dropped)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.WarehouseConfig{Driver: "oracle", DSN: "x"}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestTableDDLHasNoForeignKeys(t *testing.T) {
	w := &Warehouse{dialect: dialects[DriverPostgres], schema: "demo"}

	spec, _ := models.LookupSpec(models.TableMediaAwardXref)
	ddl := w.tableDDL(spec)

	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS demo.MEDIA_AWD_XREF")
	assert.Contains(t, ddl, "awd_yr BIGINT,")
	assert.Contains(t, ddl, "media_id TEXT NOT NULL")
	assert.Contains(t, ddl, "PRIMARY KEY (media_id, awd_cat_cd)")
	assert.NotContains(t, strings.ToUpper(ddl), "REFERENCES")
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", dialects[DriverSQLite].placeholder(3))
	assert.Equal(t, "$3", dialects[DriverPostgres].placeholder(3))
}
