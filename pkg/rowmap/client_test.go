package rowmap

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T, journalType string) *Config {
	t.Helper()
	config := DefaultConfig()
	config.Database.Driver = "sqlite"
	config.Database.Database = filepath.Join(t.TempDir(), "rowmap.db")
	config.Database.MaxSize = 2
	config.Journal.Type = journalType
	config.Drainer.PollInterval = 10 * time.Millisecond
	return config
}

func openSQLite(t *testing.T, journalType string) *Client {
	t.Helper()
	c, err := Open(context.Background(), sqliteConfig(t, journalType))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

var noteSchema = MustDefine("ClientTestNote", "notes",
	String("id", PrimaryKey(), DDL("varchar(50)"), DefaultFunc(NextID)),
	String("title"),
	Integer("views"),
	Float("created_at", DefaultFunc(Now)),
)

const createNotes = "create table `notes` (`id` varchar(50) primary key, `title` varchar(100), `views` bigint, `created_at` real)"

func TestClientLifecycleWithJournal(t *testing.T) {
	ctx := context.Background()
	c := openSQLite(t, "memory")
	assert.Equal(t, "sqlite", c.Dialect())

	_, err := c.Exec(ctx, createNotes)
	require.NoError(t, err)
	notes := c.MustModel(noteSchema)

	var mu sync.Mutex
	var hooked []*ChangeEvent
	c.OnWrite(func(ctx context.Context, event *ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		hooked = append(hooked, event)
		return nil
	})

	n, err := notes.New(map[string]interface{}{"title": "hello"})
	require.NoError(t, err)
	require.NoError(t, n.Save(ctx))
	id, _ := n.GetValue("id").(string)
	assert.Len(t, id, 50)

	found, ok, err := notes.Find(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", found.GetValue("title"))
	assert.Equal(t, int64(0), found.GetValue("views"))
	assert.Equal(t, n.GetValue("created_at"), found.GetValue("created_at"))

	require.NoError(t, found.Set("views", 3))
	require.NoError(t, found.Update(ctx))

	count, ok, err := notes.FindNumber(ctx, "count(`id`)", "`views` > ?", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), count)

	require.NoError(t, found.Remove(ctx))
	_, ok, err = notes.Find(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	mu.Lock()
	require.Len(t, hooked, 3)
	for _, event := range hooked {
		assert.Equal(t, "notes", event.Table)
		assert.Equal(t, id, event.Key)
		assert.Equal(t, int64(1), event.Affected)
	}
	mu.Unlock()
	assert.Equal(t, 3, c.Journal().Size())

	var drained []OperationType
	d, err := c.Drainer(func(ctx context.Context, event *ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		drained = append(drained, event.Operation)
		return nil
	})
	require.NoError(t, err)
	d.Start(ctx)
	require.Eventually(t, func() bool { return d.Processed() == 3 }, 2*time.Second, 10*time.Millisecond)
	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []OperationType{OperationInsert, OperationUpdate, OperationDelete}, drained)
	assert.Zero(t, c.Journal().Size())
}

func TestClientFindAllAndDuplicates(t *testing.T) {
	ctx := context.Background()
	c := openSQLite(t, "")
	assert.Nil(t, c.Journal())

	_, err := c.Exec(ctx, createNotes)
	require.NoError(t, err)
	notes := c.MustModel(noteSchema)

	for i, title := range []string{"a", "b", "c", "d"} {
		n, err := notes.New(map[string]interface{}{"id": title, "title": title, "views": i})
		require.NoError(t, err)
		require.NoError(t, n.Save(ctx))
	}

	dup, err := notes.New(map[string]interface{}{"id": "a"})
	require.NoError(t, err)
	err = dup.Save(ctx)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	page, err := notes.FindAll(ctx, Where("`views` >= ?", 1), OrderBy("`views` desc"), Page(1, 2))
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].Key())
	assert.Equal(t, "b", page[1].Key())

	_, err = notes.FindAll(ctx, Limit(-1))
	assert.Error(t, err)

	rows, err := c.Query(ctx, "select `title` from `notes` order by `title`", 2)
	require.NoError(t, err)
	assert.Equal(t, []Row{{"title": "a"}, {"title": "b"}}, rows)

	_, err = c.Drainer(func(context.Context, *ChangeEvent) error { return nil })
	assert.Error(t, err)
}

func TestOpenTwice(t *testing.T) {
	openSQLite(t, "")

	_, err := Open(context.Background(), sqliteConfig(t, ""))
	assert.ErrorIs(t, err, ErrPoolInitialized)
}

func TestOpenInvalidConfig(t *testing.T) {
	_, err := Open(context.Background(), nil)
	assert.Error(t, err)

	config := sqliteConfig(t, "")
	config.Database.MinSize = 5
	_, err = Open(context.Background(), config)
	assert.ErrorContains(t, err, "min_size")

	config = sqliteConfig(t, "carrier-pigeon")
	_, err = Open(context.Background(), config)
	assert.ErrorContains(t, err, "unsupported journal type")
}

func TestOpenDB(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	config := DefaultConfig()
	config.Database.User = "app"
	config.Database.Database = "awesome"
	config.Database.MaxSize = 3

	c, err := OpenDB(config, db)
	require.NoError(t, err)
	assert.Equal(t, "mysql", c.Dialect())
	assert.Equal(t, 3, c.Stats().MaxSize)

	mock.ExpectQuery("select `id`, `title`, `views`, `created_at` from `notes` where `id`=?").
		WithArgs("n1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "views", "created_at"}).
			AddRow([]byte("n1"), []byte("hi"), []byte("7"), []byte("1.5")))

	notes := c.MustModel(noteSchema)
	n, ok, err := notes.Find(context.Background(), "n1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Row{"id": "n1", "title": "hi", "views": int64(7), "created_at": 1.5}, n.Values())
	require.NoError(t, mock.ExpectationsWereMet())

	require.NoError(t, c.Close())
	_, err = c.Model(noteSchema)
	assert.Error(t, err)
	assert.Panics(t, func() { c.MustModel(noteSchema) })
}

func TestOpenDBNil(t *testing.T) {
	_, err := OpenDB(DefaultConfig(), nil)
	assert.Error(t, err)
	_, err = OpenDB(nil, nil)
	assert.Error(t, err)
}
