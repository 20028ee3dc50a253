package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"envdiff/core/database"
	"envdiff/core/snapshot"
	"envdiff/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeConsole struct {
	mock.Mock
}

func (f *fakeConsole) FetchByName(ctx context.Context, name string) (*snapshot.Snapshot, error) {
	args := f.Called(ctx, name)
	env, _ := args.Get(0).(*snapshot.Snapshot)
	return env, args.Error(1)
}

func writeDump(t *testing.T, name string, env *snapshot.Snapshot) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, snapshot.SaveFile(path, env))
	return path
}

func sample(name string) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Name:      name,
		ID:        name + "-id",
		SecretKey: name + "-secret",
		Tables: []snapshot.Table{
			{Name: "Users", TableID: "t1", Columns: []snapshot.Column{{Name: "email", ColumnID: "c1", DataType: "STRING"}}},
		},
		Roles: []snapshot.Role{{RoleID: "r1", Rolename: "Admin"}},
	}
}

func TestClassify(t *testing.T) {
	path := writeDump(t, "prod.json", sample("prod"))

	assert.Equal(t, KindFile, Classify(path))
	assert.Equal(t, KindBucket, Classify("s3://dumps/prod.json"))
	assert.Equal(t, KindDatabase, Classify("db:app"))
	assert.Equal(t, KindConsole, Classify("staging"))
	assert.Equal(t, KindConsole, Classify(t.TempDir()))
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("File", func(t *testing.T) {
		path := writeDump(t, "prod.yaml", sample("prod"))

		env, err := (&Resolver{}).Resolve(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, path, env.Name)
		assert.True(t, env.ReadOnly)
		assert.Equal(t, []string{"Users"}, env.TableNames())
	})

	t.Run("Bucket", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, snapshot.Encode(&buf, sample("prod"), snapshot.FormatJSON))

		store := new(mocks.Client)
		store.On("GetObject", mock.Anything, "dumps", "nightly/prod.json", minio.GetObjectOptions{}).
			Return(io.NopCloser(bytes.NewReader(buf.Bytes())), nil)

		env, err := (&Resolver{Storage: store}).Resolve(ctx, "s3://dumps/nightly/prod.json")
		require.NoError(t, err)
		assert.Equal(t, "s3://dumps/nightly/prod.json", env.Name)
		assert.True(t, env.ReadOnly)
		assert.Equal(t, []string{"Admin"}, env.RoleNames())
	})

	t.Run("Bucket Without Storage", func(t *testing.T) {
		_, err := (&Resolver{}).Resolve(ctx, "s3://dumps/prod.json")
		assert.ErrorContains(t, err, "no object storage configured")
	})

	t.Run("Database", func(t *testing.T) {
		var opened string
		resolver := &Resolver{Database: func(name string) (*gorm.DB, error) {
			opened = name
			db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
			if err != nil {
				return nil, err
			}
			return db, db.Exec("CREATE TABLE Users (email VARCHAR(64) NOT NULL)").Error
		}}

		env, err := resolver.Resolve(ctx, "db:app")
		require.NoError(t, err)
		assert.Equal(t, "app", opened)
		assert.Equal(t, "db:app", env.Name)
		assert.True(t, env.ReadOnly)
		users, ok := env.Table("Users")
		require.True(t, ok)
		assert.Equal(t, "STRING, NN", users.Columns[0].OptionsString())
	})

	t.Run("Database Open Failure", func(t *testing.T) {
		resolver := &Resolver{Database: func(string) (*gorm.DB, error) { return nil, errors.New("refused") }}
		_, err := resolver.Resolve(ctx, "db:app")
		assert.ErrorContains(t, err, "refused")
	})

	t.Run("Console", func(t *testing.T) {
		console := new(fakeConsole)
		console.On("FetchByName", mock.Anything, "staging").Return(sample("staging"), nil)

		env, err := (&Resolver{Console: console}).Resolve(ctx, "staging")
		require.NoError(t, err)
		assert.Equal(t, "staging", env.Name)
		assert.False(t, env.ReadOnly)
	})

	t.Run("Console Missing", func(t *testing.T) {
		_, err := (&Resolver{}).Resolve(ctx, "staging")
		assert.ErrorContains(t, err, "no console configured")
	})
}

func TestResolveAll(t *testing.T) {
	ctx := context.Background()
	path := writeDump(t, "prod.json", sample("prod"))

	t.Run("Keeps Order", func(t *testing.T) {
		console := new(fakeConsole)
		console.On("FetchByName", mock.Anything, "dev").Return(sample("dev"), nil)
		console.On("FetchByName", mock.Anything, "qa").Return(sample("qa"), nil)

		resolver := &Resolver{Console: console, Limit: 2}
		envs, err := resolver.ResolveAll(ctx, []string{"dev", path, "qa"})
		require.NoError(t, err)
		require.Len(t, envs, 3)
		assert.Equal(t, "dev", envs[0].Name)
		assert.Equal(t, path, envs[1].Name)
		assert.Equal(t, "qa", envs[2].Name)
	})

	t.Run("Duplicate Names", func(t *testing.T) {
		console := new(fakeConsole)
		console.On("FetchByName", mock.Anything, "dev").Return(sample("dev"), nil)

		_, err := (&Resolver{Console: console}).ResolveAll(ctx, []string{"dev", "dev"})
		assert.ErrorContains(t, err, "listed more than once")
	})

	t.Run("Failure", func(t *testing.T) {
		console := new(fakeConsole)
		console.On("FetchByName", mock.Anything, "dev").Return(nil, errors.New("dev app does not exist"))

		_, err := (&Resolver{Console: console}).ResolveAll(ctx, []string{path, "dev"})
		assert.ErrorContains(t, err, "dev app does not exist")
	})
}

func TestDump(t *testing.T) {
	ctx := context.Background()

	t.Run("File", func(t *testing.T) {
		env := sample("prod")
		path := filepath.Join(t.TempDir(), "prod.json")

		require.NoError(t, (&Resolver{}).Dump(ctx, path, env))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "prod-secret")
		assert.NotContains(t, string(data), `"t1"`)

		// The live snapshot keeps its ids.
		assert.Equal(t, "prod-id", env.ID)
		users, _ := env.Table("Users")
		assert.Equal(t, "t1", users.TableID)
	})

	t.Run("Bucket", func(t *testing.T) {
		store := new(mocks.Client)
		store.On("BucketExists", mock.Anything, "dumps").Return(true, nil)
		store.On("PutObject", mock.Anything, "dumps", "prod.yaml", mock.Anything, mock.Anything,
			minio.PutObjectOptions{ContentType: "application/yaml"}).Return(minio.UploadInfo{}, nil)

		require.NoError(t, (&Resolver{Storage: store}).Dump(ctx, "s3://dumps/prod.yaml", sample("prod")))
		store.AssertExpectations(t)
	})
}

func TestCache(t *testing.T) {
	ctx := context.Background()

	t.Run("Keeps Fresh Entries", func(t *testing.T) {
		cache := NewCache(time.Minute)
		now := time.Now()
		cache.now = func() time.Time { return now }

		var loads int
		load := func(context.Context) (*snapshot.Snapshot, error) {
			loads++
			return sample("prod"), nil
		}

		first, err := cache.GetOrLoad(ctx, "prod", load)
		require.NoError(t, err)
		second, err := cache.GetOrLoad(ctx, "prod", load)
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Equal(t, 1, loads)

		now = now.Add(2 * time.Minute)
		_, err = cache.GetOrLoad(ctx, "prod", load)
		require.NoError(t, err)
		assert.Equal(t, 2, loads)

		cache.Invalidate("prod")
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("Zero TTL Keeps Nothing", func(t *testing.T) {
		cache := NewCache(0)
		_, err := cache.GetOrLoad(ctx, "prod", func(context.Context) (*snapshot.Snapshot, error) {
			return sample("prod"), nil
		})
		require.NoError(t, err)
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("Errors Are Not Cached", func(t *testing.T) {
		cache := NewCache(time.Minute)
		_, err := cache.GetOrLoad(ctx, "prod", func(context.Context) (*snapshot.Snapshot, error) {
			return nil, errors.New("boom")
		})
		assert.Error(t, err)
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("Concurrent Loads Collapse", func(t *testing.T) {
		cache := NewCache(time.Minute)
		release := make(chan struct{})
		var loads atomic.Int32

		load := func(context.Context) (*snapshot.Snapshot, error) {
			loads.Add(1)
			<-release
			return sample("prod"), nil
		}

		var wg sync.WaitGroup
		results := make([]*snapshot.Snapshot, 5)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], _ = cache.GetOrLoad(ctx, "prod", load)
			}()
		}

		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), loads.Load())
		for _, r := range results {
			assert.Same(t, results[0], r)
		}
	})
	t.Run("Cancelled Caller Does Not Fail Others", func(t *testing.T) {
		cache := NewCache(time.Minute)
		started := make(chan struct{})
		release := make(chan struct{})

		load := func(loadCtx context.Context) (*snapshot.Snapshot, error) {
			close(started)
			<-release
			if err := loadCtx.Err(); err != nil {
				return nil, err
			}
			return sample("prod"), nil
		}

		firstCtx, cancel := context.WithCancel(ctx)
		firstErr := make(chan error, 1)
		go func() {
			_, err := cache.GetOrLoad(firstCtx, "prod", load)
			firstErr <- err
		}()
		<-started

		type result struct {
			env *snapshot.Snapshot
			err error
		}
		second := make(chan result, 1)
		go func() {
			env, err := cache.GetOrLoad(ctx, "prod", load)
			second <- result{env, err}
		}()

		cancel()
		assert.ErrorIs(t, <-firstErr, context.Canceled)

		close(release)
		got := <-second
		require.NoError(t, got.err)
		assert.Equal(t, "prod", got.env.Name)
	})
}
