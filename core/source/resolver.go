package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"envdiff/core/database"
	"envdiff/core/snapshot"
	"envdiff/core/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Kind is where a snapshot reference points.
type Kind string

const (
	// KindConsole is a live environment addressed by name.
	KindConsole Kind = "console"
	// KindFile is a JSON or YAML dump on disk.
	KindFile Kind = "file"
	// KindBucket is a dump stored as s3://bucket/key.
	KindBucket Kind = "bucket"
	// KindDatabase is a database schema addressed as db:<name>.
	KindDatabase Kind = "database"
)

// DatabasePrefix marks references resolved by schema inspection.
const DatabasePrefix = "db:"

// Classify tells where ref points. Anything that is not a bucket url, a
// database reference or an existing regular file is an environment name.
func Classify(ref string) Kind {
	switch {
	case storage.IsURL(ref):
		return KindBucket
	case strings.HasPrefix(ref, DatabasePrefix):
		return KindDatabase
	}
	if info, err := os.Stat(ref); err == nil && info.Mode().IsRegular() {
		return KindFile
	}
	return KindConsole
}

// ConsoleFetcher captures live environments by name.
type ConsoleFetcher interface {
	FetchByName(ctx context.Context, name string) (*snapshot.Snapshot, error)
}

// DatabaseOpener returns the database behind a db:<name> reference.
type DatabaseOpener func(name string) (*gorm.DB, error)

// Resolver turns references into snapshots. Only live environments are
// writable; every other kind is loaded read-only.
type Resolver struct {
	// Console fetches live environments. Required for console references.
	Console ConsoleFetcher

	// Storage reads and writes bucket dumps. Required for s3:// references.
	Storage storage.Client

	// Database opens db:<name> references. Required for database references.
	Database DatabaseOpener

	// Cache, when set, keeps resolved snapshots between calls.
	Cache *Cache

	// Limit bounds the references resolved at once. Zero means no bound.
	Limit int

	Logger *zap.Logger
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// Resolve loads the snapshot behind ref.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*snapshot.Snapshot, error) {
	if r.Cache != nil {
		return r.Cache.GetOrLoad(ctx, ref, func(ctx context.Context) (*snapshot.Snapshot, error) {
			return r.load(ctx, ref)
		})
	}
	return r.load(ctx, ref)
}

func (r *Resolver) load(ctx context.Context, ref string) (*snapshot.Snapshot, error) {
	kind := Classify(ref)
	r.logger().Debug("Resolving snapshot", zap.String("ref", ref), zap.String("kind", string(kind)))

	switch kind {
	case KindFile:
		return snapshot.LoadFile(ref)

	case KindBucket:
		if r.Storage == nil {
			return nil, fmt.Errorf("%s: no object storage configured", ref)
		}
		bucket, key, err := storage.ParseURL(ref)
		if err != nil {
			return nil, err
		}
		data, err := storage.Download(ctx, r.Storage, bucket, key)
		if err != nil {
			return nil, err
		}
		env, err := snapshot.Decode(bytes.NewReader(data), snapshot.FormatFor(key))
		if err != nil {
			return nil, fmt.Errorf("dump %s: %w", ref, err)
		}
		env.Name = ref
		env.ReadOnly = true
		return env, nil

	case KindDatabase:
		if r.Database == nil {
			return nil, fmt.Errorf("%s: no database configured", ref)
		}
		db, err := r.Database(strings.TrimPrefix(ref, DatabasePrefix))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ref, err)
		}
		return database.InspectSnapshot(ctx, db, ref)

	default:
		if r.Console == nil {
			return nil, fmt.Errorf("%s: no console configured", ref)
		}
		return r.Console.FetchByName(ctx, ref)
	}
}

// ResolveAll loads every reference concurrently and keeps their order.
// The first failure cancels the remaining loads. Two references resolving
// to the same snapshot name are rejected.
func (r *Resolver) ResolveAll(ctx context.Context, refs []string) ([]*snapshot.Snapshot, error) {
	snapshots := make([]*snapshot.Snapshot, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	if r.Limit > 0 {
		g.SetLimit(r.Limit)
	}
	for i, ref := range refs {
		g.Go(func() error {
			env, err := r.Resolve(gctx, ref)
			if err != nil {
				return err
			}
			snapshots[i] = env
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(snapshots))
	for _, env := range snapshots {
		if _, dup := seen[env.Name]; dup {
			return nil, fmt.Errorf("snapshot %q is listed more than once", env.Name)
		}
		seen[env.Name] = struct{}{}
	}
	return snapshots, nil
}

// Dump writes env, with every environment id and credential removed, to a
// file path or an s3://bucket/key url. env itself is left untouched.
func (r *Resolver) Dump(ctx context.Context, target string, env *snapshot.Snapshot) error {
	clone, err := env.Clone()
	if err != nil {
		return err
	}
	clone.StripIDs()

	if !storage.IsURL(target) {
		return snapshot.SaveFile(target, clone)
	}

	if r.Storage == nil {
		return fmt.Errorf("%s: no object storage configured", target)
	}
	bucket, key, err := storage.ParseURL(target)
	if err != nil {
		return err
	}

	format := snapshot.FormatFor(key)
	var buf bytes.Buffer
	if err := snapshot.Encode(&buf, clone, format); err != nil {
		return err
	}
	return storage.Upload(ctx, r.Storage, bucket, key, buf.Bytes(), format.ContentType())
}
