package compare

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"envdiff/core/diff"
	"envdiff/core/reconcile"
	"envdiff/core/snapshot"
	"envdiff/core/storage"

	"go.uber.org/zap"
)

// ErrInvalidRequest marks errors caused by the request rather than by an
// environment or a backend.
var ErrInvalidRequest = errors.New("invalid request")

// Resolver turns snapshot references into snapshots and writes dumps.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (*snapshot.Snapshot, error)
	ResolveAll(ctx context.Context, refs []string) ([]*snapshot.Snapshot, error)
	Dump(ctx context.Context, target string, env *snapshot.Snapshot) error
}

// Service compares environments and manages snapshot dumps.
type Service struct {
	resolver Resolver
	client   storage.Client
	bucket   string
	prefix   string
	logger   *zap.Logger
}

// NewService creates a new compare service. client may be nil, in which
// case the dump operations fail.
func NewService(resolver Resolver, client storage.Client, bucket, prefix string, logger *zap.Logger) *Service {
	return &Service{
		resolver: resolver,
		client:   client,
		bucket:   bucket,
		prefix:   prefix,
		logger:   logger,
	}
}

// Comparison is the outcome of comparing two or more snapshots.
type Comparison struct {
	Snapshots   []string       `json:"snapshots"`
	Differences bool           `json:"differences"`
	Reports     []*diff.Report `json:"reports"`
}

// Compare resolves refs and runs the selected checks across them.
func (s *Service) Compare(ctx context.Context, refs, checks []string) (*Comparison, error) {
	if len(refs) < 2 {
		return nil, fmt.Errorf("%w: at least two environments are required", ErrInvalidRequest)
	}
	kinds, err := diff.ParseCheckList(checks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	snapshots, err := s.resolver.ResolveAll(ctx, refs)
	if err != nil {
		return nil, err
	}

	reports := diff.CompareAll(snapshots, kinds)
	names := make([]string, len(snapshots))
	for i, env := range snapshots {
		names[i] = env.Name
	}

	s.logger.Info("Compared environments",
		zap.Strings("snapshots", names),
		zap.Bool("differences", diff.AnyDifferences(reports)),
	)

	return &Comparison{
		Snapshots:   names,
		Differences: diff.AnyDifferences(reports),
		Reports:     reports,
	}, nil
}

// PlannedOperation is one operation of a dry-run sync.
type PlannedOperation struct {
	Phase       string           `json:"phase"`
	Target      string           `json:"target"`
	Kind        reconcile.OpKind `json:"kind"`
	Entity      string           `json:"entity"`
	Destructive bool             `json:"destructive"`
	Prompt      string           `json:"prompt,omitempty"`
}

// SyncPlan lists what a sync from Source would change in Targets.
type SyncPlan struct {
	Source     string             `json:"source"`
	Targets    []string           `json:"targets"`
	Operations []PlannedOperation `json:"operations"`
}

// Plan computes the operations a sync from source into targets would run,
// without touching any environment. Read-only targets are skipped.
func (s *Service) Plan(ctx context.Context, source string, targets, checks []string) (*SyncPlan, error) {
	if source == "" || len(targets) == 0 {
		return nil, fmt.Errorf("%w: a source and at least one target are required", ErrInvalidRequest)
	}
	kinds, err := diff.ParseCheckList(checks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	snapshots, err := s.resolver.ResolveAll(ctx, append([]string{source}, targets...))
	if err != nil {
		return nil, err
	}

	syncer := &reconcile.Syncer{
		Checks:  kinds,
		Options: reconcile.Options{DryRun: true},
		Logger:  s.logger,
	}
	report, err := syncer.Sync(ctx, snapshots[0], snapshots[1:])
	if err != nil {
		return nil, err
	}

	plan := &SyncPlan{Source: snapshots[0].Name, Operations: []PlannedOperation{}}
	for _, target := range snapshots[1:] {
		plan.Targets = append(plan.Targets, target.Name)
	}
	for _, phase := range report.Phases {
		for _, op := range phase.Plan {
			plan.Operations = append(plan.Operations, PlannedOperation{
				Phase:       phase.Phase,
				Target:      op.TargetName(),
				Kind:        op.Kind,
				Entity:      op.Entity(),
				Destructive: op.Destructive,
				Prompt:      op.Prompt,
			})
		}
	}
	return plan, nil
}

// Snapshot resolves ref and returns a copy without ids or credentials.
func (s *Service) Snapshot(ctx context.Context, ref string) (*snapshot.Snapshot, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: ref is required", ErrInvalidRequest)
	}
	env, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	clone, err := env.Clone()
	if err != nil {
		return nil, err
	}
	clone.StripIDs()
	return clone, nil
}

// ListDumps returns the keys of the stored dumps.
func (s *Service) ListDumps(ctx context.Context) ([]string, error) {
	if s.client == nil {
		return nil, errors.New("no object storage configured")
	}
	keys, err := storage.List(ctx, s.client, s.bucket, s.prefix)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

// SaveDump resolves ref and stores it under name in the dump bucket. It
// returns the s3 url of the dump.
func (s *Service) SaveDump(ctx context.Context, ref, name string) (string, error) {
	if s.client == nil {
		return "", errors.New("no object storage configured")
	}
	key, err := s.dumpKey(name)
	if err != nil {
		return "", err
	}

	env, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}

	target := storage.FormatURL(s.bucket, key)
	if err := s.resolver.Dump(ctx, target, env); err != nil {
		return "", err
	}
	s.logger.Info("Stored dump", zap.String("env", env.Name), zap.String("target", target))
	return target, nil
}

// RemoveDump deletes a stored dump.
func (s *Service) RemoveDump(ctx context.Context, name string) error {
	if s.client == nil {
		return errors.New("no object storage configured")
	}
	key, err := s.dumpKey(name)
	if err != nil {
		return err
	}
	return storage.Remove(ctx, s.client, s.bucket, key)
}

// dumpKey places name under the dump prefix. Names must not escape it.
func (s *Service) dumpKey(name string) (string, error) {
	name = strings.TrimPrefix(name, s.prefix)
	if name == "" {
		return "", fmt.Errorf("%w: a dump name is required", ErrInvalidRequest)
	}
	clean := path.Clean("/" + name)[1:]
	if clean == "" || clean != name {
		return "", fmt.Errorf("%w: invalid dump name %q", ErrInvalidRequest, name)
	}
	if snapshot.FormatFor(clean) == snapshot.FormatJSON && !strings.HasSuffix(clean, ".json") {
		clean += ".json"
	}
	return s.prefix + clean, nil
}
