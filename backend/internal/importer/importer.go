// Package importer bulk-loads users, groups and their edges into the graph.
package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
	"socialgraph/backend/internal/graph"
)

// DefaultConcurrency bounds in-flight writes when none is configured
const DefaultConcurrency = 8

// Follow is one FOLLOWS edge in a dataset
type Follow struct {
	From int64 `yaml:"from" json:"from"`
	To   int64 `yaml:"to" json:"to"`
}

// Subscription is one SUBSCRIBED edge in a dataset
type Subscription struct {
	User  int64 `yaml:"user" json:"user"`
	Group int64 `yaml:"group" json:"group"`
}

// Dataset is the on-disk import format. JSON files parse as well since
// YAML is a superset of JSON.
type Dataset struct {
	Users         []graph.User   `yaml:"users" json:"users"`
	Groups        []graph.Group  `yaml:"groups" json:"groups"`
	Follows       []Follow       `yaml:"follows" json:"follows"`
	Subscriptions []Subscription `yaml:"subscriptions" json:"subscriptions"`
}

// Decode parses a dataset from r
func Decode(r io.Reader) (*Dataset, error) {
	var ds Dataset
	if err := yaml.NewDecoder(r).Decode(&ds); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	return &ds, nil
}

// LoadFile reads and parses a dataset file
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Writer is the subset of the repository an import needs
type Writer interface {
	CreateUser(ctx context.Context, u graph.User) error
	CreateGroup(ctx context.Context, g graph.Group) error
	Follow(ctx context.Context, from, to int64) error
	Subscribe(ctx context.Context, user, group int64) error
}

// Stats counts the writes an import issued
type Stats struct {
	Users         int64
	Groups        int64
	Follows       int64
	Subscriptions int64
}

// Importer writes datasets through a Writer
type Importer struct {
	writer      Writer
	concurrency int
	logger      *zap.Logger
}

// New creates an importer. A concurrency below 1 uses DefaultConcurrency.
func New(w Writer, concurrency int, logger *zap.Logger) *Importer {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{writer: w, concurrency: concurrency, logger: logger.Named("importer")}
}

// Import writes every node before any edge, since edges to missing
// endpoints are skipped. The first failed write cancels the rest.
func (im *Importer) Import(ctx context.Context, ds *Dataset) (Stats, error) {
	var stats Stats

	err := im.run(ctx, func(g *errgroup.Group, gctx context.Context) {
		for _, u := range ds.Users {
			g.Go(func() error {
				if err := im.writer.CreateUser(gctx, u); err != nil {
					return fmt.Errorf("user %d: %w", u.ID, err)
				}
				atomic.AddInt64(&stats.Users, 1)
				return nil
			})
		}
		for _, grp := range ds.Groups {
			g.Go(func() error {
				if err := im.writer.CreateGroup(gctx, grp); err != nil {
					return fmt.Errorf("group %d: %w", grp.ID, err)
				}
				atomic.AddInt64(&stats.Groups, 1)
				return nil
			})
		}
	})
	if err != nil {
		return stats, err
	}
	im.logger.Info("Nodes imported", zap.Int64("users", stats.Users), zap.Int64("groups", stats.Groups))

	err = im.run(ctx, func(g *errgroup.Group, gctx context.Context) {
		for _, f := range ds.Follows {
			g.Go(func() error {
				if err := im.writer.Follow(gctx, f.From, f.To); err != nil {
					return fmt.Errorf("follow %d->%d: %w", f.From, f.To, err)
				}
				atomic.AddInt64(&stats.Follows, 1)
				return nil
			})
		}
		for _, s := range ds.Subscriptions {
			g.Go(func() error {
				if err := im.writer.Subscribe(gctx, s.User, s.Group); err != nil {
					return fmt.Errorf("subscription %d->%d: %w", s.User, s.Group, err)
				}
				atomic.AddInt64(&stats.Subscriptions, 1)
				return nil
			})
		}
	})
	if err != nil {
		return stats, err
	}
	im.logger.Info("Edges imported", zap.Int64("follows", stats.Follows), zap.Int64("subscriptions", stats.Subscriptions))

	return stats, nil
}

func (im *Importer) run(ctx context.Context, schedule func(*errgroup.Group, context.Context)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)
	schedule(g, gctx)
	return g.Wait()
}
