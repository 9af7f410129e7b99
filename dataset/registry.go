package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spektr-org/tablero/engine"
	"github.com/spektr-org/tablero/metrics"
	"github.com/spektr-org/tablero/schema"
)

// ============================================================================
// REGISTRY - Named datasets shared by pages, the API and the CLI
// ============================================================================
// Datasets are loaded once at start and replaced wholesale on upload.
// Readers get the *Entry current at the time of the call; a replacement
// never mutates a frame a reader already holds.
// ============================================================================

// ErrUnknownDataset is returned for a dataset name the registry does not hold.
var ErrUnknownDataset = errors.New("unknown dataset")

// Source describes where a dataset comes from and how it is cleaned.
type Source struct {
	Name    string
	Path    string
	Cleaner Cleaner
}

// Entry is one loaded dataset.
type Entry struct {
	Name     string         `json:"name"`
	Origin   string         `json:"origin"` // file path or upload file name
	Frame    *engine.Frame  `json:"-"`
	Schema   *schema.Config `json:"schema,omitempty"`
	Skipped  int            `json:"skippedRows"`
	LoadedAt time.Time      `json:"loadedAt"`
}

// Registry holds the named datasets. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	cleaners map[string]Cleaner

	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewRegistry creates an empty registry. m may be nil.
func NewRegistry(logger *zap.Logger, m *metrics.Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		entries:  make(map[string]*Entry),
		cleaners: make(map[string]Cleaner),
		logger:   logger,
		metrics:  m,
	}
}

// LoadAll loads every source concurrently. It fails if any source fails;
// sources that loaded before the failure stay registered.
func (r *Registry) LoadAll(ctx context.Context, sources []Source) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, src := range sources {
		src := src
		r.mu.Lock()
		r.cleaners[src.Name] = src.Cleaner
		r.mu.Unlock()

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			frame, err := Load(src.Path)
			if err != nil {
				return fmt.Errorf("dataset %s: %w", src.Name, err)
			}
			_, err = r.store(src.Name, src.Path, frame, 0)
			return err
		})
	}

	return g.Wait()
}

// Register adds or replaces a dataset from an already-built frame.
func (r *Registry) Register(name string, cleaner Cleaner, frame *engine.Frame) (*Entry, error) {
	r.mu.Lock()
	r.cleaners[name] = cleaner
	r.mu.Unlock()
	return r.store(name, "memory", frame, 0)
}

// Get returns the current entry for a dataset.
func (r *Registry) Get(name string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	return entry, nil
}

// Names returns the registered dataset names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Replace swaps a registered dataset for a new frame, cleaned with the
// dataset's rules.
func (r *Registry) Replace(name, origin string, frame *engine.Frame) (*Entry, error) {
	if _, err := r.Get(name); err != nil {
		return nil, err
	}
	return r.store(name, origin, frame, 0)
}

// Import parses an uploaded CSV or XLSX file and replaces the dataset with it.
func (r *Registry) Import(name, filename string, rd io.Reader) (*Entry, error) {
	if _, err := r.Get(name); err != nil {
		return nil, err
	}
	frame, skipped, err := Parse(rd, filename, name)
	if err != nil {
		return nil, err
	}
	return r.store(name, filename, frame, skipped)
}

func (r *Registry) store(name, origin string, frame *engine.Frame, skipped int) (*Entry, error) {
	r.mu.RLock()
	cleaner := r.cleaners[name]
	r.mu.RUnlock()

	cleaned, err := cleaner.Apply(frame)
	if err != nil {
		return nil, err
	}
	cleaned.Name = name

	entry := &Entry{
		Name:     name,
		Origin:   origin,
		Frame:    cleaned,
		Skipped:  skipped,
		LoadedAt: time.Now(),
	}

	sch, err := schema.DiscoverFromFrame(cleaned, schema.WithName(name))
	if err != nil {
		r.logger.Warn("⚠️ schema discovery failed", zap.String("dataset", name), zap.Error(err))
	} else {
		entry.Schema = sch
	}

	r.mu.Lock()
	r.entries[name] = entry
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.DatasetRows.WithLabelValues(name).Set(float64(cleaned.Len()))
	}

	r.logger.Info("📂 dataset loaded",
		zap.String("dataset", name),
		zap.String("origin", origin),
		zap.Int("rows", cleaned.Len()),
		zap.Int("columns", len(cleaned.Columns)),
		zap.Int("skipped", skipped))

	return entry, nil
}
