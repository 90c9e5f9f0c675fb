// Package config builds an LSM's construction parameters with a
// functional-option chain.
package config

import "fmt"

// Options holds every tunable of an LSM store.
type Options struct {
	EltsPerRun       int
	NumRuns          int
	FracMerged       float64
	BFFalsePositive  float64
	BlockSize        int
	DiskRunsPerLevel int
	Dir              string
	Seed             int64
	MaxSkipListLevel int
	OnFatal          func(error)
}

// Option mutates an Options during New.
type Option func(*Options)

// WithEltsPerRun sets how many entries a single memory run holds before
// it is considered full.
func WithEltsPerRun(n int) Option { return func(o *Options) { o.EltsPerRun = n } }

// WithNumRuns sets how many memory runs the active memory tier holds.
func WithNumRuns(n int) Option { return func(o *Options) { o.NumRuns = n } }

// WithFracMerged sets the fraction of runs/levels folded into a merge or
// cascade at once.
func WithFracMerged(f float64) Option { return func(o *Options) { o.FracMerged = f } }

// WithBloomFalsePositive sets the target false-positive rate for every
// Bloom filter the store constructs.
func WithBloomFalsePositive(p float64) Option { return func(o *Options) { o.BFFalsePositive = p } }

// WithBlockSize sets the disk run fence-pointer spacing.
func WithBlockSize(n int) Option { return func(o *Options) { o.BlockSize = n } }

// WithDiskRunsPerLevel sets how many disk runs a single tier holds before
// it is full.
func WithDiskRunsPerLevel(n int) Option { return func(o *Options) { o.DiskRunsPerLevel = n } }

// WithDir sets the directory disk run files are created under.
func WithDir(dir string) Option { return func(o *Options) { o.Dir = dir } }

// WithSeed seeds the skip list's geometric level generator.
func WithSeed(seed int64) Option { return func(o *Options) { o.Seed = seed } }

// WithMaxSkipListLevel bounds how tall a skip list memory run may grow.
func WithMaxSkipListLevel(n int) Option { return func(o *Options) { o.MaxSkipListLevel = n } }

// WithFatalHandler overrides how the background merge worker reports a
// fatal I/O failure; the default writes to stderr and exits the process.
func WithFatalHandler(fn func(error)) Option { return func(o *Options) { o.OnFatal = fn } }

// Defaults returns the baseline Options every New call starts from.
func Defaults() Options {
	return Options{
		EltsPerRun:       1024,
		NumRuns:          4,
		FracMerged:       1.0,
		BFFalsePositive:  0.01,
		BlockSize:        128,
		DiskRunsPerLevel: 4,
		Dir:              ".",
		Seed:             1,
		MaxSkipListLevel: 20,
	}
}

// New applies opts over Defaults and validates the result.
func New(opts ...Option) (Options, error) {
	o := Defaults()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}

// Validate rejects parameter combinations the store cannot construct.
func (o Options) Validate() error {
	switch {
	case o.EltsPerRun <= 0:
		return fmt.Errorf("config: eltsPerRun must be > 0, got %d", o.EltsPerRun)
	case o.NumRuns <= 0:
		return fmt.Errorf("config: numRuns must be > 0, got %d", o.NumRuns)
	case o.FracMerged <= 0 || o.FracMerged > 1:
		return fmt.Errorf("config: fracMerged must be in (0,1], got %f", o.FracMerged)
	case o.BFFalsePositive <= 0 || o.BFFalsePositive >= 1:
		return fmt.Errorf("config: bfFalsePositive must be in (0,1), got %f", o.BFFalsePositive)
	case o.BlockSize <= 0:
		return fmt.Errorf("config: blockSize must be > 0, got %d", o.BlockSize)
	case o.DiskRunsPerLevel <= 0:
		return fmt.Errorf("config: diskRunsPerLevel must be > 0, got %d", o.DiskRunsPerLevel)
	case o.MaxSkipListLevel <= 0:
		return fmt.Errorf("config: maxSkipListLevel must be > 0, got %d", o.MaxSkipListLevel)
	}
	return nil
}
