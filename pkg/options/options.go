// Package options provides data structures and functions for configuring
// ignite. It defines every parameter spec.md §6 recognizes: directory
// layout, size limits, the flush trigger, and the compaction worker's
// merge policy.
package options

import "strings"

// RunOptions configures where sorted runs and hint files live and, in
// reserved form, how they'd be compressed.
type RunOptions struct {
	// Directory is a subdirectory of Options.DataDir where the lock file,
	// WAL, sorted runs, and hint files are kept. Empty means DataDir
	// itself — ignite's on-disk layout (spec.md §6) is a single flat
	// directory per store.
	Directory string `json:"directory"`

	// Prefix is a label for sorted runs that no ignite component reads; it
	// never appears in an on-disk filename (those are always the fixed
	// 12-digit id plus suffix).
	Prefix string `json:"prefix"`

	// CompressionLevel is reserved for future zstd sorted-run compression
	// (spec.md §9 Design Note d). Stored and threaded through but not
	// applied — runs stay uncompressed.
	CompressionLevel uint8 `json:"compressionLevel"`
}

// Options holds every configuration value spec.md §6's table names.
type Options struct {
	// DataDir is the base path where the store's files live.
	//
	// Default: "/var/lib/ignitedb"
	DataDir string `json:"dataDir"`

	// MaxSpaceAmp is the ratio of on-disk to resident bytes that would
	// trigger a full compaction. Reserved; not applied by the flush or
	// compaction maintenance policy in this implementation.
	//
	// Default: 2
	MaxSpaceAmp uint8 `json:"maxSpaceAmp"`

	// MaxLogLength is the number of dirty bytes written to the WAL since
	// the last flush that triggers the next one.
	//
	// Default: 32 MiB
	MaxLogLength uint64 `json:"maxLogLength"`

	// MaxKeySize rejects puts with a larger key.
	//
	// Default: 64
	MaxKeySize uint64 `json:"maxKeySize"`

	// MaxValueSize rejects puts with a larger value.
	//
	// Default: 65536
	MaxValueSize uint64 `json:"maxValueSize"`

	// MergeRatio is R in the compaction worker's maintenance policy: every
	// run after the first in a candidate window must be within this
	// factor of the window's leading (smallest-id) run.
	//
	// Default: 3
	MergeRatio uint8 `json:"mergeRatio"`

	// MergeWindow is W in the compaction worker's maintenance policy, both
	// the window length and the minimum run count before compaction is
	// even considered. Floored at 2 regardless of what's configured here.
	//
	// Default: 10
	MergeWindow uint8 `json:"mergeWindow"`

	// LogBufwriterSize is stored but not applied: WAL appends are written
	// straight to the file, with no buffered writer in between.
	//
	// Default: 32 KiB
	LogBufwriterSize uint32 `json:"logBufwriterSize"`

	// RunOptions configures sorted-run naming and reserved compression.
	RunOptions *RunOptions `json:"runOptions"`
}

// OptionFunc modifies an in-progress Options value. Functions are applied
// in order over a base of NewDefaultOptions(), so later calls win.
type OptionFunc func(*Options)

// WithDefaultOptions resets every field to ignite's defaults. Useful as
// the first functional option when composing from a partially-built base.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		*o = NewDefaultOptions()
	}
}

// WithDataDir sets the primary data directory.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithMaxSpaceAmp sets the reserved space-amplification trigger ratio.
func WithMaxSpaceAmp(ratio uint8) OptionFunc {
	return func(o *Options) {
		if ratio > 0 {
			o.MaxSpaceAmp = ratio
		}
	}
}

// WithMaxLogLength sets the WAL dirty-byte threshold that triggers a flush.
func WithMaxLogLength(length uint64) OptionFunc {
	return func(o *Options) {
		if length > 0 {
			o.MaxLogLength = length
		}
	}
}

// WithMaxKeySize sets the largest key size the store will accept.
func WithMaxKeySize(size uint64) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.MaxKeySize = size
		}
	}
}

// WithMaxValueSize sets the largest value size the store will accept.
func WithMaxValueSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.MaxValueSize = size
		}
	}
}

// WithMergeRatio sets R in the compaction worker's maintenance policy.
func WithMergeRatio(ratio uint8) OptionFunc {
	return func(o *Options) {
		if ratio > 0 {
			o.MergeRatio = ratio
		}
	}
}

// WithMergeWindow sets W in the compaction worker's maintenance policy.
// The worker floors this at 2 regardless of the value stored here.
func WithMergeWindow(window uint8) OptionFunc {
	return func(o *Options) {
		if window > 0 {
			o.MergeWindow = window
		}
	}
}

// WithLogBufwriterSize sets LogBufwriterSize. Stored but not applied.
func WithLogBufwriterSize(size uint32) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.LogBufwriterSize = size
		}
	}
}

// WithRunDirectory sets the subdirectory sorted runs and hint files live
// under, relative to DataDir.
func WithRunDirectory(directory string) OptionFunc {
	return func(o *Options) {
		o.RunOptions.Directory = strings.TrimSpace(directory)
	}
}

// WithRunPrefix sets the operator-facing label for sorted runs.
func WithRunPrefix(prefix string) OptionFunc {
	return func(o *Options) {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" {
			o.RunOptions.Prefix = prefix
		}
	}
}

// WithCompressionLevel sets the reserved zstd compression level for
// sorted runs. Stored but not applied.
func WithCompressionLevel(level uint8) OptionFunc {
	return func(o *Options) {
		o.RunOptions.CompressionLevel = level
	}
}

// WithOptions replaces every field with o, letting a fully-built
// OpenOptions.Options() value be passed through the functional-options
// constructor callers already use.
func WithOptions(o Options) OptionFunc {
	return func(target *Options) {
		*target = o
	}
}

// OpenOptions is a chainable builder over the same configuration surface
// as the OptionFunc constructors, for callers who prefer method chaining
// to a functional-options slice. Mirrors the original lsmlib's
// OpenOptions builder.
type OpenOptions struct {
	opts Options
}

// NewOpenOptions starts a builder from ignite's defaults.
func NewOpenOptions() *OpenOptions {
	return &OpenOptions{opts: NewDefaultOptions()}
}

func (b *OpenOptions) MaxSpaceAmp(ratio uint8) *OpenOptions {
	WithMaxSpaceAmp(ratio)(&b.opts)
	return b
}

func (b *OpenOptions) MaxLogLength(length uint64) *OpenOptions {
	WithMaxLogLength(length)(&b.opts)
	return b
}

func (b *OpenOptions) MaxKeySize(size uint64) *OpenOptions {
	WithMaxKeySize(size)(&b.opts)
	return b
}

func (b *OpenOptions) MaxValueSize(size uint64) *OpenOptions {
	WithMaxValueSize(size)(&b.opts)
	return b
}

func (b *OpenOptions) MergeRatio(ratio uint8) *OpenOptions {
	WithMergeRatio(ratio)(&b.opts)
	return b
}

func (b *OpenOptions) MergeWindow(window uint8) *OpenOptions {
	WithMergeWindow(window)(&b.opts)
	return b
}

func (b *OpenOptions) LogBufwriterSize(size uint32) *OpenOptions {
	WithLogBufwriterSize(size)(&b.opts)
	return b
}

// Options returns the built configuration.
func (b *OpenOptions) Options() Options {
	return b.opts
}
