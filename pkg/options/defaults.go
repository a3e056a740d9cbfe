package options

const (
	// DefaultDataDir is the base directory ignite uses when the caller
	// doesn't specify one.
	DefaultDataDir = "/var/lib/ignitedb"

	// DefaultMaxSpaceAmp is the ratio of on-disk to resident bytes that,
	// were full-compaction-on-space-amp implemented, would trigger it.
	// Reserved; see Options.MaxSpaceAmp.
	DefaultMaxSpaceAmp uint8 = 2

	// DefaultMaxLogLength is the WAL byte threshold that triggers a flush.
	DefaultMaxLogLength uint64 = 32 * 1024 * 1024

	// DefaultMaxKeySize is the largest key ignite will accept.
	DefaultMaxKeySize uint64 = 64

	// DefaultMaxValueSize is the largest value ignite will accept.
	DefaultMaxValueSize uint64 = 65536

	// DefaultMergeRatio is R in the compaction worker's maintenance policy:
	// a window compacts only when every trailing run is within this factor
	// of the window's leading run's size.
	DefaultMergeRatio uint8 = 3

	// DefaultMergeWindow is W in the compaction worker's maintenance policy,
	// both the window length and the minimum run count before compaction is
	// considered at all. Floored at 2 regardless of configuration.
	DefaultMergeWindow uint8 = 10

	// DefaultLogBufwriterSize is the default LogBufwriterSize. The value is
	// stored only; WAL appends do not go through a buffered writer.
	DefaultLogBufwriterSize uint32 = 32 * 1024

	// DefaultZstdSSTableCompressionLevel is reserved for future sorted-run
	// compression; it is threaded through configuration but not applied.
	DefaultZstdSSTableCompressionLevel uint8 = 3

	// DefaultRunDirectory is the subdirectory, relative to DataDir, where
	// the lock file, WAL, sorted runs, and hint files all live. ignite
	// keeps a single flat directory per store (spec.md §6), so this is
	// almost always "".
	DefaultRunDirectory = ""

	// DefaultRunPrefix is the default RunOptions.Prefix label. No ignite
	// component reads it; the on-disk filenames themselves are always the
	// fixed 12-digit id (spec.md §6), so this has no effect on file layout.
	DefaultRunPrefix = "run"
)

// defaultRunOptions holds the default sorted-run naming options.
var defaultRunOptions = RunOptions{
	Directory:        DefaultRunDirectory,
	Prefix:           DefaultRunPrefix,
	CompressionLevel: DefaultZstdSSTableCompressionLevel,
}

// defaultOptions holds the full set of default configuration values.
var defaultOptions = Options{
	DataDir:          DefaultDataDir,
	MaxSpaceAmp:      DefaultMaxSpaceAmp,
	MaxLogLength:     DefaultMaxLogLength,
	MaxKeySize:       DefaultMaxKeySize,
	MaxValueSize:     DefaultMaxValueSize,
	MergeRatio:       DefaultMergeRatio,
	MergeWindow:      DefaultMergeWindow,
	LogBufwriterSize: DefaultLogBufwriterSize,
	RunOptions:       &defaultRunOptions,
}

// NewDefaultOptions returns a fresh copy of ignite's default configuration.
func NewDefaultOptions() Options {
	opts := defaultOptions
	run := defaultRunOptions
	opts.RunOptions = &run
	return opts
}
