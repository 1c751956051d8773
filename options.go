package cmsketch

import (
	"log/slog"

	"github.com/hupe1980/cmsketch/internal/compress"
	"github.com/hupe1980/cmsketch/internal/fs"
	"github.com/hupe1980/cmsketch/resource"
)

// Compression selects the block codec of an exported archive.
type Compression = compress.Kind

const (
	// CompressionNone stores archive blocks raw.
	CompressionNone = compress.None
	// CompressionLZ4 favours speed.
	CompressionLZ4 = compress.LZ4
	// CompressionZstd favours ratio. It is the default.
	CompressionZstd = compress.Zstd
)

type options struct {
	path             string
	flags            Flags
	seed             uint64
	atomicSave       bool
	compression      *Compression
	metricsCollector MetricsCollector
	logger           *Logger
	resources        *resource.Controller
	fs               fs.FileSystem
}

// Option configures how a sketch is created, attached, saved or exported.
//
// Options that describe the target (path, flags, seed) apply to the call
// they are passed to. Ambient options (logger, metrics, resources) are
// inherited by sketches derived through Copy, Shrink and Import.
type Option func(*options)

// WithPath backs the sketch with the file at path. Without it Create, Copy,
// Shrink and Import produce in-memory sketches.
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithFlags sets the attach flags.
func WithFlags(flags Flags) Option {
	return func(o *options) {
		o.flags = flags
	}
}

// WithSeed sets the hash seed of a new sketch. Sketches are only mergeable
// when they share a seed. The default is 0.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithAtomicSave makes Save write to a temporary file in the target
// directory and rename it over the target once synced.
func WithAtomicSave() Option {
	return func(o *options) {
		o.atomicSave = true
	}
}

// WithCompression selects the codec Export compresses with.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = &c
	}
}

// WithMetricsCollector sets a custom metrics collector.
//
// If nil is passed, NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger sets a custom structured logger.
//
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel logs to stderr as text at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResourceController shares a memory budget and IO throttle between
// sketches. In-memory regions reserve their size from the budget until
// Close; Save, Export and Import are throttled.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// withFileSystem replaces the filesystem Save and Load go through.
func withFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

func applyOptions(base options, optFns ...Option) options {
	o := base
	for _, fn := range optFns {
		fn(&o)
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.fs == nil {
		o.fs = fs.Default
	}
	return o
}

func (o options) compressionKind() Compression {
	if o.compression == nil {
		return CompressionZstd
	}
	return *o.compression
}

// inherit returns the ambient part of o, for sketches derived from one
// configured with o.
func (o options) inherit() options {
	return options{
		metricsCollector: o.metricsCollector,
		logger:           o.logger,
		resources:        o.resources,
		fs:               o.fs,
	}
}
