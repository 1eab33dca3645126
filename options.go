package vektor

import "github.com/hupe1980/vektor/hnsw"

const (
	// DefaultEFConstruction is the default beam width while inserting.
	DefaultEFConstruction = 200

	// DefaultEFSearch is the default beam width while querying.
	DefaultEFSearch = 50
)

// Options configures a database instance. The graph parameters (M, M0,
// EFConstruction) shape every index built for this instance, including the
// rebuilds triggered by Remove and Update, so they are fixed at open time.
type Options struct {
	// EFConstruction is the candidate list size used while inserting.
	EFConstruction int

	// EFSearch is the minimum beam width used while querying. Search widens
	// it to twice the effective k when that is larger.
	EFSearch int

	// M is the maximum neighbor count per graph node above layer 0.
	M int

	// M0 is the maximum neighbor count at layer 0. Defaults to 2*M.
	M0 int

	// RandomSeed fixes the graph's layer RNG for reproducible indexes.
	RandomSeed *int64

	// Logger receives structured logs. Defaults to a noop logger.
	Logger *Logger
}

// DefaultOptions contains the default database options.
var DefaultOptions = Options{
	EFConstruction: DefaultEFConstruction,
	EFSearch:       DefaultEFSearch,
	M:              hnsw.DefaultM,
	M0:             hnsw.DefaultM0,
}

// Option mutates Options.
type Option func(o *Options)

// WithEFConstruction sets the insertion beam width.
func WithEFConstruction(ef int) Option {
	return func(o *Options) {
		o.EFConstruction = ef
	}
}

// WithEFSearch sets the minimum query beam width.
func WithEFSearch(ef int) Option {
	return func(o *Options) {
		o.EFSearch = ef
	}
}

// WithM sets the graph degree bounds. m0 <= 0 defaults to 2*m.
func WithM(m, m0 int) Option {
	return func(o *Options) {
		o.M = m
		o.M0 = m0
	}
}

// WithRandomSeed fixes the graph RNG, making index construction
// reproducible.
func WithRandomSeed(seed int64) Option {
	return func(o *Options) {
		o.RandomSeed = &seed
	}
}

// WithLogger sets the logger.
func WithLogger(l *Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func applyOptions(optFns []Option) Options {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.EFConstruction <= 0 {
		opts.EFConstruction = DefaultEFConstruction
	}
	if opts.EFSearch <= 0 {
		opts.EFSearch = DefaultEFSearch
	}
	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}
	return opts
}
