package sessionkit

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/sessionkit/store"
)

// Builder assembles a [Manager]. Construction is allocation-only: no I/O
// happens until [Manager.Init]. A Builder is single-use.
type Builder struct {
	config     Config
	store      store.Store
	httpClient *http.Client
	logger     zerolog.Logger
	sink       EventSink
	clock      func() time.Time

	built bool
}

// New returns a Builder loaded with defaults: in-memory token store, shared
// http.Client, silent logger, wall clock.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
		clock:  time.Now,
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets the backend root URL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.Gateway.BaseURL = baseURL
	return b
}

// WithRenewal replaces the proactive renewal policy.
func (b *Builder) WithRenewal(cfg RenewalConfig) *Builder {
	b.config.Renewal = cfg
	return b
}

// WithStore sets the durable token store. Defaults to [store.MemoryStore].
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithHTTPClient sets the client used for gateway calls. Its Timeout is left
// alone; the gateway applies its own per-call deadline.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithLogger sets the structured logger. Silent by default.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithEventSink sets the lifecycle event sink and enables dispatch.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.sink = sink
	return b
}

// WithClock overrides the time source. Tests use this; production code never
// should.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// WithMetricsEnabled toggles counter collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and assembles the Manager. The machine
// starts in StateUnknown; call [Manager.Init] to settle it.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	b.built = true

	if err := b.config.validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		b.store = store.NewMemoryStore()
	}
	if b.clock == nil {
		b.clock = time.Now
	}

	gw, err := newGateway(b.config.Gateway, b.httpClient, b.logger, b.clock)
	if err != nil {
		return nil, err
	}

	return &Manager{
		cfg:       b.config,
		store:     b.store,
		gw:        gw,
		logger:    b.logger,
		clock:     b.clock,
		metrics:   newMetricSet(b.config.Metrics),
		events:    newEventDispatcher(b.config.Events, b.sink),
		state:     StateUnknown,
		renewDone: make(chan struct{}),
	}, nil
}
