package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-resolver/internal/appconfig"
	"github.com/nerrad567/gray-logic-resolver/internal/bus"
	"github.com/nerrad567/gray-logic-resolver/internal/directory"
	"github.com/nerrad567/gray-logic-resolver/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-resolver/internal/inventory"
	"github.com/nerrad567/gray-logic-resolver/internal/metrics"
	"github.com/nerrad567/gray-logic-resolver/internal/variables"
)

const (
	// HandledBy is the driver name the resolver announces itself with.
	HandledBy = "resolver"

	// App is the resolver's own name in the app-config store.
	App = "resolver"

	defaultDiscoverInterval = 300 * time.Second
	defaultQueueSize        = 256

	// qos is used for everything the resolver publishes or subscribes to.
	qos = 1
)

// Bus is the message transport the resolver publishes to and subscribes
// on. Handlers must not block.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
}

// Recorder receives every numeric device value the resolver records.
type Recorder interface {
	WriteDeviceValue(deviceID, quantity, unit string, value float64, at time.Time)
}

// Logger defines the logging interface used by the resolver.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds resolver settings.
type Options struct {
	// ControllerUUID selects the administrative surface.
	ControllerUUID string

	// DiscoverInterval is the discovery period. Devices unseen for twice
	// this long are flagged stale on the next inventory query.
	DiscoverInterval time.Duration

	SiteName string
	Version  string

	// QueueSize bounds the reactor's backlog.
	QueueSize int
}

// Deps holds the resolver's collaborators. Directory, Inventory,
// Variables and Config are required; the rest are optional.
type Deps struct {
	Directory directory.Directory
	Inventory *inventory.Inventory
	Variables *variables.Store
	Config    *appconfig.Store
	Schema    map[string]any

	Bus      Bus
	Recorder Recorder
	Metrics  *metrics.Metrics
	Logger   Logger

	// OnEvent, if set, sees every event the reactor handles, after it
	// has been applied. It runs on the reactor and must not block.
	OnEvent func(bus.Event)

	// Now defaults to time.Now.
	Now func() time.Time
}

// Resolver is the single owner of the control plane state.
type Resolver struct {
	uuid             string
	discoverInterval time.Duration
	siteName         string
	version          string

	dir    directory.Directory
	inv    *inventory.Inventory
	vars   *variables.Store
	env    variables.Environment
	config *appconfig.Store
	schema map[string]any

	bus      Bus
	recorder Recorder
	metrics  *metrics.Metrics
	logger   Logger
	onEvent  func(bus.Event)
	now      func() time.Time

	commands map[string]commandFunc
	jobs     chan func(context.Context)
}

// New creates a resolver. It does not start the reactor.
func New(opts Options, deps Deps) (*Resolver, error) {
	if opts.ControllerUUID == "" {
		return nil, fmt.Errorf("controller uuid is required")
	}
	if deps.Directory == nil {
		return nil, fmt.Errorf("directory is required")
	}
	if deps.Inventory == nil {
		return nil, fmt.Errorf("inventory is required")
	}
	if deps.Variables == nil {
		return nil, fmt.Errorf("variable store is required")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config store is required")
	}

	interval := opts.DiscoverInterval
	if interval <= 0 {
		interval = defaultDiscoverInterval
	}
	queue := opts.QueueSize
	if queue <= 0 {
		queue = defaultQueueSize
	}

	r := &Resolver{
		uuid:             opts.ControllerUUID,
		discoverInterval: interval,
		siteName:         opts.SiteName,
		version:          opts.Version,
		dir:              deps.Directory,
		inv:              deps.Inventory,
		vars:             deps.Variables,
		config:           deps.Config,
		schema:           deps.Schema,
		bus:              deps.Bus,
		recorder:         deps.Recorder,
		metrics:          deps.Metrics,
		logger:           deps.Logger,
		onEvent:          deps.OnEvent,
		now:              deps.Now,
		jobs:             make(chan func(context.Context), queue),
	}
	if r.logger == nil {
		r.logger = noopLogger{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.schema == nil {
		r.schema = map[string]any{}
	}
	r.commands = r.adminCommands()
	r.updateGauges()

	return r, nil
}

// UUID returns the controller UUID.
func (r *Resolver) UUID() string {
	return r.uuid
}

// Run executes submitted work until ctx is cancelled.
func (r *Resolver) Run(ctx context.Context) error {
	r.logger.Info("resolver reactor started", "uuid", r.uuid)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("resolver reactor stopped")
			return nil
		case job := <-r.jobs:
			job(ctx)
		}
	}
}

// Submit queues fn to run on the reactor. It blocks while the queue is
// full and fails only when ctx ends first.
func (r *Resolver) Submit(ctx context.Context, fn func(context.Context)) error {
	select {
	case r.jobs <- fn:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("submitting to reactor: %w", ctx.Err())
	}
}

// TryEnqueue queues fn without blocking and reports whether it fit. Bus
// handlers use it: paho delivers messages and publish acknowledgements on
// one ordered stream, so a handler waiting on a full queue would stall
// every publish the reactor is waiting on.
func (r *Resolver) TryEnqueue(fn func(context.Context)) bool {
	select {
	case r.jobs <- fn:
		return true
	default:
		return false
	}
}

// Do runs fn on the reactor and waits for it to finish.
func (r *Resolver) Do(ctx context.Context, fn func(context.Context)) error {
	done := make(chan struct{})
	err := r.Submit(ctx, func(ctx context.Context) {
		defer close(done)
		fn(ctx)
	})
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for reactor: %w", ctx.Err())
	}
}

// publish sends v on the event topic for subject. Without a bus it does
// nothing.
func (r *Resolver) publish(subject string, v any) {
	if err := r.publishTo(mqtt.Topics{}.Event(subject), v); err != nil {
		r.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

func (r *Resolver) publishTo(topic string, v any) error {
	if r.bus == nil {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", topic, err)
	}
	return r.publishRaw(topic, payload)
}

func (r *Resolver) publishRaw(topic string, payload []byte) error {
	if r.bus == nil {
		return nil
	}
	return r.bus.Publish(topic, payload, qos, false)
}

// inventoryChanged persists the mirror and refreshes the gauges after a
// live inventory mutation.
func (r *Resolver) inventoryChanged() {
	r.inv.Flush()
	r.updateGauges()
}

func (r *Resolver) updateGauges() {
	r.metrics.SetInventory(r.inv.Len(), r.inv.StaleCount())
}
