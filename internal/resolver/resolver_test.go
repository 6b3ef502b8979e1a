package resolver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-resolver/internal/appconfig"
	"github.com/nerrad567/gray-logic-resolver/internal/bus"
	"github.com/nerrad567/gray-logic-resolver/internal/directory"
	"github.com/nerrad567/gray-logic-resolver/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-resolver/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-resolver/internal/inventory"
	"github.com/nerrad567/gray-logic-resolver/internal/metrics"
	"github.com/nerrad567/gray-logic-resolver/internal/variables"
	"github.com/nerrad567/gray-logic-resolver/migrations"
)

const (
	testController = "controller-0001"
	testInterval   = 300 * time.Second
)

// message is one publish seen by the recording bus.
type message struct {
	Topic   string
	Payload []byte
}

// recordingBus keeps everything published and the handlers subscribed.
type recordingBus struct {
	mu       sync.Mutex
	messages []message
	handlers map[string]func(topic string, payload []byte)
}

func newRecordingBus() *recordingBus {
	return &recordingBus{handlers: make(map[string]func(string, []byte))}
}

func (b *recordingBus) Publish(topic string, payload []byte, _ byte, _ bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, message{Topic: topic, Payload: payload})
	return nil
}

func (b *recordingBus) Subscribe(topic string, _ byte, handler func(string, []byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

// deliver hands a message to the handler subscribed on filter.
func (b *recordingBus) deliver(t *testing.T, filter, topic string, payload string) {
	t.Helper()
	b.mu.Lock()
	h, ok := b.handlers[filter]
	b.mu.Unlock()
	require.True(t, ok, "no subscription on %s", filter)
	h(topic, []byte(payload))
}

// on returns the decoded payloads published on topic.
func (b *recordingBus) on(t *testing.T, topic string) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	for _, m := range b.messages {
		if m.Topic != topic {
			continue
		}
		var v map[string]any
		require.NoError(t, json.Unmarshal(m.Payload, &v))
		out = append(out, v)
	}
	return out
}

type recordedValue struct {
	Device, Quantity, Unit string
	Value                  float64
}

type fakeRecorder struct {
	values []recordedValue
}

func (f *fakeRecorder) WriteDeviceValue(deviceID, quantity, unit string, value float64, _ time.Time) {
	f.values = append(f.values, recordedValue{Device: deviceID, Quantity: quantity, Unit: unit, Value: value})
}

// clock is a settable time source.
type clock struct {
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }
func (c *clock) Unix() int64             { return c.now.Unix() }

type fixture struct {
	r        *Resolver
	dir      *directory.SQLiteDirectory
	inv      *inventory.Inventory
	vars     *variables.Store
	bus      *recordingBus
	recorder *fakeRecorder
	metrics  *metrics.Metrics
	clock    *clock
}

// setupResolver builds a resolver over a real migrated SQLite directory.
func setupResolver(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	tmp := t.TempDir()
	db, err := database.Open(ctx, config.DatabaseConfig{
		Path:        filepath.Join(tmp, "directory.db"),
		BusyTimeout: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	require.NoError(t, db.Migrate(ctx, migrations.FS))

	cfgStore, err := appconfig.Open(filepath.Join(tmp, "conf.d"))
	require.NoError(t, err)

	f := &fixture{
		dir:      directory.NewSQLiteDirectory(db.DB),
		inv:      inventory.New(),
		vars:     variables.NewStore(filepath.Join(tmp, "variables.json")),
		bus:      newRecordingBus(),
		recorder: &fakeRecorder{},
		metrics:  metrics.New(),
		clock:    newClock(),
	}
	f.r, err = New(Options{
		ControllerUUID:   testController,
		DiscoverInterval: testInterval,
		SiteName:         "Test Site",
		Version:          "test",
	}, Deps{
		Directory: f.dir,
		Inventory: f.inv,
		Variables: f.vars,
		Config:    cfgStore,
		Schema:    map[string]any{"devicetypes": map[string]any{"switch": map[string]any{"name": "Switch"}}},
		Bus:       f.bus,
		Recorder:  f.recorder,
		Metrics:   f.metrics,
		Now:       f.clock.Now,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) event(t *testing.T, subject, payload string) error {
	t.Helper()
	ev, err := bus.ParseEvent(subject, []byte(payload))
	require.NoError(t, err)
	return f.r.HandleEvent(context.Background(), ev)
}

func (f *fixture) announce(t *testing.T, uuid, devicetype string) {
	t.Helper()
	payload := `{"uuid":"` + uuid + `","devicetype":"` + devicetype + `","internalid":"` + uuid + `-int","handled-by":"testdriver"}`
	require.NoError(t, f.event(t, bus.SubjectAnnounce, payload))
}

func (f *fixture) admin(command string, params map[string]any) bus.Response {
	return f.r.HandleRequest(context.Background(), bus.Request{
		RequestID:  "req-1",
		Target:     testController,
		Command:    command,
		Parameters: params,
	})
}

func (f *fixture) query(t *testing.T) *Snapshot {
	t.Helper()
	resp := f.r.HandleRequest(context.Background(), bus.Request{
		RequestID: "req-q",
		Target:    "some-ui",
		Command:   bus.CmdInventory,
	})
	require.True(t, resp.Success, "inventory query failed: %+v", resp.Error)
	snap, ok := resp.Data.(*Snapshot)
	require.True(t, ok, "data is %T", resp.Data)
	return snap
}

func (f *fixture) device(t *testing.T, uuid string) *inventory.Device {
	t.Helper()
	d, ok := f.inv.Get(uuid)
	require.True(t, ok, "device %s not in inventory", uuid)
	return d
}

func TestNewRequiresDependencies(t *testing.T) {
	f := setupResolver(t)
	full := Deps{Directory: f.dir, Inventory: f.inv, Variables: f.vars, Config: f.r.config}

	tests := []struct {
		name   string
		opts   Options
		mutate func(*Deps)
	}{
		{"no controller uuid", Options{}, func(*Deps) {}},
		{"no directory", Options{ControllerUUID: "c"}, func(d *Deps) { d.Directory = nil }},
		{"no inventory", Options{ControllerUUID: "c"}, func(d *Deps) { d.Inventory = nil }},
		{"no variables", Options{ControllerUUID: "c"}, func(d *Deps) { d.Variables = nil }},
		{"no config", Options{ControllerUUID: "c"}, func(d *Deps) { d.Config = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := full
			tt.mutate(&deps)
			_, err := New(tt.opts, deps)
			assert.Error(t, err)
		})
	}

	r, err := New(Options{ControllerUUID: "c"}, full)
	require.NoError(t, err)
	assert.Equal(t, defaultDiscoverInterval, r.discoverInterval)
	assert.Equal(t, "c", r.UUID())
}

func TestInventoryStalenessScenario(t *testing.T) {
	f := setupResolver(t)

	f.announce(t, "abc", "switch")
	snap := f.query(t)
	require.Len(t, snap.Devices, 1)
	assert.False(t, snap.Devices["abc"].Stale)
	assert.Equal(t, "0", snap.Devices["abc"].State)

	require.NoError(t, f.event(t, bus.SubjectStateChanged, `{"uuid":"abc","level":"255"}`))
	snap = f.query(t)
	assert.Equal(t, "255", snap.Devices["abc"].State)
	assert.False(t, snap.Devices["abc"].Stale)

	f.clock.Advance(2*testInterval + time.Second)
	f.announce(t, "fresh", "dimmer")

	snap = f.query(t)
	assert.True(t, snap.Devices["abc"].Stale, "abc should be stale")
	assert.False(t, snap.Devices["fresh"].Stale, "recently seen device must stay fresh")

	require.NoError(t, testutil.GatherAndCompare(f.metrics.Registry(), strings.NewReader(`
# HELP resolver_stale_devices Devices in the live inventory flagged stale.
# TYPE resolver_stale_devices gauge
resolver_stale_devices 1
`), "resolver_stale_devices"))
}

func TestStalenessNotEvaluatedBeforeQuery(t *testing.T) {
	f := setupResolver(t)
	f.announce(t, "abc", "switch")
	f.clock.Advance(3 * testInterval)

	assert.False(t, f.device(t, "abc").Stale)
	f.query(t)
	assert.True(t, f.device(t, "abc").Stale)
}

func TestReannouncePreservesStateAndClearsStale(t *testing.T) {
	f := setupResolver(t)
	f.announce(t, "U", "switch")
	require.NoError(t, f.event(t, bus.SubjectStateChanged, `{"uuid":"U","level":5}`))
	require.NoError(t, f.event(t, bus.SubjectStale, `{"uuid":"U","stale":true}`))
	assert.True(t, f.device(t, "U").Stale)

	f.clock.Advance(time.Minute)
	f.announce(t, "U", "switch")

	d := f.device(t, "U")
	assert.Equal(t, "5", d.State)
	assert.Contains(t, d.Values, "state")
	assert.False(t, d.Stale)
	assert.Equal(t, f.clock.Unix(), d.LastSeen)
}

func TestDeviceTypeConflictOverwritesAndCounts(t *testing.T) {
	f := setupResolver(t)
	f.announce(t, "abc", "switch")
	f.announce(t, "abc", "dimmer")

	assert.Equal(t, "dimmer", f.device(t, "abc").DeviceType)
	require.NoError(t, testutil.GatherAndCompare(f.metrics.Registry(), strings.NewReader(`
# HELP resolver_devicetype_conflicts_total Re-announces that changed a device's type.
# TYPE resolver_devicetype_conflicts_total counter
resolver_devicetype_conflicts_total 1
`), "resolver_devicetype_conflicts_total"))
}

func TestAnnounceCopiesNamingFromDirectory(t *testing.T) {
	f := setupResolver(t)
	ctx := context.Background()
	require.NoError(t, f.dir.SetDeviceName(ctx, "abc", "Hall light"))
	require.NoError(t, f.dir.SetDeviceRoom(ctx, "abc", "room-1"))

	f.announce(t, "abc", "switch")

	d := f.device(t, "abc")
	assert.Equal(t, "Hall light", d.Name)
	assert.Equal(t, "room-1", d.Room)
	assert.Equal(t, "testdriver", d.HandledBy)
	assert.Equal(t, "abc-int", d.InternalID)
}

func TestEventRejections(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		payload string
		wantErr error
	}{
		{"state for unknown device", bus.SubjectStateChanged, `{"uuid":"ghost","level":1}`, inventory.ErrDeviceNotFound},
		{"stale for unknown device", bus.SubjectStale, `{"uuid":"ghost","stale":true}`, inventory.ErrDeviceNotFound},
		{"announce without devicetype", bus.SubjectAnnounce, `{"uuid":"x"}`, bus.ErrMissingField},
		{"state without level", bus.SubjectStateChanged, `{"uuid":"abc"}`, bus.ErrMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupResolver(t)
			f.announce(t, "abc", "switch")
			before := f.inv.Snapshot()

			err := f.event(t, tt.subject, tt.payload)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, f.inv.Snapshot())
		})
	}
}

func TestUnknownSubjectIgnored(t *testing.T) {
	f := setupResolver(t)
	assert.NoError(t, f.event(t, "event.system.roomnamechanged", `{"uuid":"r","name":"x"}`))
	assert.Equal(t, 0, f.inv.Len())
}

func TestRemoveEvent(t *testing.T) {
	f := setupResolver(t)
	f.announce(t, "abc", "switch")
	require.NoError(t, f.event(t, bus.SubjectRemove, `{"uuid":"abc"}`))
	assert.False(t, f.inv.Contains("abc"))

	// Removing twice is harmless.
	assert.NoError(t, f.event(t, bus.SubjectRemove, `{"uuid":"abc"}`))
}

func TestReadingsAreRecorded(t *testing.T) {
	f := setupResolver(t)
	f.announce(t, "sensor", "multilevelsensor")

	require.NoError(t, f.event(t, "event.environment.temperaturechanged", `{"uuid":"sensor","level":21.5,"unit":"degC"}`))
	require.NoError(t, f.event(t, bus.SubjectBatteryLevelChanged, `{"uuid":"sensor","level":"87","unit":"%"}`))
	require.NoError(t, f.event(t, bus.SubjectSensorTriggered, `{"uuid":"sensor","level":"open"}`))

	d := f.device(t, "sensor")
	assert.Equal(t, 21.5, d.Values["temperature"].Level)
	assert.Equal(t, "degC", d.Values["temperature"].Unit)
	assert.Equal(t, f.clock.Unix(), d.Values["temperature"].Timestamp)
	assert.Equal(t, "87", d.Values["batterylevel"].Level)
	assert.Equal(t, "open", d.State)

	assert.Equal(t, []recordedValue{
		{Device: "sensor", Quantity: "temperature", Unit: "degC", Value: 21.5},
		{Device: "sensor", Quantity: "batterylevel", Unit: "%", Value: 87},
	}, f.recorder.values)
}

func TestTimeChangedUpdatesCalendar(t *testing.T) {
	f := setupResolver(t)
	require.NoError(t, f.event(t, bus.SubjectTimeChanged,
		`{"minute":5,"hour":"14","day":3,"weekday":"6","month":1,"year":2026}`))

	all := f.vars.All()
	assert.Equal(t, "5", all[variables.Minute])
	assert.Equal(t, "14", all[variables.Hour])
	assert.Equal(t, "2026", all[variables.Year])
}

func TestPositionChanged(t *testing.T) {
	f := setupResolver(t)
	f.announce(t, "gps", "gps")

	require.NoError(t, f.event(t, bus.SubjectPositionChanged,
		`{"uuid":"gps","unit":"deg","latitude":52.5,"longitude":13.4}`))

	snap := f.query(t)
	require.NotNil(t, snap.Environment.Latitude)
	assert.Equal(t, 52.5, *snap.Environment.Latitude)
	assert.Equal(t, 13.4, *snap.Environment.Longitude)

	pos := snap.Devices["gps"].Values["position"]
	require.NotNil(t, pos.Latitude)
	assert.Equal(t, 52.5, *pos.Latitude)

	// Position without a known device only moves the environment.
	require.NoError(t, f.event(t, bus.SubjectPositionChanged, `{"latitude":1,"longitude":2}`))
	assert.Equal(t, 1.0, *f.r.env.Latitude)
}

func TestOnEventSeesHandledEvents(t *testing.T) {
	f := setupResolver(t)
	var seen []string
	f.r.onEvent = func(ev bus.Event) { seen = append(seen, ev.Subject) }

	f.announce(t, "abc", "switch")
	_ = f.event(t, bus.SubjectStateChanged, `{"uuid":"ghost","level":1}`)

	assert.Equal(t, []string{bus.SubjectAnnounce, bus.SubjectStateChanged}, seen)
}

func TestSnapshotContents(t *testing.T) {
	f := setupResolver(t)
	ctx := context.Background()
	require.NoError(t, f.dir.SetRoomName(ctx, "room-1", "Kitchen"))
	require.NoError(t, f.dir.SetFloorplanName(ctx, "fp-1", "Ground floor"))
	require.NoError(t, f.dir.SetLocation(ctx, directory.Location{UUID: "loc-1", Name: "House"}))
	f.vars.Set("mode", "away")

	snap := f.query(t)
	assert.Equal(t, "Kitchen", snap.Rooms["room-1"].Name)
	assert.Equal(t, "Ground floor", snap.Floorplans["fp-1"].Name)
	assert.Equal(t, "House", snap.Locations["loc-1"].Name)
	assert.Equal(t, "away", snap.Variables["mode"])
	assert.Contains(t, snap.Schema, "devicetypes")
	assert.Equal(t, SystemInfo{Name: "Test Site", Version: "test", UUID: testController}, snap.System)

	_, err := json.Marshal(snap)
	assert.NoError(t, err)
}
