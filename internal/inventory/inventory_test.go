package inventory

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func announce(inv *Inventory, uuid, devicetype string, at time.Time) AnnounceResult {
	return inv.Announce(Announcement{
		UUID:       uuid,
		DeviceType: devicetype,
		InternalID: "int-" + uuid,
		HandledBy:  "zwave",
	}, Naming{}, at)
}

func TestAnnounce_CreatesEntry(t *testing.T) {
	inv := New()

	res := inv.Announce(Announcement{UUID: "abc", DeviceType: "switch", InternalID: "7", HandledBy: "zwave"},
		Naming{Name: "Hall", Room: "room-1"}, t0)
	if !res.Created || res.Conflict() {
		t.Fatalf("Announce() = %+v, want created without conflict", res)
	}

	got, ok := inv.Get("abc")
	if !ok {
		t.Fatal("device not in inventory")
	}
	want := &Device{
		DeviceType: "switch",
		InternalID: "7",
		HandledBy:  "zwave",
		Name:       "Hall",
		Room:       "room-1",
		State:      "0",
		Values:     map[string]Value{},
		LastSeen:   t0.Unix(),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}
}

func TestAnnounce_ControllerDefaultsName(t *testing.T) {
	inv := New()
	inv.Announce(Announcement{UUID: "ctl", DeviceType: ControllerType}, Naming{}, t0)
	inv.Announce(Announcement{UUID: "named", DeviceType: ControllerType}, Naming{Name: "Main"}, t0)
	inv.Announce(Announcement{UUID: "sw", DeviceType: "switch"}, Naming{}, t0)

	for uuid, want := range map[string]string{"ctl": ControllerType, "named": "Main", "sw": ""} {
		d, _ := inv.Get(uuid)
		if d.Name != want {
			t.Errorf("%s name = %q, want %q", uuid, d.Name, want)
		}
	}
}

func TestAnnounce_ReannouncePreservesStateAndValues(t *testing.T) {
	inv := New()
	announce(inv, "U", "switch", t0)
	if err := inv.SetState("U", "5", "", t0); err != nil {
		t.Fatal(err)
	}
	if err := inv.RecordValue("U", "temperature", Value{Level: 21.5, Unit: "degC"}, t0); err != nil {
		t.Fatal(err)
	}
	if err := inv.SetStale("U", true); err != nil {
		t.Fatal(err)
	}

	later := t0.Add(10 * time.Minute)
	res := inv.Announce(Announcement{UUID: "U", DeviceType: "switch", HandledBy: "zwave2"}, Naming{Name: "New"}, later)
	if res.Created {
		t.Error("re-announce reported as created")
	}

	d, _ := inv.Get("U")
	if d.State != "5" {
		t.Errorf("state = %q, want 5", d.State)
	}
	if _, ok := d.Values["temperature"]; !ok {
		t.Error("values lost on re-announce")
	}
	if d.Stale {
		t.Error("stale not cleared")
	}
	if d.LastSeen != later.Unix() {
		t.Errorf("lastseen = %d, want %d", d.LastSeen, later.Unix())
	}
	if d.Name != "New" || d.HandledBy != "zwave2" {
		t.Errorf("identity not refreshed: %+v", d)
	}
}

func TestAnnounce_DeviceTypeConflict(t *testing.T) {
	inv := New()
	announce(inv, "U", "switch", t0)

	res := announce(inv, "U", "dimmer", t0)
	if !res.Conflict() || res.PreviousType != "switch" {
		t.Fatalf("Announce() = %+v, want conflict from switch", res)
	}
	d, _ := inv.Get("U")
	if d.DeviceType != "dimmer" {
		t.Errorf("devicetype = %q, want dimmer", d.DeviceType)
	}
}

func TestRemove(t *testing.T) {
	inv := New()
	announce(inv, "U", "switch", t0)

	if !inv.Remove("U") {
		t.Error("Remove() = false for present device")
	}
	if inv.Remove("U") {
		t.Error("Remove() = true for absent device")
	}
	if inv.Len() != 0 {
		t.Errorf("Len() = %d", inv.Len())
	}
}

func TestDeviceScopedUpdates_UnknownDevice(t *testing.T) {
	inv := New()
	if err := inv.SetStale("nope", true); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("SetStale() error = %v", err)
	}
	if err := inv.SetState("nope", "1", "", t0); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("SetState() error = %v", err)
	}
	if err := inv.RecordValue("nope", "x", Value{}, t0); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("RecordValue() error = %v", err)
	}
}

func TestSetState_NumericLevel(t *testing.T) {
	inv := New()
	announce(inv, "U", "dimmer", t0)

	if err := inv.SetState("U", float64(255), "", t0); err != nil {
		t.Fatal(err)
	}
	d, _ := inv.Get("U")
	if d.State != "255" {
		t.Errorf("state = %q, want 255", d.State)
	}
	if got := d.Values["state"]; got.Level != float64(255) || got.Timestamp != t0.Unix() {
		t.Errorf("values[state] = %+v", got)
	}
}

func TestMarkStale(t *testing.T) {
	inv := New()
	announce(inv, "old", "switch", t0)
	announce(inv, "fresh", "switch", t0.Add(9*time.Minute))
	announce(inv, "edge", "switch", t0.Add(5*time.Minute))

	now := t0.Add(15 * time.Minute)
	flipped := inv.MarkStale(now, 10*time.Minute)
	slices.Sort(flipped)

	if diff := cmp.Diff([]string{"old"}, flipped); diff != "" {
		t.Errorf("MarkStale() mismatch (-want +got):\n%s", diff)
	}
	if inv.StaleCount() != 1 {
		t.Errorf("StaleCount() = %d, want 1", inv.StaleCount())
	}

	// Already stale devices are not reported again.
	if again := inv.MarkStale(now, 10*time.Minute); len(again) != 0 {
		t.Errorf("second MarkStale() = %v", again)
	}
}

func TestRoomMirroring(t *testing.T) {
	inv := New()
	inv.Announce(Announcement{UUID: "a"}, Naming{Room: "r1"}, t0)
	inv.Announce(Announcement{UUID: "b"}, Naming{Room: "r1"}, t0)
	inv.Announce(Announcement{UUID: "c"}, Naming{Room: "r2"}, t0)

	if n := inv.ClearRoom("r1"); n != 2 {
		t.Errorf("ClearRoom() = %d, want 2", n)
	}
	c, _ := inv.Get("c")
	if c.Room != "r2" {
		t.Errorf("unrelated room cleared: %q", c.Room)
	}
	if !inv.SetRoom("a", "r3") || inv.SetRoom("zzz", "r3") {
		t.Error("SetRoom() presence reporting wrong")
	}
	if !inv.SetName("a", "Lamp") || inv.SetName("zzz", "Lamp") {
		t.Error("SetName() presence reporting wrong")
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	inv := New()
	announce(inv, "U", "switch", t0)

	snap := inv.Snapshot()
	snap["U"].State = "99"
	snap["U"].Values["x"] = Value{Level: 1}

	d, _ := inv.Get("U")
	if d.State != "0" || len(d.Values) != 0 {
		t.Errorf("snapshot aliases inventory: %+v", d)
	}
}

func TestMirror_FlushAndRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.json")

	inv := New()
	inv.EnableMirror(path)
	announce(inv, "U", "switch", t0)
	if err := inv.SetState("U", "255", "", t0); err != nil {
		t.Fatal(err)
	}
	inv.Flush()

	restored := New()
	restored.EnableMirror(path)
	if err := restored.Restore(); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if diff := cmp.Diff(inv.Snapshot(), restored.Snapshot()); diff != "" {
		t.Errorf("restored inventory mismatch (-want +got):\n%s", diff)
	}
}

func TestMirror_RestoreMissingFile(t *testing.T) {
	inv := New()
	inv.EnableMirror(filepath.Join(t.TempDir(), "absent.json"))
	if !inv.Mirrored() {
		t.Error("Mirrored() = false after EnableMirror")
	}
	if err := inv.Restore(); err != nil {
		t.Errorf("Restore() error = %v", err)
	}
	if inv.Len() != 0 {
		t.Errorf("Len() = %d", inv.Len())
	}
}

func TestMirror_RestoredEntryWithoutValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.json")
	doc := `{"U": {"devicetype": "switch", "state": "1", "values": null, "lastseen": 1}}`
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}

	inv := New()
	inv.EnableMirror(path)
	if err := inv.Restore(); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if err := inv.SetState("U", "2", "", t0); !errors.Is(err, ErrMissingValues) {
		t.Fatalf("SetState() error = %v, want ErrMissingValues", err)
	}
	d, _ := inv.Get("U")
	if d.State != "1" {
		t.Errorf("state changed to %q despite missing values", d.State)
	}
}

func TestFlushWithoutMirrorIsNoop(t *testing.T) {
	inv := New()
	announce(inv, "U", "switch", t0)
	inv.Flush()
	if inv.Mirrored() {
		t.Error("Mirrored() = true without a path")
	}
}

func TestFormatLevel(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"255", "255"},
		{float64(255), "255"},
		{21.5, "21.5"},
		{true, "true"},
		{nil, ""},
		{int64(3), "3"},
	}
	for _, tt := range tests {
		if got := FormatLevel(tt.in); got != tt.want {
			t.Errorf("FormatLevel(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
