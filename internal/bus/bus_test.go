package bus

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent(SubjectAnnounce, []byte(`{"uuid":"abc","devicetype":"switch","internalid":"1","handled-by":"zwave"}`))
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	if ev.Subject != SubjectAnnounce {
		t.Errorf("Subject = %q, want %q", ev.Subject, SubjectAnnounce)
	}

	uuid, ok := ev.DeviceUUID()
	if !ok || uuid != "abc" {
		t.Errorf("DeviceUUID() = %q, %v, want abc, true", uuid, ok)
	}

	a, err := ev.Announce()
	if err != nil {
		t.Fatalf("Announce() error = %v", err)
	}
	want := Announce{UUID: "abc", DeviceType: "switch", InternalID: "1", HandledBy: "zwave"}
	if diff := cmp.Diff(want, a); diff != "" {
		t.Errorf("Announce() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEvent_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		payload string
		wantErr error
	}{
		{"array payload", SubjectRemove, `[1,2]`, ErrMalformed},
		{"truncated", SubjectRemove, `{`, ErrMalformed},
		{"no subject", "", `{}`, ErrMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseEvent(tt.subject, []byte(tt.payload)); !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseEvent() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseEvent_NullPayload(t *testing.T) {
	ev, err := ParseEvent(SubjectTimeChanged, []byte(`null`))
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	if ev.Fields == nil {
		t.Error("Fields is nil for a null payload")
	}
	if _, ok := ev.DeviceUUID(); ok {
		t.Error("DeviceUUID() reported a uuid for a null payload")
	}
}

func TestAnnounce_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"no uuid", `{"devicetype":"switch"}`},
		{"empty uuid", `{"uuid":"","devicetype":"switch"}`},
		{"no devicetype", `{"uuid":"abc"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent(SubjectAnnounce, []byte(tt.payload))
			if err != nil {
				t.Fatalf("ParseEvent() error = %v", err)
			}
			if _, err := ev.Announce(); !errors.Is(err, ErrMissingField) {
				t.Errorf("Announce() error = %v, want ErrMissingField", err)
			}
		})
	}
}

func TestStale_Decoding(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    bool
		wantErr error
	}{
		{"bool", `{"uuid":"a","stale":true}`, true, nil},
		{"number", `{"uuid":"a","stale":0}`, false, nil},
		{"string", `{"uuid":"a","stale":"1"}`, true, nil},
		{"absent", `{"uuid":"a"}`, false, ErrMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent(SubjectStale, []byte(tt.payload))
			if err != nil {
				t.Fatalf("ParseEvent() error = %v", err)
			}
			s, err := ev.Stale()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Stale() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Stale() error = %v", err)
			}
			if s.Stale == nil {
				t.Fatal("Stale() left the flag nil")
			}
			if *s.Stale != tt.want {
				t.Errorf("Stale = %v, want %v", *s.Stale, tt.want)
			}
		})
	}
}

func TestReading_KeepsLevelType(t *testing.T) {
	ev, err := ParseEvent("event.environment.temperaturechanged", []byte(`{"uuid":"t1","level":21.5,"unit":"degC"}`))
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	r, err := ev.Reading()
	if err != nil {
		t.Fatalf("Reading() error = %v", err)
	}
	if r.Level != 21.5 || r.Unit != "degC" {
		t.Errorf("Reading() = %v %q, want 21.5 degC", r.Level, r.Unit)
	}

	ev, err = ParseEvent(SubjectStateChanged, []byte(`{"uuid":"t1"}`))
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	if _, err := ev.Reading(); !errors.Is(err, ErrMissingField) {
		t.Errorf("Reading() without level error = %v, want ErrMissingField", err)
	}
}

func TestTimeChanged_WeakTyping(t *testing.T) {
	ev, err := ParseEvent(SubjectTimeChanged, []byte(`{"minute":5,"hour":14,"day":"1","weekday":7,"month":3,"year":2026}`))
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	tc, err := ev.TimeChanged()
	if err != nil {
		t.Fatalf("TimeChanged() error = %v", err)
	}
	want := TimeChanged{Minute: "5", Hour: "14", Day: "1", Weekday: "7", Month: "3", Year: "2026"}
	if diff := cmp.Diff(want, tc); diff != "" {
		t.Errorf("TimeChanged() mismatch (-want +got):\n%s", diff)
	}
}

func TestPositionChanged(t *testing.T) {
	ev, err := ParseEvent(SubjectPositionChanged, []byte(`{"uuid":"gps","latitude":"51.5","longitude":-0.12,"unit":"deg"}`))
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	p, err := ev.PositionChanged()
	if err != nil {
		t.Fatalf("PositionChanged() error = %v", err)
	}
	if p.Latitude == nil || p.Longitude == nil {
		t.Fatal("PositionChanged() left a coordinate nil")
	}
	if *p.Latitude != 51.5 || *p.Longitude != -0.12 || p.UUID != "gps" {
		t.Errorf("PositionChanged() = %v,%v %q", *p.Latitude, *p.Longitude, p.UUID)
	}

	ev, err = ParseEvent(SubjectPositionChanged, []byte(`{"latitude":1}`))
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	if _, err := ev.PositionChanged(); !errors.Is(err, ErrMissingField) {
		t.Errorf("PositionChanged() without longitude error = %v, want ErrMissingField", err)
	}
}

func TestPositionChanged_Unconvertible(t *testing.T) {
	ev, err := ParseEvent(SubjectPositionChanged, []byte(`{"latitude":"north","longitude":1}`))
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	if _, err := ev.PositionChanged(); !errors.Is(err, ErrMalformed) {
		t.Errorf("PositionChanged() error = %v, want ErrMalformed", err)
	}
}

func TestParseRequest(t *testing.T) {
	payload := `{"request_id":"r1","uuid":"ctrl","command":"setroomname","parameters":{"name":"Kitchen"}}`
	req, err := ParseRequest([]byte(payload), "fallback")
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	if req.RequestID != "r1" || req.Target != "ctrl" || req.Command != CmdSetRoomName {
		t.Errorf("ParseRequest() = %+v", req)
	}

	var p SetRoomName
	if err := req.Bind(&p); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if diff := cmp.Diff(SetRoomName{Name: "Kitchen"}, p); diff != "" {
		t.Errorf("Bind() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRequest_FallbackID(t *testing.T) {
	req, err := ParseRequest([]byte(`{"uuid":"x","command":"inventory"}`), "from-topic")
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	if req.RequestID != "from-topic" {
		t.Errorf("RequestID = %q, want from-topic", req.RequestID)
	}
}

func TestParseRequest_Errors(t *testing.T) {
	if _, err := ParseRequest([]byte(`not json`), "id"); !errors.Is(err, ErrMalformed) {
		t.Errorf("ParseRequest(not json) error = %v, want ErrMalformed", err)
	}

	req, err := ParseRequest([]byte(`{"uuid":"x"}`), "id")
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("ParseRequest(no command) error = %v, want ErrMissingField", err)
	}
	if req.RequestID != "id" {
		t.Errorf("RequestID = %q, want id", req.RequestID)
	}
}

func TestBind_Parameters(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		out     Validator
		wantErr error
	}{
		{"setdevicefloorplan ok", map[string]any{"device": "d", "floorplan": "f", "x": 3.0, "y": "4"}, &SetDeviceFloorplan{}, nil},
		{"setdevicefloorplan zero coords", map[string]any{"device": "d", "floorplan": "f", "x": 0, "y": 0}, &SetDeviceFloorplan{}, nil},
		{"setdevicefloorplan missing y", map[string]any{"device": "d", "floorplan": "f", "x": 1}, &SetDeviceFloorplan{}, ErrMissingField},
		{"setvariable numeric value", map[string]any{"variable": "temp", "value": 21.0}, &SetVariable{}, nil},
		{"setvariable empty value", map[string]any{"variable": "temp", "value": ""}, &SetVariable{}, nil},
		{"setvariable no value", map[string]any{"variable": "temp"}, &SetVariable{}, ErrMissingField},
		{"setdeviceroom empty room clears", map[string]any{"device": "d", "room": ""}, &SetDeviceRoom{}, nil},
		{"setdeviceroom no room", map[string]any{"device": "d"}, &SetDeviceRoom{}, ErrMissingField},
		{"setroomlocation empty location clears", map[string]any{"room": "r", "location": ""}, &SetRoomLocation{}, nil},
		{"setroomlocation no location", map[string]any{"room": "r"}, &SetRoomLocation{}, ErrMissingField},
		{"setconfig missing option", map[string]any{"section": "s", "value": "v"}, &SetConfig{}, ErrMissingField},
		{"setroomname wrong type", map[string]any{"name": map[string]any{}}, &SetRoomName{}, ErrMalformed},
		{"deleteroom nil params", nil, &DeleteRoom{}, ErrMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Request{Parameters: tt.params}.Bind(tt.out)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Bind() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("Bind() error = %v", err)
			}
		})
	}
}

func TestBind_ConvertsValues(t *testing.T) {
	var p SetDeviceFloorplan
	if err := (Request{Parameters: map[string]any{"device": "d", "floorplan": "f", "x": 3.0, "y": "4"}}).Bind(&p); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if *p.X != 3 || *p.Y != 4 {
		t.Errorf("coords = %d,%d, want 3,4", *p.X, *p.Y)
	}

	var v SetVariable
	if err := (Request{Parameters: map[string]any{"variable": "temp", "value": 21.0}}).Bind(&v); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if *v.Value != "21" {
		t.Errorf("Value = %q, want 21", *v.Value)
	}

	var r SetDeviceRoom
	if err := (Request{Parameters: map[string]any{"device": "d", "room": ""}}).Bind(&r); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if r.Room == nil || *r.Room != "" {
		t.Errorf("Room = %v, want pointer to empty string", r.Room)
	}
}

func TestResponses_JSON(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		resp Response
		want string
	}{
		{
			name: "with data",
			resp: NewResponse("r1", map[string]string{"uuid": "u"}, now),
			want: `{"request_id":"r1","timestamp":"2026-03-01T12:00:00Z","success":true,"data":{"uuid":"u"}}`,
		},
		{
			name: "without data",
			resp: NewResponse("r2", nil, now),
			want: `{"request_id":"r2","timestamp":"2026-03-01T12:00:00Z","success":true}`,
		},
		{
			name: "error",
			resp: NewErrorResponse("r3", ErrCodeUnknownCommand, "no such command", now),
			want: `{"request_id":"r3","timestamp":"2026-03-01T12:00:00Z","success":false,"error":{"code":"UNKNOWN_COMMAND","message":"no such command"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.resp)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var got, want map[string]any
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal(got) error = %v", err)
			}
			if err := json.Unmarshal([]byte(tt.want), &want); err != nil {
				t.Fatalf("Unmarshal(want) error = %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("response JSON mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewDiscover(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	d := NewDiscover(now)
	if d.Command != CommandDiscover {
		t.Errorf("Command = %q, want %q", d.Command, CommandDiscover)
	}
	if d.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp location = %v, want UTC", d.Timestamp.Location())
	}
}
