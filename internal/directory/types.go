package directory

// DeviceRecord is the durable naming row for a device.
type DeviceRecord struct {
	UUID string `json:"-"`
	Name string `json:"name"`
	Room string `json:"room"`
}

// Room groups devices. Location is empty when the room is not assigned to one.
type Room struct {
	UUID     string `json:"-"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Placement is a device position on a floorplan.
type Placement struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Floorplan is a named plan with device placements keyed by device UUID.
// Placements is never nil for values returned by the directory.
type Floorplan struct {
	UUID       string               `json:"-"`
	Name       string               `json:"name"`
	Placements map[string]Placement `json:"placements"`
}

// Location is a site area that rooms can belong to.
type Location struct {
	UUID        string `json:"-"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
