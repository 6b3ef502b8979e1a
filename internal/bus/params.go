package bus

// Parameters of the administrative commands. Optional identifiers are
// plain strings where empty means "generate one"; values that must be
// present but may legitimately be empty or zero are pointers.

// SetRoomName names a room, creating it when Room is empty.
type SetRoomName struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

// Validate implements Validator.
func (p *SetRoomName) Validate() error { return required("name", p.Name) }

// SetDeviceRoom assigns a device to a room. An empty Room clears the
// assignment; an absent one is an error.
type SetDeviceRoom struct {
	Device string  `json:"device"`
	Room   *string `json:"room"`
}

// Validate implements Validator.
func (p *SetDeviceRoom) Validate() error {
	if err := required("device", p.Device); err != nil {
		return err
	}
	return requiredPresent("room", p.Room)
}

// SetDeviceName sets a device's durable name.
type SetDeviceName struct {
	Device string `json:"device"`
	Name   string `json:"name"`
}

// Validate implements Validator.
func (p *SetDeviceName) Validate() error {
	if err := required("device", p.Device); err != nil {
		return err
	}
	return required("name", p.Name)
}

// DeleteRoom removes a room and unassigns its devices.
type DeleteRoom struct {
	Room string `json:"room"`
}

// Validate implements Validator.
func (p *DeleteRoom) Validate() error { return required("room", p.Room) }

// SetFloorplanName names a floorplan, creating it when Floorplan is empty.
type SetFloorplanName struct {
	Floorplan string `json:"floorplan"`
	Name      string `json:"name"`
}

// Validate implements Validator.
func (p *SetFloorplanName) Validate() error { return required("name", p.Name) }

// SetDeviceFloorplan places a device on a floorplan. Zero coordinates are
// valid, so X and Y are pointers.
type SetDeviceFloorplan struct {
	Device    string `json:"device"`
	Floorplan string `json:"floorplan"`
	X         *int   `json:"x"`
	Y         *int   `json:"y"`
}

// Validate implements Validator.
func (p *SetDeviceFloorplan) Validate() error {
	if err := required("device", p.Device); err != nil {
		return err
	}
	if err := required("floorplan", p.Floorplan); err != nil {
		return err
	}
	if err := requiredPresent("x", p.X); err != nil {
		return err
	}
	return requiredPresent("y", p.Y)
}

// DeleteFloorplanDevice removes one device placement.
type DeleteFloorplanDevice struct {
	Floorplan string `json:"floorplan"`
	Device    string `json:"device"`
}

// Validate implements Validator.
func (p *DeleteFloorplanDevice) Validate() error {
	if err := required("floorplan", p.Floorplan); err != nil {
		return err
	}
	return required("device", p.Device)
}

// DeleteFloorplan removes a floorplan and its placements.
type DeleteFloorplan struct {
	Floorplan string `json:"floorplan"`
}

// Validate implements Validator.
func (p *DeleteFloorplan) Validate() error { return required("floorplan", p.Floorplan) }

// SetLocationName names a location, creating it when Location is empty.
// A nil Description keeps the stored one.
type SetLocationName struct {
	Location    string  `json:"location"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// Validate implements Validator.
func (p *SetLocationName) Validate() error { return required("name", p.Name) }

// SetRoomLocation assigns a room to a location. An empty Location clears
// the assignment; an absent one is an error.
type SetRoomLocation struct {
	Room     string  `json:"room"`
	Location *string `json:"location"`
}

// Validate implements Validator.
func (p *SetRoomLocation) Validate() error {
	if err := required("room", p.Room); err != nil {
		return err
	}
	return requiredPresent("location", p.Location)
}

// DeleteLocation removes a location and unassigns its rooms.
type DeleteLocation struct {
	Location string `json:"location"`
}

// Validate implements Validator.
func (p *DeleteLocation) Validate() error { return required("location", p.Location) }

// SetVariable sets a global variable. An empty Value is stored as is.
type SetVariable struct {
	Variable string  `json:"variable"`
	Value    *string `json:"value"`
}

// Validate implements Validator.
func (p *SetVariable) Validate() error {
	if err := required("variable", p.Variable); err != nil {
		return err
	}
	return requiredPresent("value", p.Value)
}

// DelVariable deletes a global variable.
type DelVariable struct {
	Variable string `json:"variable"`
}

// Validate implements Validator.
func (p *DelVariable) Validate() error { return required("variable", p.Variable) }

// GetDevice asks for one live inventory entry.
type GetDevice struct {
	Device string `json:"device"`
}

// Validate implements Validator.
func (p *GetDevice) Validate() error { return required("device", p.Device) }

// SetConfig writes one option. An empty App means the resolver's own.
type SetConfig struct {
	App     string  `json:"app"`
	Section string  `json:"section"`
	Option  string  `json:"option"`
	Value   *string `json:"value"`
}

// Validate implements Validator.
func (p *SetConfig) Validate() error {
	if err := required("section", p.Section); err != nil {
		return err
	}
	if err := required("option", p.Option); err != nil {
		return err
	}
	return requiredPresent("value", p.Value)
}
