package contracts

// DeviceInfo contains information about a MIDI port.
type DeviceInfo struct {
	Name         string // Port name.
	Manufacturer string // Port manufacturer, where the backend reports one.
	EntityName   string // Name of the entity the port belongs to.
}
