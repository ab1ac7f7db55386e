package model

// DeviceClass is the device's position in the leaf/spine/superspine fabric
// (spec §4.C3).
type DeviceClass string

const (
	DeviceUnknown    DeviceClass = "unknown"
	DeviceLeaf       DeviceClass = "leaf"
	DeviceSpine      DeviceClass = "spine"
	DeviceSuperspine DeviceClass = "superspine"
)

// Device is a fabric switch: a stable name plus the interfaces owned on it.
// Interfaces are keyed by name for O(1) lookup and to enforce the (device,
// name) uniqueness invariant from spec §3.
type Device struct {
	Name       string
	Class      DeviceClass
	Interfaces map[string]*Interface
}

// NewDevice creates an empty Device shell.
func NewDevice(name string) *Device {
	return &Device{Name: name, Class: DeviceUnknown, Interfaces: make(map[string]*Interface)}
}

// AddInterface registers iface under this device, overwriting any
// previous record with the same name (the loader's job is to never call
// this twice for the same name with different content).
func (d *Device) AddInterface(iface *Interface) {
	iface.Device = d.Name
	d.Interfaces[iface.Name] = iface
}

// Interface looks up a member interface by name.
func (d *Device) Interface(name string) (*Interface, bool) {
	iface, ok := d.Interfaces[name]
	return iface, ok
}
