package controller

// Registry holds every controller the driver has attached, in probe order.
type Registry struct {
	Controllers []*Controller
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends controllers to the registry, as returned by AttachPCIFunction
// (or constructed directly for the legacy-only no-PCI path).
func (r *Registry) Add(ctrls ...*Controller) {
	r.Controllers = append(r.Controllers, ctrls...)
}

// AllDevices returns every device slot across every controller, present or
// not, in controller/slot order.
func (r *Registry) AllDevices() []*Device {
	var out []*Device
	for _, c := range r.Controllers {
		out = append(out, c.Devices[:]...)
	}
	return out
}
