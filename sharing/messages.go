package sharing

import cbus "github.com/nullptr-deref/dbus-sharing/contract/bus"

// DefaultInterface names the broker on the bus; method subjects and signal topics hang off it.
const DefaultInterface = "org.rt.SharingService"

// Remote method and signal names.
const (
	MethodGetEndpoints       = "getEndpoints"
	MethodGetEndpointFormats = "getEndpointFormats"
	MethodPassFile           = "passFileForProcessing"
	SignalEndpointsReady     = "endpointsReady"
)

// GetEndpoints asks for every registered endpoint name.
type GetEndpoints struct{}

// GetEndpointFormats asks for the formats one endpoint accepts.
type GetEndpointFormats struct {
	Endpoint string `json:"endpoint"`
}

// PassFileForProcessing routes a file to an endpoint.
type PassFileForProcessing struct {
	Endpoint string `json:"endpoint"`
	Path     string `json:"path"`
}

var (
	_ cbus.Query   = GetEndpoints{}
	_ cbus.Query   = GetEndpointFormats{}
	_ cbus.Command = PassFileForProcessing{}
)

// EndpointsReady is the signal broadcast with the endpoint list.
type EndpointsReady struct {
	Interface string   `json:"-"`
	Endpoints []string `json:"endpoints"`
}

func (e EndpointsReady) Topic() string { return e.Interface + "." + SignalEndpointsReady }

var _ cbus.IntegrationEvent = EndpointsReady{}

// FileRouted is published in-process after an endpoint program was started.
type FileRouted struct {
	Endpoint   string
	Executable string
	Path       string
	PID        int
}

var _ cbus.DomainEvent = FileRouted{}
