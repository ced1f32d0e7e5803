/*
Package sharing is the broker itself: a Service that lists endpoints, reports their formats
and routes files to them, the bus messages and handlers that carry those operations through
the mediator, the bindings that expose them as remote methods, and a Client for callers.

Remote surface (interface org.rt.SharingService by default):

	getEndpoints           -> []string, also broadcasts endpointsReady with the same list
	getEndpointFormats     {"endpoint"} -> []string
	passFileForProcessing  {"endpoint", "path"} -> nothing
*/
package sharing
