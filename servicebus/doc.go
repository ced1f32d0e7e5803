/*
Package servicebus provides a thin in-process mediator over command, query, and event handling.
Remote method bindings ask queries and dispatch commands through it, and signals leave the
process through a pluggable EventPublisher, keeping the broker decoupled from concrete transports.
*/
package servicebus
