/*
Package rabbitmq provides a RabbitMQ signal sink for the broker.
It publishes integration events to a topic exchange routed by topic, includes an
auto-reconnect publisher, and supports optional header propagation via a bus.HeaderPropagator.
*/
package rabbitmq
