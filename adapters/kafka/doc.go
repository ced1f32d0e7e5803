// Package kafka mirrors broker signals onto Kafka topics through franz-go.
package kafka
