// Package infra holds the adapters around the scheduling core: the zerolog
// logger, Prometheus and InfluxDB sinks, the MQTT client, the Sentry monitor
// and the roster file loader. Core packages never import infra.
package infra
