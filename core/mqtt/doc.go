// Package mqtt defines the broker-facing contracts of the scheduler: status
// publication and inbound solve requests.
package mqtt
