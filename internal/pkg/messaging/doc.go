// Package messaging consumes messages from Kafka, NATS, NSQ or Google Pub/Sub
// behind one Consumer interface.
//
// Handlers decide the outcome: a nil return acks the message, an error nacks
// it and leaves redelivery to the broker. A panic is recovered and nacked.
package messaging
