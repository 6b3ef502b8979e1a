// Package bus defines the messages the resolver exchanges on the bus.
//
// Payloads arrive as loosely typed JSON. They are decoded once, here, into
// one struct per event subject or command, with weakly typed conversion so
// a numeric "level" or calendar field still lands in a string field.
// Validation of required fields happens at the same point; code past the
// boundary works with typed values only.
//
// Event subjects keep their full dotted form ("event.device.announce").
// Mapping subjects to transport topics is the transport's concern.
package bus
