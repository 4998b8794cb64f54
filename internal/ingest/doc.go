// Package ingest feeds decoded playback messages into a transform tree.
//
// An Accumulator receives one batch of messages per delivered playback
// frame, registers every coordinate frame the batch references, records
// transform broadcasts, and hands back the tree's latest snapshot. A reset
// flag on the batch (seek, backward jump, source change) discards all
// accumulated transforms and starts a new session.
package ingest
