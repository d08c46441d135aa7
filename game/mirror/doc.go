// Package mirror exports the client's view of the game to external storage.
//
// A Mirror observes both store cells and writes every change to a Sink: the
// full snapshot under the "state" key and one message per change on the
// "events" channel. RedisSink uses SET and PUBLISH so other processes can
// read or follow the game; FileSink writes an indented JSON snapshot and a
// JSON lines event log.
//
// Observers only record the latest values and wake the worker, so the
// connection manager's event loop never waits on sink I/O. When changes
// arrive faster than the sink accepts them, intermediate snapshots are
// skipped and the latest one wins.
package mirror
