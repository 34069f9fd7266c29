// Package param keeps a local, cached view of a vehicle's parameter table
// and reads and writes the common parameter file dialects.
//
// The Store synchronizes over a Transport: an initial Pull fetches the whole
// table, parameter change events keep the cache current, and Set writes
// through to the remote end while updating the cache optimistically. The
// remote services are plain request/reply endpoints carrying JSON; the
// Call* helpers wrap them individually.
//
// Three file dialects are supported: MavProxy (space-delimited), Mission
// Planner (comma-delimited) and QGroundControl (tab-delimited with type
// tags). All three expose the same File interface so callers can load and
// save snapshots without caring about the dialect.
package param
