// Package sqlite persists sensor pipeline snapshots in a SQLite database.
//
// A snapshot is the flat accumulator list returned by Sensor.Export. It is
// stored relationally (snapshot, accumulator, input rows) so individual
// snapshots can be listed, pruned and inspected with plain SQL. Handles are
// only meaningful against the entity registry that issued them; hosts that
// restore across restarts must recreate entities in the same order.
package sqlite
