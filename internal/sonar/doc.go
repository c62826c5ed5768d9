// Package sonar is the streaming filter core of the sonar map.
//
// Responsibilities: parsing "<angle>,<distance>" lines into readings, range
// gating, polar to Cartesian conversion, per-axis running median smoothing
// and the bounded display buffer the renderers read from.
// Key types: Reading, Point, MedianWindow, DisplayBuffer, Pipeline.
//
// Dependency rule: sonar performs no I/O and imports no transport, storage
// or rendering package. Collaborators attach through LineSource and Observer.
package sonar
