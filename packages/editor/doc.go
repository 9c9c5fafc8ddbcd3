// Package editor wires the request composer, the dispatcher, the response slots and
// the viewer into one editing surface.
//
// Results are only rendered when they belong to the latest dispatch and to the request
// that is still open; other results are stored in their slot or dropped.
package editor
