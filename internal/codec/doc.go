// Package codec implements per-page compression for the backup stream.
// Compress and Decompress are pure functions over caller-supplied buffers:
// neither opens a file nor retains state across calls, so concurrent file
// workers may call them freely.
package codec
