// Package wire implements the binary protocol spoken between a process
// pool and its render worker subprocesses.
//
// Every message is a length-prefixed frame with all integers little-endian:
//
//	[u32 length][payload]
//
// where length counts payload bytes only. A request payload carries a
// correlation id, a style path, and a tile coordinate:
//
//	[u64 id][u32 path_len][path bytes][u8 zoom][u32 x][u32 y]
//
// A response payload carries the id and a tag byte selecting one of two
// bodies:
//
//	[u64 id][u8 0][u32 width][u32 height][width*height*4 RGBA bytes]
//	[u64 id][u8 1][u32 msg_len][msg bytes]
//
// The layout is fixed; parents and workers are always the same executable,
// but the codec makes no assumption beyond the byte layout above.
//
// Frames are capped at MaxFrameLen on both ends so a corrupt length prefix
// can never drive an unbounded allocation.
package wire
