package codec

// Chunks splits a count of uuencoded lines into groups of at most
// MaxLinesPerChunk, returning the (start, count) of each group. After
// each group the session reads or writes one checksum line before
// moving to the next (spec.md §4.3 and §4.6 read_block/write_ram_data).
func Chunks(totalLines int) [][2]int {
	var out [][2]int
	for start := 0; start < totalLines; start += MaxLinesPerChunk {
		n := totalLines - start
		if n > MaxLinesPerChunk {
			n = MaxLinesPerChunk
		}
		out = append(out, [2]int{start, n})
	}
	return out
}
