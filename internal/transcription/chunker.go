package transcription

// Chunk is one byte range of a large audio file submitted separately for
// transcription.
type Chunk struct {
	Index  int
	Offset int64
	Length int64
}

// PlanChunks splits totalSize bytes into consecutive ranges no larger than
// chunkSize. Files at or under the budget yield a single chunk.
func PlanChunks(totalSize, chunkSize int64) []Chunk {
	if totalSize <= 0 {
		return nil
	}
	if chunkSize <= 0 || totalSize <= chunkSize {
		return []Chunk{{Index: 0, Offset: 0, Length: totalSize}}
	}

	chunks := make([]Chunk, 0, totalSize/chunkSize+1)
	var offset int64
	for offset < totalSize {
		length := chunkSize
		if remaining := totalSize - offset; remaining < length {
			length = remaining
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Offset: offset, Length: length})
		offset += length
	}
	return chunks
}

// Slice returns the chunk's bytes from the full file.
func (c Chunk) Slice(data []byte) []byte {
	return data[c.Offset : c.Offset+c.Length]
}
