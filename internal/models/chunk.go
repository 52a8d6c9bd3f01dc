package models

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// OpinionType labels the structural unit of a Supreme Court opinion a chunk
// was cut from.
type OpinionType string

const (
	OpinionSyllabus      OpinionType = "syllabus"
	OpinionMajority      OpinionType = "majority"
	OpinionConcurring    OpinionType = "concurring"
	OpinionDissenting    OpinionType = "dissenting"
	OpinionConcurDissent OpinionType = "concurring_in_part_dissenting_in_part"
)

// Label returns the human-readable form used in search results.
func (t OpinionType) Label() string {
	switch t {
	case OpinionSyllabus:
		return "Syllabus"
	case OpinionMajority:
		return "Majority Opinion"
	case OpinionConcurring:
		return "Concurring Opinion"
	case OpinionDissenting:
		return "Dissenting Opinion"
	case OpinionConcurDissent:
		return "Opinion Concurring in Part and Dissenting in Part"
	}
	return "Opinion"
}

// OrderChunkType labels the region of an Executive Order a chunk was cut from.
type OrderChunkType string

const (
	OrderHeader  OrderChunkType = "header"
	OrderSection OrderChunkType = "section"
	OrderTail    OrderChunkType = "tail"
)

// OpinionSectionInfo locates a chunk inside an opinion.
type OpinionSectionInfo struct {
	OpinionType  OpinionType // empty for unlabeled spans (caption, malformed text)
	Justice      string      // authoring justice of the span, empty for syllabus/per curiam
	SectionLabel string      // Roman-numeral part path, e.g. "II" or "II.A"
}

// OrderSectionInfo locates a chunk inside an executive order.
type OrderSectionInfo struct {
	ChunkType       OrderChunkType
	SectionTitle    string // heading sentence verbatim, e.g. "Sec. 1. Purpose."
	SubsectionLabel string // e.g. "Sec. 2(a)", empty before the first subsection
}

// Chunk is one window of document text with its structural position.
// Exactly one of Opinion or Order is set.
type Chunk struct {
	Text       string
	Index      int
	TokenCount int

	Opinion *OpinionSectionInfo
	Order   *OrderSectionInfo
}

// ChunkID derives the deterministic point id for a chunk. Re-ingesting a
// document always produces the same ids, which makes upserts idempotent.
func ChunkID(documentID string, index int) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_chunk_%d", documentID, index)))
	return hex.EncodeToString(sum[:])
}
