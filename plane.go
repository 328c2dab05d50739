package capturekit

// PlaneDescriptor describes one sub-image of a multi-planar pixel layout.
// Packed formats have no planes (plane count 0); biplanar 4:2:0 formats have a
// full-resolution luma plane 0 and a half-resolution two-channel chroma
// plane 1.
type PlaneDescriptor struct {
	Index           int
	Width           int
	Height          int
	BytesPerRow     int
	BytesPerElement int
	Offset          int // byte offset within the parent allocation
	Size            int // total plane bytes (Height * BytesPerRow)
}

// HalfDim halves a luma dimension per the 4:2:0 chroma convention, rounding
// up so odd sizes keep their last sample column/row.
func HalfDim(n int) int { return (n + 1) / 2 }
