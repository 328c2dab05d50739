package capturekit

// Rect is a rectangle in display points.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FrameInfo is the attachment record the runtime pins to each video sample.
// Status and DisplayTime are always present on video samples; the remaining
// fields are optional (nil or zero when the runtime did not supply them).
// Audio samples carry no frame info.
type FrameInfo struct {
	Status      FrameStatus `json:"status"`
	DisplayTime uint64      `json:"displayTime"`

	ScaleFactor  float64 `json:"scaleFactor,omitempty"`
	ContentScale float64 `json:"contentScale,omitempty"`

	ContentRect  *Rect  `json:"contentRect,omitempty"`
	BoundingRect *Rect  `json:"boundingRect,omitempty"`
	ScreenRect   *Rect  `json:"screenRect,omitempty"`
	DirtyRects   []Rect `json:"dirtyRects,omitempty"`
}
