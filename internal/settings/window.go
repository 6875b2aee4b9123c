package settings

// WindowPosition is where a process shows the weather window. Width and
// Height are optional.
type WindowPosition struct {
	Top    float64  `json:"top"`
	Left   float64  `json:"left"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
}
