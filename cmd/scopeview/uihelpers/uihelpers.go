package uihelpers

// ComputeChartDimensions applies the width/height clamp rules used for the
// live chart. Input: desired raw width (e.g. window canvas width). Returns
// clamped width & height.
func ComputeChartDimensions(rawW int) (int, int) {
	w := rawW
	if w < 640 {
		w = 640
	}
	h := int(float32(w) * 0.5)
	if h < 320 {
		h = 320
	}
	if h > 640 {
		h = 640
	}
	return w, h
}
