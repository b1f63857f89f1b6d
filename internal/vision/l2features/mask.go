package l2features

// CentreFocusMask weights pixels by distance from the frame centre inside
// an ellipse spanning 40% of the width and 50% of the height. Pixels
// outside the ellipse are zero. Callers use it to seed a session with no
// region hint, where the lifter is usually near the middle of the shot.
func CentreFocusMask(w, h int) []uint8 {
	if w <= 0 || h <= 0 {
		return nil
	}
	mask := make([]uint8, w*h)
	cx, cy := float64(w)/2, float64(h)/2
	rx, ry := float64(w)*0.4, float64(h)*0.5
	for y := 0; y < h; y++ {
		ny := (float64(y) - cy) / ry
		for x := 0; x < w; x++ {
			nx := (float64(x) - cx) / rx
			d2 := nx*nx + ny*ny
			if d2 <= 1 {
				mask[y*w+x] = uint8(255 * (1 - d2))
			}
		}
	}
	return mask
}
