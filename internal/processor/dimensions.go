package processor

// OutputDimensions picks the output raster for a layout of long x short
// sides. Landscape sources (w > h) get (long, short); portrait and square
// sources get (short, long).
func OutputDimensions(long, short, width, height int) (int, int) {
	if width > height {
		return long, short
	}
	return short, long
}
