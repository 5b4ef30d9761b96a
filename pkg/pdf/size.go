package pdf

const (
	mmPerInch = 25.4
	ptPerInch = 72.0
)

// Dimensions is the physical size of a page.
type Dimensions struct {
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
	WidthPt  float64 `json:"width_pt"`
	HeightPt float64 `json:"height_pt"`
}

// PageSize converts pixel geometry scanned at dpi to physical dimensions.
func PageSize(widthPx, heightPx int, dpi float64) Dimensions {
	wIn := float64(widthPx) / dpi
	hIn := float64(heightPx) / dpi
	return Dimensions{
		WidthMM:  wIn * mmPerInch,
		HeightMM: hIn * mmPerInch,
		WidthPt:  wIn * ptPerInch,
		HeightPt: hIn * ptPerInch,
	}
}
