package domain

// Presentation is the render plan a view mode implies. Both modes draw
// from the same filtered result, only the layout differs.
type Presentation struct {
	Mode            ViewMode `json:"mode"`
	Columns         int      `json:"columns"`
	ShowDescription bool     `json:"show_description"`
	ImageFirst      bool     `json:"image_first"`
}

// PresentationFor maps a view mode to its render plan: a compact
// single-column list with description lines, or a full-bleed two-column
// grid led by the first image
func PresentationFor(mode ViewMode) Presentation {
	if mode == ModeGrid {
		return Presentation{Mode: ModeGrid, Columns: 2, ShowDescription: false, ImageFirst: true}
	}
	return Presentation{Mode: ModeList, Columns: 1, ShowDescription: true, ImageFirst: false}
}
