package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenViewer(t *testing.T, n int) *Viewer {
	t.Helper()
	images := make([]string, n)
	for i := range images {
		images[i] = "https://cdn.example.com/ads/img.jpg"
	}
	v := NewViewer(images)
	require.NoError(t, v.Open(0))
	return v
}

func TestViewerOpenResetsState(t *testing.T) {
	v := newOpenViewer(t, 3)
	v.ZoomIn()
	v.ZoomIn()
	v.DragStart(10, 10)
	v.DragMove(40, 25)

	require.NoError(t, v.Open(2))
	assert.Equal(t, 2, v.Index())
	assert.Equal(t, 1.0, v.Zoom())
	assert.Equal(t, Offset{}, v.PanOffset())
	assert.False(t, v.Dragging())
}

func TestViewerOpenRejectsBadIndex(t *testing.T) {
	v := NewViewer([]string{"a", "b"})
	assert.Error(t, v.Open(2))
	assert.Error(t, v.Open(-1))

	empty := NewViewer(nil)
	assert.Error(t, empty.Open(0))
}

func TestViewerIndexWraps(t *testing.T) {
	const n = 3
	v := newOpenViewer(t, n)

	for i := 0; i < n; i++ {
		v.Next()
	}
	assert.Equal(t, 0, v.Index(), "n nexts from 0 should return to 0")

	v.Prev()
	assert.Equal(t, n-1, v.Index(), "prev from 0 should wrap to n-1")
}

func TestViewerNavigationResetsZoomAndOffset(t *testing.T) {
	v := newOpenViewer(t, 2)
	v.ZoomIn()
	v.DragStart(0, 0)
	v.DragMove(30, 40)
	v.DragEnd()

	v.Next()
	assert.Equal(t, 1.0, v.Zoom())
	assert.Equal(t, Offset{}, v.PanOffset())
}

func TestViewerZoomBounds(t *testing.T) {
	v := newOpenViewer(t, 1)

	for i := 0; i < 20; i++ {
		v.ZoomIn()
	}
	assert.Equal(t, ZoomMax, v.Zoom())

	for i := 0; i < 20; i++ {
		v.ZoomOut()
	}
	assert.Equal(t, ZoomMin, v.Zoom())
}

func TestViewerZoomOutBelowOneResetsOffset(t *testing.T) {
	v := newOpenViewer(t, 1)
	v.ZoomIn() // 1.5
	require.True(t, v.DragStart(0, 0))
	v.DragMove(50, 60)
	v.DragEnd()
	assert.Equal(t, Offset{X: 50, Y: 60}, v.PanOffset())

	v.ZoomOut() // back to 1.0
	assert.Equal(t, Offset{}, v.PanOffset())
}

func TestViewerDragOnlyWhenZoomed(t *testing.T) {
	v := newOpenViewer(t, 1)

	assert.False(t, v.DragStart(0, 0), "dragging without magnification is not permitted")
	v.DragMove(100, 100)
	assert.Equal(t, Offset{}, v.PanOffset())

	v.ZoomIn()
	require.True(t, v.DragStart(5, 5))
	v.DragMove(25, 15)
	assert.Equal(t, Offset{X: 20, Y: 10}, v.PanOffset())

	v.DragEnd()
	v.DragMove(200, 200)
	assert.Equal(t, Offset{X: 20, Y: 10}, v.PanOffset(), "moves after drag end are ignored")
}

func TestViewerRenderTransform(t *testing.T) {
	v := newOpenViewer(t, 1)

	tr := v.RenderTransform()
	assert.Equal(t, Transform{Scale: 1}, tr)

	v.ZoomIn() // 1.5
	require.True(t, v.DragStart(0, 0))
	v.DragMove(30, 45)

	tr = v.RenderTransform()
	assert.InDelta(t, 1.5, tr.Scale, 1e-9)
	assert.InDelta(t, 20, tr.TranslateX, 1e-9, "translation is offset divided by zoom")
	assert.InDelta(t, 30, tr.TranslateY, 1e-9)
}

func TestViewerCloseDropsState(t *testing.T) {
	v := newOpenViewer(t, 2)
	v.Next()
	v.ZoomIn()

	v.Close()
	assert.False(t, v.IsOpen())
	_, ok := v.Current()
	assert.False(t, ok)

	// Reopening starts from a clean slate
	require.NoError(t, v.Open(1))
	assert.Equal(t, 1, v.Index())
	assert.Equal(t, 1.0, v.Zoom())
}
