package canvas

import (
	"testing"

	"github.com/TFMV/dollargraph/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanPlace_Margins(t *testing.T) {
	c := New(1000, 800, DefaultRadius)

	tests := []struct {
		name string
		x, y float64
		err  error
	}{
		{"inside", 500, 400, nil},
		{"left margin", 37, 400, ErrOutOfBounds},
		{"on left margin", 38, 400, nil},
		{"right margin", 963, 400, ErrOutOfBounds},
		{"on right margin", 962, 400, nil},
		{"top margin", 500, 10, ErrOutOfBounds},
		{"bottom margin", 500, 790, ErrOutOfBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.CanPlace(tt.x, tt.y)
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestCanPlace_Spacing(t *testing.T) {
	c := New(1000, 800, DefaultRadius)
	c.Insert(1, 200, 200)

	assert.ErrorIs(t, c.CanPlace(250, 200), ErrTooClose)
	assert.ErrorIs(t, c.CanPlace(200, 140), ErrTooClose)
	assert.NoError(t, c.CanPlace(300, 200))
	assert.NoError(t, c.CanPlace(200, 290))

	c.Remove(1)
	assert.NoError(t, c.CanPlace(250, 200))
	assert.Equal(t, 0, c.Len())
}

func TestVertexAt(t *testing.T) {
	c := New(1000, 800, DefaultRadius)
	c.Insert(1, 100, 100)
	c.Insert(2, 200, 100)

	id, ok := c.VertexAt(100, 100)
	require.True(t, ok)
	assert.Equal(t, int64(1), id)

	id, ok = c.VertexAt(127, 100)
	require.True(t, ok, "clicks just outside the disc still hit")
	assert.Equal(t, int64(1), id)

	for _, p := range [][2]float64{{128, 100}, {72, 100}, {100, 128}, {100, 72}} {
		id, ok = c.VertexAt(p[0], p[1])
		require.True(t, ok, "a click exactly on the tolerance boundary hits (%v)", p)
		assert.Equal(t, int64(1), id)
	}
	_, ok = c.VertexAt(100, 128.5)
	assert.False(t, ok)

	id, ok = c.VertexAt(180, 105)
	require.True(t, ok)
	assert.Equal(t, int64(2), id)

	_, ok = c.VertexAt(120, 120)
	assert.False(t, ok, "the bounding-box corner is outside the disc")

	_, ok = c.VertexAt(150, 300)
	assert.False(t, ok)
}

func TestInsert_ReplacesPosition(t *testing.T) {
	c := New(1000, 800, DefaultRadius)
	c.Insert(1, 100, 100)
	c.Insert(1, 400, 400)

	assert.Equal(t, 1, c.Len())
	_, ok := c.VertexAt(100, 100)
	assert.False(t, ok)
	id, ok := c.VertexAt(400, 400)
	require.True(t, ok)
	assert.Equal(t, int64(1), id)
}

func TestBlocking(t *testing.T) {
	c := New(1000, 800, DefaultRadius)
	c.Insert(1, 100, 100)
	c.Insert(2, 500, 100)
	c.Insert(3, 300, 120)
	c.Insert(4, 300, 200)
	c.Insert(5, 100, 400)

	blocking, err := c.Blocking(1, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, blocking)
	assert.ErrorIs(t, c.CheckEdge(2, 1), ErrEdgeBlocked)

	assert.NoError(t, c.CheckEdge(1, 5))
	assert.NoError(t, c.CheckEdge(4, 5))

	_, err = c.Blocking(1, 42)
	assert.ErrorIs(t, err, models.ErrVertexNotFound)
}

func TestFromGraph(t *testing.T) {
	g := models.NewGraph("board")
	g.SetDimensions(600, 400)
	g.PlaceVertex(100, 100, 0)
	g.PlaceVertex(300, 200, 0)

	c := FromGraph(g, 0)
	assert.Equal(t, DefaultRadius, c.Radius())
	assert.Equal(t, 2, c.Len())

	w, h := c.Size()
	assert.Equal(t, 600.0, w)
	assert.Equal(t, 400.0, h)

	assert.ErrorIs(t, c.CanPlace(580, 200), ErrOutOfBounds)

	x, y := c.Clamp(-10, 900)
	assert.Equal(t, 38.0, x)
	assert.Equal(t, 362.0, y)
}
