package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndex_FirstRecordWinsPerID(t *testing.T) {
	index := Index([]Product{
		{ID: 1, Name: "A", Price: 10},
		{ID: 2, Name: "B", Price: 5},
		{ID: 1, Name: "A v2", Price: 99},
	})

	assert.Len(t, index, 2)
	assert.Equal(t, "A", index[1].Name)
	assert.Equal(t, 10.0, index[1].Price)
	assert.Equal(t, "B", index[2].Name)
}

func TestIndex_Empty(t *testing.T) {
	assert.Empty(t, Index(nil))
}
