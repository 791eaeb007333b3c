package categories

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fpachecos/dashboard-faturas/internal/model"
)

func TestDefault(t *testing.T) {
	cats := Default()
	assert.Len(t, cats, 13)
	assert.Equal(t, Food, cats[0].Name)
	assert.Equal(t, Other, cats[12].Name)

	for _, c := range cats {
		assert.NotEmpty(t, c.ID)
		assert.NotEmpty(t, c.Name)
		assert.Regexp(t, `^#[0-9A-F]{6}$`, c.Color)
	}
}

func TestDefault_IsImmutable(t *testing.T) {
	cats := Default()
	cats[0].Name = "changed"
	assert.Equal(t, Food, Default()[0].Name)
}

func TestServiceLookups(t *testing.T) {
	svc := NewService(Default())
	assert.Len(t, svc.All(), 13)

	c, ok := svc.ByName(Restaurant)
	assert.True(t, ok)
	assert.Equal(t, "12", c.ID)

	c, ok = svc.Get("11")
	assert.True(t, ok)
	assert.Equal(t, Pharmacy, c.Name)

	_, ok = svc.Get("99")
	assert.False(t, ok)
	_, ok = svc.ByName("Viagem")
	assert.False(t, ok)

	assert.Equal(t, Transport, svc.NameOf("2", "?"))
	assert.Equal(t, "?", svc.NameOf("99", "?"))
}

func TestService_DuplicateNamesFirstWins(t *testing.T) {
	svc := NewService([]model.Category{
		{ID: "a", Name: "Lazer"},
		{ID: "b", Name: "Lazer"},
	})
	c, ok := svc.ByName("Lazer")
	assert.True(t, ok)
	assert.Equal(t, "a", c.ID)
	assert.Len(t, svc.All(), 2)
}
