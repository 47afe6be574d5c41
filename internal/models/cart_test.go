package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartSetLineReplacesQuantity(t *testing.T) {
	cart := NewCart("u1")
	cart.SetLine(CartLine{ProductID: "p1", Quantity: 1, Name: "Tee", Price: 10})
	cart.SetLine(CartLine{ProductID: "p1", Quantity: 4})

	assert.Len(t, cart.Lines, 1)
	assert.Equal(t, 4, cart.Lines[0].Quantity)
	assert.Equal(t, "Tee", cart.Lines[0].Name)
}

func TestCartAddLineSums(t *testing.T) {
	cart := NewCart("u1")
	cart.AddLine(CartLine{ProductID: "p1", Quantity: 3})
	cart.AddLine(CartLine{ProductID: "p1", Quantity: 2})
	cart.AddLine(CartLine{ProductID: "p2", Quantity: 1})

	assert.Len(t, cart.Lines, 2)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
	assert.Equal(t, 6, cart.TotalQuantity())
}

func TestCartRemoveLine(t *testing.T) {
	cart := NewCart("u1")
	cart.SetLine(CartLine{ProductID: "p1", Quantity: 1})
	cart.SetLine(CartLine{ProductID: "p2", Quantity: 1})

	assert.True(t, cart.RemoveLine("p1"))
	assert.False(t, cart.RemoveLine("p1"))
	assert.Equal(t, []string{"p2"}, []string{cart.Lines[0].ProductID})
}

func TestCartCloneIsIndependent(t *testing.T) {
	cart := NewCart("u1")
	cart.SetLine(CartLine{ProductID: "p1", Quantity: 1})

	clone := cart.Clone()
	clone.Lines[0].Quantity = 9

	assert.Equal(t, 1, cart.Lines[0].Quantity)
	assert.Nil(t, (*Cart)(nil).Clone())
}

func TestSessionRoundTrip(t *testing.T) {
	cart := CartFromSession([]SessionLine{{ProductID: "p1", Quantity: 2}})
	assert.Equal(t, "", cart.OwnerID)
	assert.Equal(t, []SessionLine{{ProductID: "p1", Quantity: 2}}, cart.SessionLines())
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "classic-white-tee", Slugify("  Classic White Tee! "))
	assert.Equal(t, "a-b", Slugify("a -- b"))
	assert.Equal(t, "", Slugify("!!"))
}
