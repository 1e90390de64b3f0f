package catalog

import (
	"testing"

	"suitable-focus/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindEvent(t *testing.T) {
	event, err := FindEvent("bayhill-premier-cup")
	require.NoError(t, err)
	assert.Equal(t, "Bayhill Premier Cup", event.Title)
	assert.Equal(t, 45000, event.Price)
}

func TestFindEvent_Unknown(t *testing.T) {
	_, err := FindEvent("nope")
	assert.ErrorIs(t, err, models.ErrEventNotFound)
}

func TestFindService_Unknown(t *testing.T) {
	_, err := FindService("nope")
	assert.ErrorIs(t, err, models.ErrServiceNotFound)
}

func TestEventCartItem(t *testing.T) {
	event, err := FindEvent("lets-elevate-cape-town")
	require.NoError(t, err)

	item := event.CartItem()
	assert.Equal(t, "ticket-let's-elevate,-cape-town", item.ID)
	assert.Equal(t, "Let's Elevate, Cape Town Ticket", item.Name)
	assert.Equal(t, 9000, item.Price)
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, models.ItemKindEvent, item.Kind)
}

func TestServiceCartItem_ModesAreDistinctLines(t *testing.T) {
	online, err := FindService("individual-consultation-online")
	require.NoError(t, err)
	inPerson, err := FindService("individual-consultation-in-person")
	require.NoError(t, err)

	assert.NotEqual(t, online.CartItem().ID, inPerson.CartItem().ID,
		"each consultation mode must be its own cart line")
	assert.Equal(t, 35000, online.Price)
	assert.Equal(t, 60000, inPerson.Price)
	assert.Equal(t, models.ItemKindService, online.CartItem().Kind)
}

func TestCatalogSnapshotsAreCopies(t *testing.T) {
	list := Events()
	require.NotEmpty(t, list)
	list[0].Price = 1

	again, err := FindEvent(list[0].ID)
	require.NoError(t, err)
	assert.NotEqual(t, 1, again.Price)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "R 450.00", FormatPrice(45000))
	assert.Equal(t, "R 90.00", FormatPrice(9000))
	assert.Equal(t, "R 0.00", FormatPrice(0))
}
