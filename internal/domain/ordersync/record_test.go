package ordersync

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(shipment, product string, qty int) ItemRecord {
	return ItemRecord{
		OrderCode:   NormalizeKey("9" + shipment),
		ShipmentID:  NormalizeKey(shipment),
		ProductCode: NormalizeKey(product),
		Quantity:    qty,
		UnitPrice:   decimal.NewFromInt(1000),
	}
}

func TestGroupRecords(t *testing.T) {
	t.Run("groups by shipment id preserving order", func(t *testing.T) {
		groups := GroupRecords([]ItemRecord{
			rec("100", "A", 1),
			rec("200", "B", 1),
			rec("100", "C", 1),
		})

		require.Len(t, groups, 2)
		assert.Equal(t, OrderKey("100"), groups[0].ShipmentID)
		assert.Len(t, groups[0].Records, 2)
		assert.Equal(t, OrderKey("200"), groups[1].ShipmentID)
		assert.Len(t, groups[1].Records, 1)
	})

	t.Run("in-group duplicate product code keeps last seen", func(t *testing.T) {
		groups := GroupRecords([]ItemRecord{
			rec("100", "A", 1),
			rec("100", "A", 7),
		})

		require.Len(t, groups, 1)
		require.Len(t, groups[0].Records, 1)
		assert.Equal(t, 7, groups[0].Records[0].Quantity)
	})

	t.Run("skips records without shipment id", func(t *testing.T) {
		groups := GroupRecords([]ItemRecord{
			rec("", "A", 1),
			rec("100", "B", 1),
		})

		require.Len(t, groups, 1)
		assert.Equal(t, OrderKey("100"), groups[0].ShipmentID)
	})

	t.Run("empty input yields no groups", func(t *testing.T) {
		assert.Empty(t, GroupRecords(nil))
	})
}

func TestEnvelope_Key(t *testing.T) {
	e := Envelope{ShipmentID: "۵۵۵.0"}
	assert.Equal(t, OrderKey("555"), e.Key())
}
