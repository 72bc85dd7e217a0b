package csvio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orionop/cargox/models"
	"github.com/orionop/cargox/undock"
)

func TestParseContainersNativeShape(t *testing.T) {
	csv := "id,width,height,depth,capacity,zone,container_type\n" +
		"c1,10,5,5,8,cabin,storage\n"
	res, err := ParseContainers(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Containers, 1)
	c := res.Containers[0]
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, 10.0, c.Width)
	assert.Equal(t, 8, c.Capacity)
	assert.Equal(t, "cabin", c.Zone)
	assert.Equal(t, models.KindStorage, c.Kind)
}

func TestParseContainersCentimeterShapeDividesBy100(t *testing.T) {
	csv := "zone,container_id,width_cm,depth_cm,height_cm\n" +
		"cabin,c1,1000,500,500\n"
	res, err := ParseContainers(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Containers, 1)
	c := res.Containers[0]
	assert.Equal(t, 10.0, c.Width)
	assert.Equal(t, 5.0, c.Depth)
	assert.Equal(t, 5.0, c.Height)
	assert.Equal(t, 10, c.Capacity, "centimeter shape defaults capacity to 10")
}

func TestParseContainersSkipsUnparseableRows(t *testing.T) {
	csv := "id,width,height,depth,capacity\n" +
		"c1,not-a-number,5,5,8\n" +
		"c2,10,5,5,8\n"
	res, err := ParseContainers(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Containers, 1)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "c2", res.Containers[0].ID)
}

func TestParseItemsNativeShape(t *testing.T) {
	csv := "id,name,width,height,depth,weight,priority,preferred_zone,expiry_date,usage_limit\n" +
		"i1,Widget,1,1,1,2.5,80,cabin,2026-01-01,5\n"
	res, err := ParseItems(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	it := res.Items[0]
	assert.Equal(t, "i1", it.ID)
	assert.Equal(t, "Widget", it.Name)
	assert.Equal(t, 2.5, it.Mass)
	assert.Equal(t, 80, it.Priority)
	assert.Equal(t, "cabin", it.PreferredZone)
	require.NotNil(t, it.ExpiryDate)
	assert.Equal(t, 2026, it.ExpiryDate.Year())
	require.NotNil(t, it.UsageLimit)
	assert.Equal(t, 5, *it.UsageLimit)
}

func TestParseItemsCentimeterKilogramShape(t *testing.T) {
	csv := "item_id,name,width_cm,depth_cm,height_cm,mass_kg\n" +
		"i1,Widget,100,50,50,3\n"
	res, err := ParseItems(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	it := res.Items[0]
	assert.Equal(t, 1.0, it.Width)
	assert.Equal(t, 0.5, it.Depth)
	assert.Equal(t, 3.0, it.Mass)
}

func TestParseItemsExpiryNAMeansUnset(t *testing.T) {
	csv := "id,name,width,height,depth,weight,expiry_date\n" +
		"i1,Widget,1,1,1,1,N/A\n"
	res, err := ParseItems(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Nil(t, res.Items[0].ExpiryDate)
}

func TestParseItemsDefaultWeight(t *testing.T) {
	csv := "id,name,width,height,depth\n" +
		"i1,Widget,1,1,1\n"
	res, err := ParseItems(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 1.0, res.Items[0].Mass)
}

func TestParseEmptyCSVReturnsEmptyResult(t *testing.T) {
	res, err := ParseContainers(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, res.Containers)
}

func TestWriteArrangementFormatsCornersAndSkipsUnplaced(t *testing.T) {
	items := []*models.Item{
		{ID: "i1", Placement: &models.Placement{ContainerID: "c1", X: 1, Y: 2, Z: 3, Width: 1, Height: 2, Depth: 3}},
		{ID: "i2"}, // unplaced, must be skipped
	}
	var buf bytes.Buffer
	require.NoError(t, WriteArrangement(&buf, items))
	out := buf.String()
	assert.Contains(t, out, `Item ID,Container ID,"Coordinates (W1,D1,H1)","(W2,D2,H2)"`)
	assert.Contains(t, out, "i1,c1,\"(1.00,2.00,3.00)\",\"(2.00,5.00,5.00)\"")
	assert.NotContains(t, out, "i2")
}

func TestWriteUndockingManifestIncludesFooterTotals(t *testing.T) {
	plan := &undock.Plan{
		Selected: []undock.Selection{
			{ItemID: "w1", Mass: 3, ContainerID: "waste-bin"},
		},
		TotalMass: 3,
		MaxWeight: 10,
	}
	var buf bytes.Buffer
	require.NoError(t, WriteUndockingManifest(&buf, plan, map[string]string{"w1": "Old Filter"}))
	out := buf.String()
	assert.Contains(t, out, "Item ID,Item Name,Weight (kg),Source Container ID")
	assert.Contains(t, out, "w1,Old Filter,3.00,waste-bin")
	assert.Contains(t, out, "Total Items,1")
	assert.Contains(t, out, "Total Weight (kg),3.00")
	assert.Contains(t, out, "Max Weight Limit (kg),10.00")
}
