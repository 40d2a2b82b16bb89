package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
)

func fixtureTables() []core.Table {
	return []core.Table{
		{
			Name: "Orders",
			Columns: []core.Column{
				{Name: "OrderID", Type: core.TypeInteger},
				{Name: "CustomerID", Type: core.TypeInteger},
				{Name: "Amount", Type: core.TypeDecimal},
				{Name: "OrderDate", Type: core.TypeDate},
			},
		},
		{
			Name: "Customers",
			Columns: []core.Column{
				{Name: "CustomerID", Type: core.TypeInteger},
				{Name: "Name", Type: core.TypeString},
			},
		},
	}
}

func TestConvertRelationshipManyToOne(t *testing.T) {
	assocs := []core.Association{
		{TableA: "Orders", TableB: "Customers", Fields: []string{"CustomerID"}},
	}

	model, err := Convert(fixtureTables(), assocs)
	require.NoError(t, err)
	require.Len(t, model.Relationships, 1)

	rel := model.Relationships[0]
	assert.Equal(t, "Orders_Customers", rel.Name)
	assert.Equal(t, "Orders", rel.FromTable)
	assert.Equal(t, "Customers", rel.ToTable)
	assert.Equal(t, "CustomerID", rel.FromColumn)
	assert.Equal(t, ManyToOne, rel.Cardinality)
	assert.Equal(t, FilterSingle, rel.CrossFilter)
	assert.True(t, rel.Active)
	assert.False(t, rel.Review)
}

func TestConvertRelationshipDirectionNormalized(t *testing.T) {
	// The dimension side listed first still lands on the "to" side.
	assocs := []core.Association{
		{TableA: "Customers", TableB: "Orders", Fields: []string{"CustomerID"}},
	}

	model, err := Convert(fixtureTables(), assocs)
	require.NoError(t, err)
	require.Len(t, model.Relationships, 1)

	rel := model.Relationships[0]
	assert.Equal(t, "Orders", rel.FromTable)
	assert.Equal(t, "Customers", rel.ToTable)
	assert.Equal(t, ManyToOne, rel.Cardinality)
}

func TestConvertManyToMany(t *testing.T) {
	tables := []core.Table{
		{Name: "Sales", Columns: []core.Column{{Name: "Region", Type: core.TypeString}}},
		{Name: "Targets", Columns: []core.Column{{Name: "Region", Type: core.TypeString}}},
	}
	assocs := []core.Association{
		{TableA: "Sales", TableB: "Targets", Fields: []string{"Region"}},
	}

	model, err := Convert(tables, assocs)
	require.NoError(t, err)
	require.Len(t, model.Relationships, 1)

	rel := model.Relationships[0]
	assert.Equal(t, ManyToMany, rel.Cardinality)
	assert.Equal(t, FilterBoth, rel.CrossFilter)
	assert.True(t, rel.Review)
	assert.NotEmpty(t, model.Warnings)
}

func TestConvertOneToOne(t *testing.T) {
	tables := []core.Table{
		{Name: "Accounts", Columns: []core.Column{{Name: "ID", Type: core.TypeInteger}}},
		{Name: "Profiles", Columns: []core.Column{{Name: "ID", Type: core.TypeInteger}}},
	}
	assocs := []core.Association{
		{TableA: "Accounts", TableB: "Profiles", Fields: []string{"ID"}},
	}

	model, err := Convert(tables, assocs)
	require.NoError(t, err)
	require.Len(t, model.Relationships, 1)
	assert.Equal(t, OneToOne, model.Relationships[0].Cardinality)
}

func TestConvertCompositeKeyBecomesSyntheticEntry(t *testing.T) {
	assocs := []core.Association{
		{TableA: "Orders", TableB: "Customers", Fields: []string{"CustomerID", "Region"}},
	}

	model, err := Convert(fixtureTables(), assocs)
	require.NoError(t, err)

	assert.Empty(t, model.Relationships)
	require.Len(t, model.SyntheticKeys, 1)
	assert.Equal(t, []string{"Orders", "Customers"}, model.SyntheticKeys[0].Tables)
	assert.Equal(t, []string{"CustomerID", "Region"}, model.SyntheticKeys[0].Fields)
}

func TestConvertOneActiveRelationshipPerPair(t *testing.T) {
	tables := fixtureTables()
	tables[0].Columns = append(tables[0].Columns, core.Column{Name: "BillToCustomerID", Type: core.TypeInteger})
	assocs := []core.Association{
		{TableA: "Orders", TableB: "Customers", Fields: []string{"CustomerID"}},
		{TableA: "Orders", TableB: "Customers", Fields: []string{"BillToCustomerID"}},
	}

	model, err := Convert(tables, assocs)
	require.NoError(t, err)
	require.Len(t, model.Relationships, 2)

	assert.True(t, model.Relationships[0].Active)
	assert.False(t, model.Relationships[1].Active)
	assert.Equal(t, "Orders_Customers", model.Relationships[0].Name)
	assert.Equal(t, "Orders_Customers_BillToCustomerID", model.Relationships[1].Name)
}

func TestConvertColumnTypesAndFormats(t *testing.T) {
	assocs := []core.Association{
		{TableA: "Orders", TableB: "Customers", Fields: []string{"CustomerID"}},
	}

	model, err := Convert(fixtureTables(), assocs)
	require.NoError(t, err)

	orders := model.Table("Orders")
	require.NotNil(t, orders)

	amount, ok := orders.Column("Amount")
	require.True(t, ok)
	assert.Equal(t, TypeDouble, amount.DataType)
	assert.Equal(t, "#,0.00", amount.FormatString)
	assert.Equal(t, "sum", amount.SummarizeBy)

	key, ok := orders.Column("CustomerID")
	require.True(t, ok)
	assert.Equal(t, TypeInt64, key.DataType)
	assert.Equal(t, "0", key.FormatString)
	assert.Equal(t, "none", key.SummarizeBy)
	assert.True(t, key.IsKey)

	date, ok := orders.Column("OrderDate")
	require.True(t, ok)
	assert.Equal(t, TypeDateTime, date.DataType)
	assert.Equal(t, "Long Date", date.FormatString)
	assert.Equal(t, "none", date.SummarizeBy)
}

func TestConvertDateHierarchy(t *testing.T) {
	model, err := Convert(fixtureTables(), nil)
	require.NoError(t, err)

	orders := model.Table("Orders")
	require.NotNil(t, orders)
	require.Len(t, orders.Hierarchies, 1)

	h := orders.Hierarchies[0]
	assert.Equal(t, "OrderDate Hierarchy", h.Name)
	require.Len(t, h.Levels, 4)
	assert.Equal(t, "Year", h.Levels[0].Name)
	assert.Equal(t, "Day", h.Levels[3].Name)
}

func TestConvertSyntheticTableDropped(t *testing.T) {
	tables := append(fixtureTables(), core.Table{
		Name: "$Syn 1",
		Columns: []core.Column{
			{Name: "CustomerID", Type: core.TypeInteger},
			{Name: "Region", Type: core.TypeString},
		},
	})

	model, err := Convert(tables, nil)
	require.NoError(t, err)

	assert.Nil(t, model.Table("$Syn 1"))
	require.Len(t, model.SyntheticKeys, 1)
	assert.Equal(t, []string{"$Syn 1"}, model.SyntheticKeys[0].Tables)
	assert.Equal(t, []string{"CustomerID", "Region"}, model.SyntheticKeys[0].Fields)
	assert.NotEmpty(t, model.Warnings)
}

func TestConvertMeasureHomeTable(t *testing.T) {
	measures := []Measure{
		{Name: "Total Amount", Expression: "SUM('Orders'[Amount])"},
		{Name: "Customer Count", Expression: "DISTINCTCOUNT([Name])"},
	}

	model, err := Convert(fixtureTables(), nil, WithMeasures(measures))
	require.NoError(t, err)

	orders := model.Table("Orders")
	require.NotNil(t, orders)
	require.Len(t, orders.Measures, 1)
	assert.Equal(t, "Total Amount", orders.Measures[0].Name)

	customers := model.Table("Customers")
	require.NotNil(t, customers)
	require.Len(t, customers.Measures, 1)
	assert.Equal(t, "Customer Count", customers.Measures[0].Name)
}

func TestConvertDuplicateTableName(t *testing.T) {
	tables := []core.Table{{Name: "Orders"}, {Name: "orders"}}

	_, err := Convert(tables, nil)

	var dup *DuplicateTableError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "orders", dup.Name)
}

func TestConvertUnknownAssociationEndpointSkipped(t *testing.T) {
	assocs := []core.Association{
		{TableA: "Orders", TableB: "Ghost", Fields: []string{"GhostID"}},
	}

	model, err := Convert(fixtureTables(), assocs)
	require.NoError(t, err)

	assert.Empty(t, model.Relationships)
	assert.NotEmpty(t, model.Warnings)
}

func TestConvertDeterministicOrder(t *testing.T) {
	assocs := []core.Association{
		{TableA: "Orders", TableB: "Customers", Fields: []string{"CustomerID"}},
	}

	a, err := Convert(fixtureTables(), assocs)
	require.NoError(t, err)
	b, err := Convert(fixtureTables(), assocs)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
