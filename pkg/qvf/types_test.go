package qvf

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
)

func TestInferType(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		want       core.TypeCode
	}{
		{"OrderID", "", core.TypeInteger},
		{"order_id", "", core.TypeInteger},
		{"Quantity", "", core.TypeInteger},
		{"UnitPrice", "", core.TypeDecimal},
		{"Total Revenue", "", core.TypeDecimal},
		{"OrderDate", "", core.TypeDate},
		{"created_timestamp", "", core.TypeDateTime},
		{"IsActive", "", core.TypeBoolean},
		{"HasOrders", "", core.TypeBoolean},
		{"deleted_flag", "", core.TypeBoolean},
		{"CustomerName", "", core.TypeString},
		{"Region", "", core.TypeString},
		{"", "", core.TypeString},

		// Expression evidence outranks the name.
		{"Anything", "Date#(Raw, 'YYYY-MM-DD')", core.TypeDate},
		{"Anything", "Timestamp(Raw)", core.TypeDateTime},
		{"Amount", "Text(Amount)", core.TypeString},
		{"Label", "Num(Value)", core.TypeDecimal},
		{"Pos", "RowNo()", core.TypeInteger},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.expression, func(t *testing.T) {
			assert.Equal(t, tt.want, InferType(tt.name, tt.expression))
		})
	}
}

func TestSplitNameTokens(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"OrderID", []string{"order", "id"}},
		{"IDNumber", []string{"id", "number"}},
		{"unit_price", []string{"unit", "price"}},
		{"Total Revenue", []string{"total", "revenue"}},
		{"plain", []string{"plain"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitNameTokens(tt.name))
		})
	}
}
