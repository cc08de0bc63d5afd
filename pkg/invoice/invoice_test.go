package invoice

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(number string) Document {
	return Document{
		OrderNumber:  number,
		CustomerName: "Asha Rao",
		Date:         time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		Status:       "Confirmed",
		Lines: []Line{{
			ProductName: "Basmati Rice 5kg",
			Quantity:    3,
			UnitPrice:   decimal.NewFromInt(100),
			TaxAmount:   decimal.NewFromInt(18),
			Total:       decimal.NewFromInt(354),
		}},
		Total: decimal.NewFromInt(354),
	}
}

func TestRenderOnePagePerDocument(t *testing.T) {
	var one, two bytes.Buffer
	require.NoError(t, Render(&one, "Ram Stores", []Document{doc("ORD1")}))
	require.NoError(t, Render(&two, "Ram Stores", []Document{doc("ORD1"), doc("ORD2")}))

	assert.True(t, bytes.HasPrefix(one.Bytes(), []byte("%PDF-")))
	assert.Equal(t, 1, bytes.Count(one.Bytes(), []byte("/Type /Page\n")))
	assert.Equal(t, 2, bytes.Count(two.Bytes(), []byte("/Type /Page\n")))
}

func TestRenderRequiresDocuments(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Render(&buf, "Ram Stores", nil), ErrNoDocuments)
	assert.Zero(t, buf.Len())
}
