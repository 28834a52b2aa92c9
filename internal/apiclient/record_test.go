package apiclient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDisplayFallbacks(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 42,
		"title": "Mensah v. Owusu",
		"suit_number": "",
		"judge": null,
		"amount": 1250.5,
		"is_active": true,
		"contact": {"email": "clerk@court.gh", "phone": null}
	}`), &rec))

	assert.Equal(t, "42", rec.ID())
	assert.Equal(t, "Mensah v. Owusu", rec.Display("title"))
	assert.Equal(t, NotAvailable, rec.Display("suit_number"))
	assert.Equal(t, NotAvailable, rec.Display("judge"))
	assert.Equal(t, NotAvailable, rec.Display("missing"))
	assert.Equal(t, "1250.5", rec.Display("amount"))
	assert.Equal(t, "Yes", rec.Display("is_active"))
	assert.Equal(t, "clerk@court.gh", rec.Display("contact.email"))
	assert.Equal(t, NotAvailable, rec.Display("contact.phone"))
	assert.Equal(t, NotAvailable, rec.Display("contact.email.host"))
	assert.True(t, rec.Bool("is_active"))
}

func TestRecordFlattenIsSorted(t *testing.T) {
	rec := Record{"name": "Ama", "contact": map[string]any{"phone": "+233", "email": "a@b.co"}}
	fields := rec.Flatten()
	require.Len(t, fields, 3)
	assert.Equal(t, "contact.email", fields[0].Path)
	assert.Equal(t, "contact.phone", fields[1].Path)
	assert.Equal(t, "name", fields[2].Path)
}
