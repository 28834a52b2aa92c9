package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogueIsConsistent(t *testing.T) {
	seen := map[string]bool{}
	for _, res := range All() {
		assert.False(t, seen[res.Key], "duplicate key %s", res.Key)
		seen[res.Key] = true
		assert.NotEmpty(t, res.Columns, res.Key)
		if res.Editable {
			assert.NotEmpty(t, res.Fields, res.Key)
		}
		for _, f := range res.Filters {
			assert.NotEmpty(t, f.Options, "%s.%s", res.Key, f.Param)
		}
	}
	assert.Len(t, seen, 8)
}

func TestFilterParams(t *testing.T) {
	want := map[string][]string{
		"users":     {"role", "status"},
		"cases":     {"status", "case_type"},
		"people":    {"person_type"},
		"banks":     {"bank_type"},
		"insurance": {"insurance_type"},
		"companies": {"company_type"},
		"payments":  {"status", "payment_method"},
		"settings":  {"category"},
	}
	for key, params := range want {
		res, ok := Lookup(key)
		require.True(t, ok, key)
		var got []string
		for _, f := range res.Filters {
			got = append(got, f.Param)
		}
		assert.Equal(t, params, got, key)
	}
}

func TestOnlyUsersAndSettingsAreEditable(t *testing.T) {
	for _, res := range All() {
		assert.Equal(t, res.Key == "users" || res.Key == "settings", res.Editable, res.Key)
	}
	assert.True(t, Users.StatusToggle)
}

func TestUserFormValidation(t *testing.T) {
	errs := Users.Validate(map[string]string{"name": "", "email": "x", "role": "user"}, true)
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")

	errs = Users.Validate(map[string]string{"name": "Ama", "email": "ama@dennislaw.com", "role": "admin", "password": "longenough"}, true)
	assert.Empty(t, errs)
}

func TestNavigationStartsWithOverview(t *testing.T) {
	nav := Navigation()
	require.NotEmpty(t, nav)
	assert.Equal(t, "/admin", nav[0].Href)
	assert.Equal(t, "/admin/banks", nav[4].Href)
}
