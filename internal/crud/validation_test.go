package crud

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var users = Resource{
	Key:      "users",
	Title:    "Users",
	Editable: true,
	Fields: []Field{
		{Name: "name", Type: FieldText, Rules: "required"},
		{Name: "email", Type: FieldEmail, Rules: "required,looseemail"},
		{Name: "phone", Type: FieldTel, Rules: "omitempty,phone"},
		{Name: "role", Type: FieldSelect, Rules: "required,oneof=admin user"},
		{Name: "password", Type: FieldPassword, Rules: "required,min=8", CreateOnly: true},
		{Name: "is_verified", Type: FieldCheckbox},
	},
}

func TestValidateRejectsEmptyRequiredAndBadEmail(t *testing.T) {
	errs := users.Validate(map[string]string{"email": "not-an-email", "phone": "12"}, true)
	assert.Equal(t, "Name is required", errs["name"])
	assert.Equal(t, "Enter a valid email address", errs["email"])
	assert.Equal(t, "Enter a valid phone number", errs["phone"])
	assert.Equal(t, "Role is required", errs["role"])
	assert.Equal(t, "Password is required", errs["password"])
}

func TestValidateAcceptsValidForm(t *testing.T) {
	values := map[string]string{
		"name":     "Ama Mensah",
		"email":    "ama@dennislaw.com",
		"phone":    "+233 (24) 123-4567",
		"role":     "user",
		"password": "s3cretpass",
	}
	assert.Empty(t, users.Validate(values, true))
}

func TestValidateSkipsCreateOnlyFieldsOnUpdate(t *testing.T) {
	values := map[string]string{"name": "Ama", "email": "a@b.co", "role": "admin"}
	assert.Empty(t, users.Validate(values, false))
}

func TestValidateEmailIsLoose(t *testing.T) {
	for _, email := range []string{"a@b.c", "first.last@court.gov.gh"} {
		assert.Empty(t, users.Validate(map[string]string{"name": "x", "email": email, "role": "user"}, false), email)
	}
	for _, email := range []string{"a@b", "@.", "plain"} {
		assert.Contains(t, users.Validate(map[string]string{"name": "x", "email": email, "role": "user"}, false), "email", email)
	}
}

func TestPayload(t *testing.T) {
	payload := users.Payload(map[string]string{
		"name":        "  Ama ",
		"email":       "ama@dennislaw.com",
		"role":        "user",
		"password":    " padded pass ",
		"is_verified": "on",
	}, true)
	assert.Equal(t, "Ama", payload["name"])
	assert.Equal(t, " padded pass ", payload["password"])
	assert.Equal(t, true, payload["is_verified"])

	update := users.Payload(map[string]string{"name": "Ama", "password": "ignored"}, false)
	assert.NotContains(t, update, "password")
	assert.Equal(t, false, update["is_verified"])
}
