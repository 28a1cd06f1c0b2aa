package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type signupPayload struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := signupPayload{
		Username: "aruzhan",
		Email:    "aruzhan@example.com",
		Password: "sup3rsecret",
	}
	require.NoError(t, ValidateStruct(payload))
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	payload := signupPayload{
		Username: "ab",
		Email:    "not-an-email",
	}

	err := ValidateStruct(payload)
	require.Error(t, err)

	failures, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, failures, 3)

	fields := make(map[string]string, len(failures))
	for _, failure := range failures {
		fields[failure.Field] = failure.Tag
	}
	require.Equal(t, "min", fields["username"])
	require.Equal(t, "email", fields["email"])
	require.Equal(t, "required", fields["password"])
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{
		{Field: "username", Tag: "min", Param: "3"},
		{Field: "email", Tag: "email"},
	}
	require.Equal(t, "username failed on min=3; email failed on email", errs.Error())

	require.Equal(t, "validation failed", ValidationErrors{}.Error())
}
