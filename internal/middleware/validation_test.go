package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	CartID   string `json:"cart_id" validate:"omitempty,mongodb"`
}

func TestProperty_RequiredFieldValidationWorks(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("missing required fields are rejected", prop.ForAll(
		func(withEmail, withPassword bool) bool {
			body := map[string]interface{}{}
			if withEmail {
				body["email"] = "ana@shop.com"
			}
			if withPassword {
				body["password"] = "secret1"
			}
			raw, _ := json.Marshal(body)
			req := httptest.NewRequest("POST", "/api/sessions/login", bytes.NewReader(raw))

			var form loginForm
			err := DecodeAndValidate(req, &form)
			if withEmail && withPassword {
				return err == nil
			}
			return err != nil && len(FormatValidationErrors(err)) > 0
		},
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestFormatValidationErrors_UsesJSONNames(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"nope","password":"x","cart_id":"123"}`))

	var form loginForm
	err := DecodeAndValidate(req, &form)
	require.Error(t, err)

	errs := FormatValidationErrors(err)
	require.Len(t, errs, 2)
	assert.Equal(t, ValidationError{Field: "email", Message: "Invalid email format"}, errs[0])
	assert.Equal(t, "cart_id", errs[1].Field)
}

func TestDecodeAndValidate_MalformedBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":`))

	var form loginForm
	err := DecodeAndValidate(req, &form)
	assert.True(t, errors.Is(err, ErrMalformedBody))

	w := httptest.NewRecorder()
	RespondWithRequestError(w, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "invalid request body", response.Message)
	assert.Nil(t, response.Details)
}

func TestRespondWithRequestError_ListsFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{}`))
	var form loginForm
	err := DecodeAndValidate(req, &form)

	w := httptest.NewRecorder()
	RespondWithRequestError(w, err)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "validation failed", response.Message)
	assert.Len(t, response.Details["validation_errors"], 2)
}
