package validation

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name    string   `json:"name" validate:"nonblank,max=10"`
	Email   string   `json:"email" validate:"required,email"`
	Lat     *float64 `json:"lat" validate:"omitempty,latitude"`
	Country string   `json:"countryIso2" validate:"omitempty,iso2"`
}

func TestValidateStructOK(t *testing.T) {
	lat := 40.4
	assert.NoError(t, ValidateStruct(&sample{Name: "Ana", Email: "ana@example.com", Lat: &lat, Country: "es"}))
}

func TestValidateStructErrors(t *testing.T) {
	lat := 123.0
	err := ValidateStruct(&sample{Name: "   ", Email: "nope", Lat: &lat, Country: "ESP"})
	require.Error(t, err)

	var verr *RequestValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 4)

	byField := map[string]FieldError{}
	for _, f := range verr.Fields {
		byField[f.Field] = f
	}
	assert.Equal(t, "name must not be blank", byField["name"].Message)
	assert.Equal(t, "email must be a valid email address", byField["email"].Message)
	assert.Equal(t, "lat must be a valid latitude (-90 to 90)", byField["lat"].Message)
	assert.Equal(t, "countryIso2 must be a two-letter country code", byField["countryIso2"].Message)
}

func TestMaxMessage(t *testing.T) {
	err := ValidateStruct(&sample{Name: "abcdefghijkl", Email: "a@b.co"})
	require.Error(t, err)
	assert.Equal(t, "name must be at most 10 characters", err.Error())
}

func TestSingleton(t *testing.T) {
	assert.Same(t, GetValidator(), GetValidator())
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Email string `json:"email" validate:"required,email"`
	}

	var b body
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@example.com"}`))
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), r, 1024, &b))
	assert.Equal(t, "a@example.com", b.Email)

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"email":`))
	err := DecodeJSON(httptest.NewRecorder(), r, 1024, &b)
	assert.ErrorIs(t, err, ErrInvalidBody)
	assert.Equal(t, map[string]interface{}{"error": "invalid request body"}, ErrorBody(err))

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"x"}`))
	err = DecodeJSON(httptest.NewRecorder(), r, 1024, &b)
	require.Error(t, err)
	out := ErrorBody(err)
	assert.Equal(t, "email must be a valid email address", out["error"])
	assert.Len(t, out["details"], 1)

	// 超过大小限制
	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"`+strings.Repeat("a", 2048)+`@x.io"}`))
	assert.ErrorIs(t, DecodeJSON(httptest.NewRecorder(), r, 1024, &b), ErrInvalidBody)
}
