package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type addressRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone" validate:"required,min=7"`
	Pincode  string `json:"pincode" validate:"required,min=4,max=10"`
	City     string `json:"city" validate:"required"`
}

func TestProperty_RequiredFieldValidationWorks(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("missing required fields are rejected", prop.ForAll(
		func(includeName bool, includePhone bool, includeCity bool) bool {
			reqMap := make(map[string]interface{})

			if includeName {
				reqMap["full_name"] = "Asha Rao"
			}
			if includePhone {
				reqMap["phone"] = "9876543210"
			}
			if includeCity {
				reqMap["city"] = "Bengaluru"
			}
			reqMap["pincode"] = "560001"

			allFieldsPresent := includeName && includePhone && includeCity

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/test", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var body addressRequest
			err := DecodeAndValidate(req, &body)

			if allFieldsPresent {
				return err == nil
			}
			return err != nil
		},
		gen.Bool(),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ValidationErrorsAreFormatted(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("validation errors include field information", prop.ForAll(
		func() bool {
			reqMap := map[string]interface{}{
				"full_name": "Asha Rao",
				"phone":     "123", // below minimum length
				"pincode":   "560001",
				"city":      "Bengaluru",
			}

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/test", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var body addressRequest
			err := DecodeAndValidate(req, &body)

			if err == nil {
				return false
			}

			validationErrors := FormatValidationErrors(err)

			if len(validationErrors) == 0 {
				return false
			}

			for _, ve := range validationErrors {
				if ve.Field == "" || ve.Message == "" {
					return false
				}
			}

			return true
		},
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ValidRequestsPassValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid requests pass validation", prop.ForAll(
		func(seed int) bool {
			names := []string{"Asha Rao", "Vikram Iyer", "Meera Nair", "Arjun Menon"}
			cities := []string{"Bengaluru", "Chennai", "Mumbai", "Pune"}

			if seed < 0 {
				seed = -seed
			}

			reqMap := map[string]interface{}{
				"full_name": names[seed%len(names)],
				"phone":     "9876543210",
				"pincode":   "560001",
				"city":      cities[seed%len(cities)],
			}

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/test", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var body addressRequest
			err := DecodeAndValidate(req, &body)

			return err == nil
		},
		gen.Int(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestDecodeAndValidateRejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	var body addressRequest
	if err := DecodeAndValidate(req, &body); err == nil {
		t.Fatal("expected decode error for malformed JSON")
	}
}
