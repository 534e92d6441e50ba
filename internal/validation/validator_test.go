// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package validation

import (
	"errors"
	"strings"
	"testing"
)

type batchPayload struct {
	ProviderAttractionIDs []string `json:"providerAttractionIds" validate:"required,min=1,max=3,dive,provider_id"`
	Concurrency           int      `json:"concurrency,omitempty" validate:"omitempty,gte=1,lte=50"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator returned different instances")
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     batchPayload
		wantField string
		wantMsg   string
	}{
		{name: "valid", input: batchPayload{ProviderAttractionIDs: []string{"K8vZ917", "abc_1-2"}}},
		{name: "valid with concurrency", input: batchPayload{ProviderAttractionIDs: []string{"a"}, Concurrency: 50}},
		{name: "missing ids", input: batchPayload{}, wantField: "providerAttractionIds", wantMsg: "providerAttractionIds is required"},
		{name: "empty ids", input: batchPayload{ProviderAttractionIDs: []string{}}, wantField: "providerAttractionIds", wantMsg: "at least 1 entries"},
		{name: "too many ids", input: batchPayload{ProviderAttractionIDs: []string{"a", "b", "c", "d"}}, wantField: "providerAttractionIds", wantMsg: "at most 3 entries"},
		{name: "bad id", input: batchPayload{ProviderAttractionIDs: []string{"ok", "no spaces"}}, wantField: "providerAttractionIds[1]", wantMsg: "letters, digits"},
		{name: "concurrency cap", input: batchPayload{ProviderAttractionIDs: []string{"a"}, Concurrency: 51}, wantField: "concurrency", wantMsg: "less than or equal to 50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct: %v", err)
				}
				return
			}
			var ve *RequestValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *RequestValidationError", err)
			}
			msg, ok := ve.Fields()[tt.wantField]
			if !ok {
				t.Fatalf("fields = %v, want %s", ve.Fields(), tt.wantField)
			}
			if !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestRequestValidationError_JoinsMessages(t *testing.T) {
	type pair struct {
		A string `json:"a" validate:"required"`
		B string `json:"b" validate:"required"`
	}
	err := ValidateStruct(&pair{})
	if err == nil {
		t.Fatal("want error")
	}
	if got := err.Error(); got != "a is required; b is required" {
		t.Errorf("Error() = %q", got)
	}
}
