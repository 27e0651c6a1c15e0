package validator

import "testing"

type form struct {
	Email   string   `json:"email" validate:"required,email"`
	Company string   `json:"company_name" validate:"required,notblank"`
	Issues  []string `json:"business_issues" validate:"min=1,dive,notblank"`
}

func TestFieldErrorsUseJSONNames(t *testing.T) {
	v := New()

	err := v.Struct(form{Email: "nope", Company: "   ", Issues: nil})
	if err == nil {
		t.Fatal("expected validation error")
	}

	fields := FieldErrors(err)
	want := map[string]string{
		"email":           "email",
		"company_name":    "notblank",
		"business_issues": "min",
	}
	for field, tag := range want {
		if fields[field] != tag {
			t.Errorf("field %s: got %q, want %q", field, fields[field], tag)
		}
	}
}

func TestValidFormPasses(t *testing.T) {
	v := New()
	err := v.Struct(form{Email: "owner@example.com", Company: "Acme", Issues: []string{"slow invoicing"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(FieldErrors(nil)) != 0 {
		t.Fatal("nil error has no field errors")
	}
}
