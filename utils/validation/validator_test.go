package validation

import "testing"

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"agent@example.com",
		"first.last@sub.domain.co",
		"user+tag@example.org",
	}
	for _, email := range valid {
		if !ValidateEmail(email) {
			t.Errorf("expected %q to be valid", email)
		}
	}

	invalid := []string{
		"",
		"no-at-sign",
		"@example.com",
		"user@",
		"user@domain",
		"user @example.com",
	}
	for _, email := range invalid {
		if ValidateEmail(email) {
			t.Errorf("expected %q to be invalid", email)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if ok, errs := ValidatePassword("secure-pass-1"); !ok {
		t.Errorf("expected valid password, got %v", errs)
	}

	if ok, errs := ValidatePassword("short"); ok || len(errs) == 0 {
		t.Error("expected short password to fail")
	}

	if ok, errs := ValidatePassword("12345678"); ok || len(errs) == 0 {
		t.Error("expected all-digit password to fail the letter requirement")
	}
}

func TestFormatValidationErrors(t *testing.T) {
	type sample struct {
		Email string `validate:"required,email"`
		Name  string `validate:"required"`
	}

	v := NewValidator()
	err := v.ValidateStruct(sample{Email: "not-an-email"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	fields := FormatValidationErrors(err)
	if fields["email"] != "Invalid email format" {
		t.Errorf("unexpected email message %q", fields["email"])
	}
	if fields["name"] == "" {
		t.Error("expected a required-field message for name")
	}
}
