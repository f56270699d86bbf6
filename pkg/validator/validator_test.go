package validator

import (
	"errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	v := New()
	if v == nil || v.validate == nil {
		t.Fatal("expected validator to be initialized")
	}
}

type contactForm struct {
	Name    string `json:"name" validate:"required,max=100,safe_text"`
	Email   string `json:"email" validate:"required,email_addr"`
	Website string `json:"website,omitempty" validate:"omitempty,http_url"`
	FormID  string `json:"form_id" validate:"required,slug"`
}

func TestValidate_ContactForm(t *testing.T) {
	v := New()
	valid := contactForm{Name: "Aiko", Email: "aiko@example.jp", Website: "https://aiko.example", FormID: "spring-workshop"}

	tests := []struct {
		name      string
		mutate    func(*contactForm)
		wantField string
	}{
		{name: "valid", mutate: func(*contactForm) {}},
		{name: "missing name", mutate: func(f *contactForm) { f.Name = "" }, wantField: "name"},
		{name: "script in name", mutate: func(f *contactForm) { f.Name = "<script>x</script>" }, wantField: "name"},
		{name: "bad email", mutate: func(f *contactForm) { f.Email = "not-an-email" }, wantField: "email"},
		{name: "long email", mutate: func(f *contactForm) { f.Email = strings.Repeat("a", 250) + "@b.com" }, wantField: "email"},
		{name: "javascript url", mutate: func(f *contactForm) { f.Website = "javascript:alert(1)" }, wantField: "website"},
		{name: "empty website allowed", mutate: func(f *contactForm) { f.Website = "" }},
		{name: "bad slug", mutate: func(f *contactForm) { f.FormID = "../admin" }, wantField: "form_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := v.Validate(in)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q", verrs[0].Field, tt.wantField)
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}}
	if got := errs.Error(); got != "a: x; b: y" {
		t.Errorf("Error() = %q", got)
	}
	if (ValidationErrors{}).Error() != "" {
		t.Error("expected empty string")
	}
}

func TestVar(t *testing.T) {
	v := New()
	if err := v.Var("a@b.co", "email_addr"); err != nil {
		t.Errorf("unexpected: %v", err)
	}
	if err := v.Var("nope", "email_addr"); err == nil {
		t.Error("expected error")
	}
}
