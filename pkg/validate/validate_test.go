package validate_test

import (
	"testing"

	"github.com/feirahub/feira/pkg/validate"
)

type signupInput struct {
	Name    string `json:"name"     validate:"required,alpha_dash,min=2,max=50"`
	Email   string `json:"email"    validate:"required,email"`
	Age     int    `json:"age"      validate:"required,gte=18"`
	Role    string `json:"role"     validate:"required,in=buyer,shopowner,courier"`
	Website string `json:"website"  validate:"nullable,url"`
}

func TestValidInput(t *testing.T) {
	errs := validate.Struct(signupInput{
		Name:    "joao_silva",
		Email:   "joao@example.com",
		Age:     25,
		Role:    "buyer",
		Website: "", // nullable — allowed to be empty
	})
	if validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(signupInput{})
	if !validate.HasErrors(errs) {
		t.Error("expected required errors")
	}
	if _, ok := errs["name"]; !ok {
		t.Error("expected name to be required")
	}
	if _, ok := errs["email"]; !ok {
		t.Error("expected email to be required")
	}
}

func TestEmailRule(t *testing.T) {
	type in struct {
		Email string `json:"email" validate:"required,email"`
	}
	errs := validate.Struct(in{Email: "not-an-email"})
	if _, ok := errs["email"]; !ok {
		t.Error("expected email validation error")
	}
	errs = validate.Struct(in{Email: "valid@example.com"})
	if validate.HasErrors(errs) {
		t.Errorf("expected valid email to pass, got: %v", errs)
	}
}

func TestNumericBounds(t *testing.T) {
	type in struct {
		Quantity int `json:"quantity" validate:"required,gte=1"`
	}
	if errs := validate.Struct(in{Quantity: -2}); !validate.HasErrors(errs) {
		t.Error("expected negative quantity to fail")
	}
	if errs := validate.Struct(in{Quantity: 3}); validate.HasErrors(errs) {
		t.Errorf("expected quantity 3 to pass, got: %v", errs)
	}
}

func TestGreaterThanRule(t *testing.T) {
	type in struct {
		Price float64 `json:"price" validate:"required,gt=0"`
	}
	if errs := validate.Struct(in{Price: -1}); !validate.HasErrors(errs) {
		t.Error("expected negative price to fail")
	}
	if errs := validate.Struct(in{Price: 9.90}); validate.HasErrors(errs) {
		t.Errorf("expected positive price to pass: %v", errs)
	}
}

func TestInRule(t *testing.T) {
	type in struct {
		Method string `json:"payment_method" validate:"required,in=pix,card,cash"`
	}
	if errs := validate.Struct(in{Method: "cheque"}); !validate.HasErrors(errs) {
		t.Error("expected unknown payment method to fail")
	}
	if errs := validate.Struct(in{Method: "pix"}); validate.HasErrors(errs) {
		t.Errorf("expected pix to pass: %v", errs)
	}
}

func TestInRuleFollowedByAnotherRule(t *testing.T) {
	type in struct {
		Role string `json:"role" validate:"required,in=buyer,courier,max=20"`
	}
	if errs := validate.Struct(in{Role: "courier"}); validate.HasErrors(errs) {
		t.Errorf("expected courier to pass: %v", errs)
	}
	if errs := validate.Struct(in{Role: "admin"}); !validate.HasErrors(errs) {
		t.Error("expected value outside the list to fail")
	}
}

func TestStringLengthBounds(t *testing.T) {
	type in struct {
		Name string `json:"name" validate:"required,min=2,max=5"`
	}
	if errs := validate.Struct(in{Name: "a"}); !validate.HasErrors(errs) {
		t.Error("expected one-character name to fail min")
	}
	if errs := validate.Struct(in{Name: "abcdef"}); !validate.HasErrors(errs) {
		t.Error("expected six-character name to fail max")
	}
	if errs := validate.Struct(in{Name: "ana"}); validate.HasErrors(errs) {
		t.Errorf("expected short name to pass: %v", errs)
	}
}

func TestNullableSkipsRules(t *testing.T) {
	type in struct {
		Website string `json:"website" validate:"nullable,url"`
	}
	// Empty string — nullable, should pass even though it's not a URL
	if errs := validate.Struct(in{Website: ""}); validate.HasErrors(errs) {
		t.Errorf("expected empty nullable to pass: %v", errs)
	}
	// Non-empty but invalid URL — should fail
	if errs := validate.Struct(in{Website: "not-a-url"}); !validate.HasErrors(errs) {
		t.Error("expected invalid URL to fail")
	}
}

func TestURLRule(t *testing.T) {
	type in struct {
		Site string `json:"site" validate:"required,url"`
	}
	if errs := validate.Struct(in{Site: "https://feira.dev"}); validate.HasErrors(errs) {
		t.Errorf("expected valid URL to pass: %v", errs)
	}
	if errs := validate.Struct(in{Site: "not-a-url"}); !validate.HasErrors(errs) {
		t.Error("expected invalid URL to fail")
	}
}

func TestIntegerRule(t *testing.T) {
	type in struct {
		Page string `json:"page" validate:"integer"`
	}
	if errs := validate.Struct(in{Page: "3"}); validate.HasErrors(errs) {
		t.Errorf("expected integer string to pass: %v", errs)
	}
	if errs := validate.Struct(in{Page: "three"}); !validate.HasErrors(errs) {
		t.Error("expected non-integer string to fail")
	}
}

func TestAlphaDashRule(t *testing.T) {
	type in struct {
		Slug string `json:"slug" validate:"required,alpha_dash"`
	}
	if errs := validate.Struct(in{Slug: "feira-centro_123"}); validate.HasErrors(errs) {
		t.Errorf("expected alpha_dash to pass: %v", errs)
	}
	if errs := validate.Struct(in{Slug: "feira centro!"}); !validate.HasErrors(errs) {
		t.Error("expected alpha_dash to fail for spaces/punctuation")
	}
}
