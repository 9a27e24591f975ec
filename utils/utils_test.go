package utils_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/grampanchayat/villagestats_backend/utils"
)

func TestErrorTaxonomy(t *testing.T) {
	nf := utils.NewNotFoundError("village", "v9")
	if !errors.Is(nf, utils.ErrorRecordNotFound) || !utils.IsNotFound(fmt.Errorf("wrapped: %w", nf)) {
		t.Fatalf("NotFoundError must match ErrorRecordNotFound through wrapping")
	}

	cause := errors.New("quota exceeded")
	se := utils.WrapStoreError("list villages", cause)
	if !utils.IsStoreError(se) || !errors.Is(se, cause) {
		t.Fatalf("StoreError must unwrap to its cause, got %v", se)
	}
	if utils.WrapStoreError("op", nil) != nil {
		t.Fatalf("WrapStoreError(nil) must be nil")
	}
	ve := utils.NewValidationError("year", "must be between %d and %d", 1900, 2100)
	if got := utils.WrapStoreError("op", ve); got != ve {
		t.Fatalf("validation errors must pass through unchanged")
	}

	du := &utils.DataUnavailableError{Year: 2024}
	if du.Error() != "No data available for year 2024" || !utils.IsDataUnavailable(du) {
		t.Fatalf("unexpected DataUnavailableError message %q", du.Error())
	}
}

func TestGenerateSecurePassword(t *testing.T) {
	for _, length := range []int{0, 4, 16, 32} {
		pw, err := utils.GenerateSecurePassword(length)
		if err != nil {
			t.Fatalf("GenerateSecurePassword(%d) error: %v", length, err)
		}
		expected := length
		if length == 0 {
			expected = utils.DefaultPasswordLength
		}
		if len(pw) != expected {
			t.Fatalf("expected length %d, got %d", expected, len(pw))
		}
		for _, set := range []string{"ABCDEFGHIJKLMNOPQRSTUVWXYZ", "abcdefghijklmnopqrstuvwxyz", "0123456789", "!@#$%^&*()_+-=[]{}|;:,.<>?"} {
			if !strings.ContainsAny(pw, set) {
				t.Fatalf("password %q misses a character from %q", pw, set)
			}
		}
	}
	if _, err := utils.GenerateSecurePassword(3); err == nil {
		t.Fatalf("expected error for length 3")
	}
}

type sample struct {
	Name  string `json:"nameEn" validate:"notblank"`
	Count int    `json:"maleCount" validate:"gte=0"`
	Cat   string `json:"category" validate:"oneof=ST SC OBC OTHER"`
}

func TestValidateStruct(t *testing.T) {
	cases := []struct {
		in    sample
		field string
	}{
		{sample{Name: "Wagholi", Count: 1, Cat: "ST"}, ""},
		{sample{Name: "   ", Count: 1, Cat: "ST"}, "nameEn"},
		{sample{Name: "A", Count: -1, Cat: "SC"}, "maleCount"},
		{sample{Name: "A", Count: 0, Cat: "GEN"}, "category"},
	}
	for _, tc := range cases {
		err := utils.ValidateStruct(tc.in)
		if tc.field == "" {
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			continue
		}
		var ve *utils.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected ValidationError for %+v, got %v", tc.in, err)
		}
		if ve.Field != tc.field {
			t.Fatalf("expected field %s, got %s", tc.field, ve.Field)
		}
	}
}

func TestJwtRoundTrip(t *testing.T) {
	t.Setenv("API_SECRET", "test-secret")
	token, err := utils.JwtGenerate("admin@gp.in", "gp1", "admin")
	if err != nil {
		t.Fatalf("JwtGenerate error: %v", err)
	}
	parsed, err := utils.JwtValidate(token)
	if err != nil || !parsed.Valid {
		t.Fatalf("JwtValidate error: %v", err)
	}
	claims := parsed.Claims.(*utils.JwtCustomClaim)
	if claims.TenantId != "gp1" || claims.Role != "admin" || claims.Email != "admin@gp.in" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	t.Setenv("API_SECRET", "other-secret")
	if _, err := utils.JwtValidate(token); err == nil {
		t.Fatalf("token signed with another secret must not validate")
	}
}

func TestNormalizePhoneNumber(t *testing.T) {
	got, err := utils.NormalizePhoneNumber("98220 12345", "IN")
	if err != nil {
		t.Fatalf("NormalizePhoneNumber error: %v", err)
	}
	if got != "+919822012345" {
		t.Fatalf("expected +919822012345, got %s", got)
	}
	if _, err := utils.NormalizePhoneNumber("12", "IN"); err == nil {
		t.Fatalf("expected error for short number")
	}
}

func TestPasswordHashing(t *testing.T) {
	hashed, err := utils.HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if err := utils.ComparePassword(string(hashed), "s3cret!"); err != nil {
		t.Fatalf("ComparePassword should accept the original password: %v", err)
	}
	if err := utils.ComparePassword(string(hashed), "wrong"); err == nil {
		t.Fatalf("ComparePassword should reject a wrong password")
	}
	if _, err := utils.HashPassword(strings.Repeat("x", 73)); !utils.IsValidationError(err) {
		t.Fatalf("expected validation error for an over-long password, got %v", err)
	}
}
