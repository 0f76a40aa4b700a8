package extractor

import (
	"testing"

	"github.com/user/mst-crawler/internal/entity"
)

func TestExtractEmptyText(t *testing.T) {
	e := New(nil)
	for _, text := range []string{"", "   ", "\n\t"} {
		if got := e.Extract(text); got != (entity.ContactInfo{}) {
			t.Errorf("Extract(%q) = %+v, expected empty", text, got)
		}
	}
}

func TestExtract(t *testing.T) {
	e := New(nil)
	tests := []struct {
		name     string
		text     string
		expected entity.ContactInfo
	}{
		{
			name:     "labelled phone and email",
			text:     "CÔNG TY ABC\nMã số doanh nghiệp: 0123456789\nĐiện thoại: 0909888777 Email: abc@xyz.com",
			expected: entity.ContactInfo{Phone: "0909888777", Email: "abc@xyz.com"},
		},
		{
			name:     "tax code without label is not a phone",
			text:     "Doanh nghiệp 0312345678 đăng ký. Tel: 028.3822.1234",
			expected: entity.ContactInfo{Phone: "02838221234"},
		},
		{
			name:     "phone with separators is normalised",
			text:     "Mã số doanh nghiệp 0101010101 Điện thoại: 090-988-8777",
			expected: entity.ContactInfo{Phone: "0909888777"},
		},
		{
			name:     "non-breaking spaces between digit groups",
			text:     "Mã số doanh nghiệp: 0123456789 Điện thoại:\u00a00909\u00a0888\u00a0777 Email:\u00a0abc@xyz.com",
			expected: entity.ContactInfo{Phone: "0909888777", Email: "abc@xyz.com"},
		},
		{
			name:     "narrow no-break space separator",
			text:     "Mã số doanh nghiệp: 0101010101\u2003Tel: 028\u202f3822\u202f1234",
			expected: entity.ContactInfo{Phone: "02838221234"},
		},
		{
			name:     "earliest valid candidate wins",
			text:     "Mã số doanh nghiệp: 0100000001 Phone: 0912345678 và 0987654321",
			expected: entity.ContactInfo{Phone: "0912345678"},
		},
		{
			name:     "candidate overlapping tax code prefix rejected",
			text:     "Mã số doanh nghiệp: 0123456789 chi nhánh 0123456789001 Điện thoại: 0241112222",
			expected: entity.ContactInfo{Phone: "0241112222"},
		},
		{
			name:     "too short numbers ignored",
			text:     "Số 12345678 ngày 2020",
			expected: entity.ContactInfo{},
		},
		{
			name:     "country code prefix accepted",
			text:     "Tel: 84912345678",
			expected: entity.ContactInfo{Phone: "84912345678"},
		},
		{
			name:     "bare email",
			text:     "Liên hệ sales.team@cong-ty.com.vn để biết thêm",
			expected: entity.ContactInfo{Email: "sales.team@cong-ty.com.vn"},
		},
		{
			name:     "labelled email preferred over earlier bare email",
			text:     "ceo@first.vn ... Email: contact@second.vn",
			expected: entity.ContactInfo{Email: "contact@second.vn"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := e.Extract(test.text); got != test.expected {
				t.Errorf("Extract() = %+v, expected %+v", got, test.expected)
			}
		})
	}
}

func TestExtractedPhoneNeverEqualsTaxCode(t *testing.T) {
	e := New(nil)
	texts := []string{
		"Mã số doanh nghiệp: 0912345678 Điện thoại: 0912345678",
		"Mã số doanh nghiệp: 0912345678 Điện thoại: 0912.345.678",
		"0912345678 Điện thoại: 0912345678",
	}
	for _, text := range texts {
		got := e.Extract(text)
		if got.Phone != "" && got.Phone == DetectTaxCode(text) {
			t.Errorf("Extract(%q) returned the tax code %q as phone", text, got.Phone)
		}
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	e := New(nil)
	text := "Mã số doanh nghiệp: 0123456789 Điện thoại: 0909 888 777 Email: abc@xyz.com"
	first := e.Extract(text)
	second := e.Extract(text)
	if first != second {
		t.Errorf("Extract not idempotent: %+v vs %+v", first, second)
	}
}

func TestDetectTaxCode(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{"Mã số doanh nghiệp: 0123456789", "0123456789"},
		{"Mã số doanh nghiệp0123456789", "0123456789"},
		{"xx 0987654321 yy", "0987654321"},
		{"0987654321", "0987654321"},
		{"09876543210", ""},
		{"no code", ""},
	}
	for _, test := range tests {
		if got := DetectTaxCode(test.text); got != test.expected {
			t.Errorf("DetectTaxCode(%q) = %q, expected %q", test.text, got, test.expected)
		}
	}
}

func TestInjectablePrefixes(t *testing.T) {
	if !New(nil).IsValidPhone("0612345678") {
		t.Error("default rules: expected 0-leading 10 digit number accepted")
	}

	strict := New([]string{"09"})
	if !strict.IsValidPhone("0912345678") {
		t.Error("expected configured prefix to be accepted")
	}
	if strict.IsValidPhone("841234567") {
		t.Error("expected 84 to be rejected when not configured")
	}
}

func TestIsValidPhone(t *testing.T) {
	e := New(nil)
	tests := []struct {
		digits string
		valid  bool
	}{
		{"0909888777", true},
		{"02838221234", true},
		{"849123456", true},
		{"12345678901", false},
		{"09098887", false},
		{"090988877766", false},
		{"09a9888777", false},
	}
	for _, test := range tests {
		if got := e.IsValidPhone(test.digits); got != test.valid {
			t.Errorf("IsValidPhone(%q) = %v, expected %v", test.digits, got, test.valid)
		}
	}
}

func TestPhoneMask(t *testing.T) {
	m := NewPhoneMask(nil)
	tests := []struct {
		value  string
		masked bool
	}{
		{"0241234567", false},
		{"", true},
		{"Bị ẩn theo yêu cầu người nộp thuế", true},
		{"0909***777", true},
		{"HIDDEN", true},
	}
	for _, test := range tests {
		if got := m.IsMasked(test.value); got != test.masked {
			t.Errorf("IsMasked(%q) = %v, expected %v", test.value, got, test.masked)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"090-988-8777", "0909888777"},
		{"028.3822.1234", "02838221234"},
		{"0909\u00a0888\u00a0777", "0909888777"},
	}
	for _, test := range tests {
		if got := NormalizePhone(test.in); got != test.expected {
			t.Errorf("NormalizePhone(%q) = %q, expected %q", test.in, got, test.expected)
		}
	}
}
