package validation

import "testing"

type signup struct {
	Email    string `json:"email" validate:"required,max=255,email"`
	Password string `json:"password" validate:"min=8"`
	Nickname string `json:"nickname,omitempty" validate:"omitempty,max=5"`
	Internal string `json:"-"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	fields, err := Struct(signup{Email: "nope", Password: "short", Nickname: "toolongname"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{
		"email":    "must be a valid email address",
		"password": "must be at least 8 characters",
		"nickname": "must be at most 5 characters",
	}
	if len(fields) != len(want) {
		t.Fatalf("unexpected fields: %+v", fields)
	}
	for k, v := range want {
		if fields[k] != v {
			t.Fatalf("field %s: got %q, want %q", k, fields[k], v)
		}
	}
}

func TestStructAcceptsValidInput(t *testing.T) {
	fields, err := Struct(signup{Email: "ada@example.com", Password: "correct horse"})
	if err != nil || fields != nil {
		t.Fatalf("unexpected result: %+v, %v", fields, err)
	}
}

func TestStructCountsRunesForLength(t *testing.T) {
	fields, err := Struct(signup{Email: "ada@example.com", Password: "correct horse", Nickname: "ñañañ"})
	if err != nil || fields != nil {
		t.Fatalf("five runes should fit: %+v, %v", fields, err)
	}
}
