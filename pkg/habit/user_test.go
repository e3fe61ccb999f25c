package habit

import (
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestUserUpdate_Validate(t *testing.T) {
	valid := map[string]UserUpdate{
		"empty":    {},
		"name":     {FullName: strPtr("Ada Lovelace")},
		"timezone": {Timezone: strPtr("America/Los_Angeles")},
		"utc":      {Timezone: strPtr("UTC")},
	}
	for name, u := range valid {
		if err := u.Validate(); err != nil {
			t.Errorf("%s: unexpected error: %v", name, err)
		}
	}

	invalid := map[string]UserUpdate{
		"short name":   {FullName: strPtr("Al")},
		"long name":    {FullName: strPtr(strings.Repeat("x", 101))},
		"unknown zone": {Timezone: strPtr("Mars/Olympus")},
		"short zone":   {Timezone: strPtr("XY")},
		"local zone":   {Timezone: strPtr("Local")},
		"empty zone":   {Timezone: strPtr("")},
	}
	for name, u := range invalid {
		if err := u.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestUserProfile_ApplyAndLocation(t *testing.T) {
	p := UserProfile{UserID: "u1", FullName: "Ada", Timezone: "Europe/Dublin"}
	if p.Location() == nil || p.Location().String() != "Europe/Dublin" {
		t.Fatalf("got location %v", p.Location())
	}

	p.Apply(UserUpdate{Timezone: strPtr("Asia/Tokyo")})
	if p.FullName != "Ada" || p.Timezone != "Asia/Tokyo" {
		t.Fatalf("got %+v", p)
	}

	if loc := (UserProfile{}).Location(); loc != nil {
		t.Fatalf("profile without timezone should have no location, got %v", loc)
	}
}
