package habit

import (
	"fmt"
	"time"
	// User zones must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"
	"unicode/utf8"
)

const (
	minFullNameLength = 3
	maxFullNameLength = 100
)

// UserProfile is what is known about an account besides its habits. An
// empty Timezone means the server's zone.
type UserProfile struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	FullName   string    `json:"full_name,omitempty"`
	PictureURL string    `json:"picture_url,omitempty"`
	Timezone   string    `json:"timezone,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserUpdate carries the fields a user may change themselves.
type UserUpdate struct {
	FullName *string `json:"full_name,omitempty"`
	Timezone *string `json:"timezone,omitempty"`
}

func (u UserUpdate) Validate() error {
	if u.FullName != nil {
		if n := utf8.RuneCountInString(*u.FullName); n < minFullNameLength || n > maxFullNameLength {
			return fmt.Errorf("bad full name: must be %d-%d characters", minFullNameLength, maxFullNameLength)
		}
	}
	if u.Timezone != nil {
		if _, err := LoadLocation(*u.Timezone); err != nil {
			return err
		}
	}
	return nil
}

// Apply merges the set fields of u into p.
func (p *UserProfile) Apply(u UserUpdate) {
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.Timezone != nil {
		p.Timezone = *u.Timezone
	}
}

// Location is the profile's zone, or nil when none is set or it no longer
// loads.
func (p UserProfile) Location() *time.Location {
	if p.Timezone == "" {
		return nil
	}
	loc, err := LoadLocation(p.Timezone)
	if err != nil {
		return nil
	}
	return loc
}

// LoadLocation loads an IANA zone name. Unlike time.LoadLocation it rejects
// "" and "Local", which would silently mean the server's zone.
func LoadLocation(name string) (*time.Location, error) {
	if len(name) < 3 || name == "Local" {
		return nil, fmt.Errorf("bad timezone %q: want an IANA name such as Europe/Dublin", name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("bad timezone %q: %w", name, err)
	}
	return loc, nil
}
