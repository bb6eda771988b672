// Package validator checks citizen-submitted report and emergency input.
package validator

import (
	"math"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/civicdesk/api/internal/model"
)

const (
	MinTitleLength       = 3
	MaxTitleLength       = 200
	MinDescriptionLength = 10
	MaxDescriptionLength = 5000
	MaxAddressLength     = 500
	MaxNameLength        = 100
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]*[0-9]$`)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors collects every failed field of one input.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(parts, "; ")
}

func (e *Errors) add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

func (e Errors) err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Report validates a civic issue report.
func Report(title, description string, loc model.Location) error {
	var errs Errors
	checkLength(&errs, "title", title, MinTitleLength, MaxTitleLength)
	checkLength(&errs, "description", description, MinDescriptionLength, MaxDescriptionLength)
	checkLocation(&errs, loc)
	return errs.err()
}

// Emergency validates an emergency submission. The description is optional
// since callers in distress may only provide a type and a phone number.
func Emergency(t model.EmergencyType, description, contactNumber string, loc model.Location) error {
	var errs Errors
	if !IsEmergencyType(t) {
		errs.add("type", "must be one of police, medical, fire, disaster")
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		errs.add("description", "is too long")
	}
	if !IsPhoneNumber(contactNumber) {
		errs.add("contactNumber", "must be a valid phone number")
	}
	checkLocation(&errs, loc)
	return errs.err()
}

// Registration validates a self-service citizen sign up.
func Registration(email, name, phone string) error {
	var errs Errors
	if !IsEmail(email) {
		errs.add("email", "must be a valid email address")
	}
	checkLength(&errs, "name", name, 1, MaxNameLength)
	if phone != "" && !IsPhoneNumber(phone) {
		errs.add("phone", "must be a valid phone number")
	}
	return errs.err()
}

func IsEmergencyType(t model.EmergencyType) bool {
	for _, v := range model.EmergencyTypes {
		if v == t {
			return true
		}
	}
	return false
}

// IsPhoneNumber accepts 6 to 15 digits with optional leading +, spaces,
// dashes and parentheses.
func IsPhoneNumber(s string) bool {
	s = strings.TrimSpace(s)
	if !phonePattern.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 6 && digits <= 15
}

func IsEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s, "@")
}

func checkLength(errs *Errors, field, value string, min, max int) {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	switch {
	case n == 0:
		errs.add(field, "is required")
	case n < min:
		errs.add(field, "is too short")
	case n > max:
		errs.add(field, "is too long")
	}
}

func checkLocation(errs *Errors, loc model.Location) {
	if math.IsNaN(loc.Latitude) || loc.Latitude < -90 || loc.Latitude > 90 {
		errs.add("latitude", "must be between -90 and 90")
	}
	if math.IsNaN(loc.Longitude) || loc.Longitude < -180 || loc.Longitude > 180 {
		errs.add("longitude", "must be between -180 and 180")
	}
	if utf8.RuneCountInString(loc.Address) > MaxAddressLength {
		errs.add("address", "is too long")
	}
}
