package validator

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/civicdesk/api/internal/model"
)

func TestReport(t *testing.T) {
	loc := model.Location{Latitude: 37.56, Longitude: 126.97, Address: "City Hall"}
	if err := Report("Pothole on Main St", "Deep pothole near the crossing", loc); err != nil {
		t.Fatalf("valid report rejected: %v", err)
	}

	err := Report("", "short", model.Location{Latitude: 91, Longitude: -181})
	var errs Errors
	if !errors.As(err, &errs) {
		t.Fatalf("expected Errors, got %v", err)
	}
	fields := map[string]bool{}
	for _, fe := range errs {
		fields[fe.Field] = true
	}
	for _, f := range []string{"title", "description", "latitude", "longitude"} {
		if !fields[f] {
			t.Errorf("missing error for %s in %v", f, err)
		}
	}
}

func TestReportTitleTooLong(t *testing.T) {
	err := Report(strings.Repeat("a", MaxTitleLength+1), "long enough description", model.Location{})
	if err == nil || !strings.Contains(err.Error(), "title: is too long") {
		t.Fatalf("expected title length error, got %v", err)
	}
}

func TestLocationRejectsNonFiniteCoordinates(t *testing.T) {
	cases := []model.Location{
		{Latitude: math.NaN(), Longitude: 126.97},
		{Latitude: 37.56, Longitude: math.NaN()},
		{Latitude: math.Inf(1), Longitude: 126.97},
		{Latitude: 37.56, Longitude: math.Inf(-1)},
	}
	for _, loc := range cases {
		if err := Report("Pothole on Main St", "Deep pothole near the crossing", loc); err == nil {
			t.Errorf("location %+v accepted", loc)
		}
		if err := Emergency(model.EmergencyFire, "", "+82 10-1234-5678", loc); err == nil {
			t.Errorf("emergency location %+v accepted", loc)
		}
	}
}

func TestEmergency(t *testing.T) {
	if err := Emergency(model.EmergencyFire, "", "+82 10-1234-5678", model.Location{}); err != nil {
		t.Fatalf("valid emergency rejected: %v", err)
	}
	err := Emergency("flood", "", "abc", model.Location{})
	if err == nil {
		t.Fatal("expected errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "type:") || !strings.Contains(msg, "contactNumber:") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestIsPhoneNumber(t *testing.T) {
	cases := map[string]bool{
		"911000":            true,
		"+1 (555) 010-9999": true,
		"12345":             false,
		"+":                 false,
		"555-CALL":          false,
		"1234567890123456":  false,
	}
	for in, want := range cases {
		if got := IsPhoneNumber(in); got != want {
			t.Errorf("IsPhoneNumber(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRegistration(t *testing.T) {
	if err := Registration("jo@example.org", "Jo", ""); err != nil {
		t.Fatalf("valid registration rejected: %v", err)
	}
	if err := Registration("Jo <jo@example.org>", "Jo", ""); err == nil {
		t.Fatal("display-name address should be rejected")
	}
	if err := Registration("jo@example.org", "", "12"); err == nil {
		t.Fatal("expected name and phone errors")
	}
}
