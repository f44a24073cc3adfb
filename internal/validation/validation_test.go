package validation

import (
	"errors"
	"sort"
	"strings"
	"testing"
)

// registrationFields runs the checks a sign-up payload goes through and
// returns the names of the failing fields
func registrationFields(username, password, name, email string) []string {
	var fields []string
	for _, err := range []error{
		ValidateUsername(username),
		ValidatePassword(password),
		ValidateName(name),
		ValidateEmail(email),
	} {
		var fe FieldError
		if errors.As(err, &fe) {
			fields = append(fields, fe.Field)
		}
	}
	sort.Strings(fields)
	return fields
}

func TestRegistrationPayload(t *testing.T) {
	tests := []struct {
		name       string
		username   string
		password   string
		fullName   string
		email      string
		wantFields []string
	}{
		{
			name:     "parent signing up",
			username: "priya.s",
			password: "lunchbox42",
			fullName: "Priya Sharma",
			email:    "priya@school.example.com",
		},
		{
			name:     "name with apostrophe and tagged email",
			username: "o_brien-2",
			password: "tiffin-time",
			fullName: "Aoife O'Brien",
			email:    "aoife+lunch@example.com",
		},
		{
			name:       "empty payload",
			wantFields: []string{"email", "name", "password", "username"},
		},
		{
			name:       "short password only",
			username:   "priya",
			password:   "lunch1",
			fullName:   "Priya",
			email:      "priya@example.com",
			wantFields: []string{"password"},
		},
		{
			name:       "username with space and email without domain",
			username:   "priya s",
			password:   "lunchbox42",
			fullName:   "Priya",
			email:      "priya@",
			wantFields: []string{"email", "username"},
		},
		{
			name:       "single letter name",
			username:   "p_s",
			password:   "lunchbox42",
			fullName:   "P",
			email:      "p@example.com",
			wantFields: []string{"name"},
		},
		{
			name:       "username over 32 characters",
			username:   strings.Repeat("a", 33),
			password:   "lunchbox42",
			fullName:   "Priya",
			email:      "priya@example.com",
			wantFields: []string{"username"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := registrationFields(tt.username, tt.password, tt.fullName, tt.email)
			if strings.Join(got, ",") != strings.Join(tt.wantFields, ",") {
				t.Errorf("failing fields = %v, want %v", got, tt.wantFields)
			}
		})
	}
}

func TestProfileInputsAreTrimmed(t *testing.T) {
	if err := ValidateEmail("  priya@example.com "); err != nil {
		t.Errorf("ValidateEmail() with surrounding spaces error = %v", err)
	}
	if err := ValidateName("  P  "); err == nil {
		t.Error("ValidateName() accepted a single letter padded with spaces")
	}
	if err := ValidateName("   "); err == nil || !strings.Contains(err.Error(), "required") {
		t.Errorf("ValidateName(blank) error = %v, want required", err)
	}
}

type kidRequest struct {
	Name           string `json:"name" validate:"required,max=100"`
	RollNumber     string `json:"rollNumber" validate:"required,max=50"`
	Gender         string `json:"gender" validate:"omitempty,oneof=male female other"`
	ProfilePicture string `json:"profilePicture" validate:"omitempty,url"`
}

type bulkRequest struct {
	Dates      []string `json:"dates" validate:"required,min=1,max=3"`
	MenuItemID int64    `json:"menuItemId" validate:"required,gt=0"`
	Price      int      `json:"price" validate:"gte=0"`
	Internal   string   `json:"-" validate:"omitempty,email"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name string
		req  interface{}
		want map[string]string
	}{
		{
			name: "valid kid",
			req:  kidRequest{Name: "Asha", RollNumber: "12", Gender: "female", ProfilePicture: "https://example.com/asha.png"},
		},
		{
			name: "kid missing roll number with unknown gender",
			req:  kidRequest{Name: "Asha", Gender: "unknown"},
			want: map[string]string{
				"rollNumber": "is required",
				"gender":     "must be one of: male female other",
			},
		},
		{
			name: "kid with overlong name and bad picture",
			req:  kidRequest{Name: strings.Repeat("a", 101), RollNumber: "12", ProfilePicture: "not a url"},
			want: map[string]string{
				"name":           "must be at most 100 characters",
				"profilePicture": "must be a valid URL",
			},
		},
		{
			name: "bulk without dates or menu item",
			req:  bulkRequest{},
			want: map[string]string{
				"dates":      "is required",
				"menuItemId": "is required",
			},
		},
		{
			name: "bulk over the date limit with negative price",
			req:  bulkRequest{Dates: []string{"2024-03-11", "2024-03-12", "2024-03-13", "2024-03-14"}, MenuItemID: 3, Price: -1},
			want: map[string]string{
				"dates": "must be at most 3",
				"price": "must be 0 or more",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Struct(tt.req)
			if len(got) != len(tt.want) {
				t.Fatalf("Struct() = %v, want %v", got, tt.want)
			}
			for field, msg := range tt.want {
				if got[field] != msg {
					t.Errorf("Struct()[%q] = %q, want %q", field, got[field], msg)
				}
			}
		})
	}
}
