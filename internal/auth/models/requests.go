package models

import (
	"fmt"

	"fithub/internal/auth/email"
	id "fithub/pkg/domain"
	dErrors "fithub/pkg/domain-errors"
	s "fithub/pkg/string"
	"fithub/pkg/validation"
)

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Email             string   `json:"email"`
	Password          string   `json:"password"`
	Name              string   `json:"name" validate:"notblank,max=100"`
	Age               *int     `json:"age,omitempty" validate:"omitempty,gt=0,lt=150"`
	Gender            string   `json:"gender,omitempty" validate:"max=50"`
	Height            *float64 `json:"height,omitempty" validate:"omitempty,gt=0,lt=300"`
	Weight            *float64 `json:"weight,omitempty" validate:"omitempty,gt=0,lt=700"`
	FitnessGoal       string   `json:"fitnessGoal,omitempty" validate:"max=500"`
	DietaryPreference string   `json:"dietaryPreference,omitempty" validate:"max=500"`
	MedicalIssues     string   `json:"medicalIssues,omitempty" validate:"max=500"`
	DeviceInfo        string   `json:"deviceInfo,omitempty"`
}

// Normalize trims text fields and canonicalizes the email. Passwords are left as typed.
func (r *RegisterRequest) Normalize() {
	r.Email = email.Normalize(r.Email)
	s.TrimStrings(&r.Name, &r.Gender, &r.FitnessGoal, &r.DietaryPreference, &r.MedicalIssues, &r.DeviceInfo)
	r.DeviceInfo = s.Truncate(r.DeviceInfo, validation.MaxDeviceInfoLength)
}

// Validate checks the email first so the app can flag that field before any other.
func (r *RegisterRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if err := validatePassword(r.Password); err != nil {
		return err
	}
	if len(r.Password) < validation.MinPasswordBytes {
		return dErrors.NewField(dErrors.CodeValidation, "password",
			fmt.Sprintf("password must be at least %d characters", validation.MinPasswordBytes))
	}
	return validation.Validate(r)
}

// Profile extracts the optional fitness data.
func (r *RegisterRequest) Profile() Profile {
	return Profile{
		Age:               r.Age,
		Gender:            r.Gender,
		Height:            r.Height,
		Weight:            r.Weight,
		FitnessGoal:       r.FitnessGoal,
		DietaryPreference: r.DietaryPreference,
		MedicalIssues:     r.MedicalIssues,
	}
}

// LoginRequest is the sign-in payload.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceInfo string `json:"deviceInfo,omitempty"`
}

func (r *LoginRequest) Normalize() {
	r.Email = email.Normalize(r.Email)
	s.TrimStrings(&r.DeviceInfo)
	r.DeviceInfo = s.Truncate(r.DeviceInfo, validation.MaxDeviceInfoLength)
}

// Validate rejects passwords bcrypt would truncate, so a longer password
// sharing the first 72 bytes of the real one never reaches the hash compare.
func (r *LoginRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	return validatePassword(r.Password)
}

// LogoutRequest names the session to end.
type LogoutRequest struct {
	SessionID string `json:"sessionId"`
}

func (r *LogoutRequest) Normalize() {
	s.TrimStrings(&r.SessionID)
}

func (r *LogoutRequest) Validate() error {
	if r.SessionID == "" {
		return dErrors.NewField(dErrors.CodeValidation, "sessionId", "Session ID is required")
	}
	return nil
}

// ParsedSessionID converts the validated session ID to its typed form.
func (r *LogoutRequest) ParsedSessionID() (id.SessionID, error) {
	sessionID, err := id.ParseSessionID(r.SessionID)
	if err != nil {
		return id.SessionID{}, dErrors.NewField(dErrors.CodeBadRequest, "sessionId", "Invalid session ID")
	}
	return sessionID, nil
}

// validatePassword measures length in bytes, not runes.
func validatePassword(password string) error {
	if password == "" {
		return dErrors.NewField(dErrors.CodeValidation, "password", "password is required")
	}
	if len(password) > validation.MaxPasswordBytes {
		return dErrors.NewField(dErrors.CodeValidation, "password",
			fmt.Sprintf("password must be at most %d bytes", validation.MaxPasswordBytes))
	}
	return nil
}

func validateEmail(address string) error {
	if address == "" {
		return dErrors.NewField(dErrors.CodeValidation, "email", "Email is required")
	}
	if len(address) > validation.MaxEmailLength || !email.IsValidEmail(address) {
		return dErrors.NewField(dErrors.CodeValidation, "email", "Invalid email format")
	}
	return nil
}
