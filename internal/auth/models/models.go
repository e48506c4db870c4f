package models

import (
	"math"
	"time"

	id "fithub/pkg/domain"
)

// Pure domain entities for authentication. JSON shapes live in responses.go.

// UnknownValue is stored when a session's device or IP cannot be determined.
const UnknownValue = "Unknown"

// Profile is the optional fitness data captured at sign-up.
type Profile struct {
	Age               *int
	Gender            string
	Height            *float64 // cm
	Weight            *float64 // kg
	FitnessGoal       string
	DietaryPreference string
	MedicalIssues     string
}

// User is an account. PasswordHash never leaves the service layer.
type User struct {
	ID           id.UserID
	PublicID     string // 8-digit number shown in the app
	Name         string
	Email        string
	PasswordHash string
	Profile      Profile
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is one login-to-logout span on a device.
type Session struct {
	ID              id.SessionID
	UserID          id.UserID
	LoginTime       time.Time
	LogoutTime      *time.Time
	DurationMinutes *int
	DeviceInfo      string
	IPAddress       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewSession opens a session at loginTime, substituting UnknownValue for blank metadata.
func NewSession(userID id.UserID, loginTime time.Time, deviceInfo, ipAddress string) *Session {
	if deviceInfo == "" {
		deviceInfo = UnknownValue
	}
	if ipAddress == "" {
		ipAddress = UnknownValue
	}
	return &Session{
		ID:         id.NewSessionID(),
		UserID:     userID,
		LoginTime:  loginTime,
		DeviceInfo: deviceInfo,
		IPAddress:  ipAddress,
		CreatedAt:  loginTime,
		UpdatedAt:  loginTime,
	}
}

func (s *Session) IsActive() bool {
	return s.LogoutTime == nil
}

// End closes the session at the given time. It returns false when the
// session was already ended, leaving the record untouched.
func (s *Session) End(at time.Time) bool {
	if !s.IsActive() {
		return false
	}
	duration := DurationMinutes(s.LoginTime, at)
	s.LogoutTime = &at
	s.DurationMinutes = &duration
	s.UpdatedAt = at
	return true
}

// DurationMinutes rounds the span between login and logout to whole minutes.
// Clock skew that puts logout before login yields 0.
func DurationMinutes(login, logout time.Time) int {
	return RoundMinutes(logout.Sub(login))
}

// RoundMinutes rounds d to the nearest whole minute, never below zero.
func RoundMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Minutes()))
}
