package models

import "time"

// Transport-layer JSON shapes. Field names are camelCase to match the mobile client.

// UserResult is the public view of a user. It never carries the password hash.
type UserResult struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Age               *int      `json:"age,omitempty"`
	Gender            string    `json:"gender,omitempty"`
	Height            *float64  `json:"height,omitempty"`
	Weight            *float64  `json:"weight,omitempty"`
	FitnessGoal       string    `json:"fitnessGoal,omitempty"`
	DietaryPreference string    `json:"dietaryPreference,omitempty"`
	MedicalIssues     string    `json:"medicalIssues,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// NewUserResult maps a domain user to its public view.
func NewUserResult(u *User) *UserResult {
	return &UserResult{
		ID:                u.ID.String(),
		UserID:            u.PublicID,
		Name:              u.Name,
		Email:             u.Email,
		Age:               u.Profile.Age,
		Gender:            u.Profile.Gender,
		Height:            u.Profile.Height,
		Weight:            u.Profile.Weight,
		FitnessGoal:       u.Profile.FitnessGoal,
		DietaryPreference: u.Profile.DietaryPreference,
		MedicalIssues:     u.Profile.MedicalIssues,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User      *UserResult `json:"user"`
	Token     string      `json:"token"`
	SessionID string      `json:"sessionId"`
	Message   string      `json:"message"`
}

// ValidateResult is returned by the token validation endpoint.
type ValidateResult struct {
	User *UserResult `json:"user"`
}

// LogoutResult reports the closed session.
type LogoutResult struct {
	Message         string    `json:"message"`
	SessionID       string    `json:"sessionId"`
	LogoutTime      time.Time `json:"logoutTime"`
	SessionDuration int       `json:"sessionDuration"`
}

// SessionSummary is one row of the session history.
type SessionSummary struct {
	SessionID       string     `json:"sessionId"`
	LoginTime       time.Time  `json:"loginTime"`
	LogoutTime      *time.Time `json:"logoutTime"`
	SessionDuration *int       `json:"sessionDuration"`
	DeviceInfo      string     `json:"deviceInfo"`
	IPAddress       string     `json:"ipAddress"`
	IsActive        bool       `json:"isActive"`
	IsCurrent       bool       `json:"isCurrent"`
}

// NewSessionSummary maps a session; current marks the caller's own session.
func NewSessionSummary(s *Session, current bool) SessionSummary {
	return SessionSummary{
		SessionID:       s.ID.String(),
		LoginTime:       s.LoginTime,
		LogoutTime:      s.LogoutTime,
		SessionDuration: s.DurationMinutes,
		DeviceInfo:      s.DeviceInfo,
		IPAddress:       s.IPAddress,
		IsActive:        s.IsActive(),
		IsCurrent:       current,
	}
}

// SessionsResult lists the caller's sessions, newest first.
type SessionsResult struct {
	Sessions []SessionSummary `json:"sessions"`
}
