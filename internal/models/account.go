package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient    Role = "PATIENT"
	RoleDoctor     Role = "DOCTOR"
	RolePharmacist Role = "PHARMACIST"
	RoleAdmin      Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RolePharmacist, RoleAdmin:
		return true
	}
	return false
}

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Account is a registered user. Rows are never hard-deleted; Deleted hides the
// account from login and profile operations.
type Account struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Name            string     `json:"name"`
	Role            Role       `json:"role"`
	Approved        bool       `json:"approved"`
	EmailVerified   bool       `json:"email_verified"`
	Deleted         bool       `json:"-"`
	Phone           *string    `json:"phone,omitempty"`
	DOB             *time.Time `json:"dob,omitempty"`
	Address         *string    `json:"address,omitempty"`
	Gender          *Gender    `json:"gender,omitempty"`
	ProfileImageURL *string    `json:"profile_image_url,omitempty"`
	Version         int64      `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}
