package models

import (
	"time"

	"github.com/google/uuid"
)

// ProfileView is the composed read model returned by profile operations.
type ProfileView struct {
	ID              uuid.UUID      `json:"id"`
	Email           string         `json:"email"`
	Name            string         `json:"name"`
	Phone           *string        `json:"phone,omitempty"`
	DOB             *string        `json:"dob,omitempty"`
	Address         *string        `json:"address,omitempty"`
	Gender          *Gender        `json:"gender,omitempty"`
	ProfileImageURL *string        `json:"profileImageUrl,omitempty"`
	Role            Role           `json:"role"`
	Approved        bool           `json:"approved"`
	EmailVerified   bool           `json:"emailVerified"`
	UpdatedAt       *time.Time     `json:"updatedAt,omitempty"`
	Documents       []DocumentView `json:"documents"`
}

type DocumentView struct {
	ID        uuid.UUID    `json:"id"`
	Type      DocumentType `json:"type"`
	URL       string       `json:"url"`
	FileName  string       `json:"fileName"`
	FileSize  int64        `json:"fileSize"`
	CreatedAt time.Time    `json:"createdAt"`
}

const DateLayout = "2006-01-02"

func NewProfileView(account *Account, documents []*Document) *ProfileView {
	view := &ProfileView{
		ID:              account.ID,
		Email:           account.Email,
		Name:            account.Name,
		Phone:           account.Phone,
		Address:         account.Address,
		Gender:          account.Gender,
		ProfileImageURL: account.ProfileImageURL,
		Role:            account.Role,
		Approved:        account.Approved,
		EmailVerified:   account.EmailVerified,
		UpdatedAt:       account.UpdatedAt,
		Documents:       make([]DocumentView, 0, len(documents)),
	}
	if account.DOB != nil {
		dob := account.DOB.Format(DateLayout)
		view.DOB = &dob
	}
	for _, d := range documents {
		view.Documents = append(view.Documents, DocumentView{
			ID:        d.ID,
			Type:      d.Type,
			URL:       d.URL,
			FileName:  d.FileName,
			FileSize:  d.FileSize,
			CreatedAt: d.CreatedAt,
		})
	}
	return view
}
