package dto

import (
	"time"

	"github.com/google/uuid"

	"tutorku_backend/internals/features/classes/classes/model"
)

// POST /classes
type CreateClassRequest struct {
	Name            string  `json:"name" validate:"required,min=2,max=160"`
	Description     *string `json:"description" validate:"omitempty,max=2000"`
	Subject         *string `json:"subject" validate:"omitempty,max=80"`
	Level           *string `json:"level" validate:"omitempty,max=40"`
	ImageURL        *string `json:"image_url" validate:"omitempty,url"`
	PricePerHour    int64   `json:"price_per_hour" validate:"gte=0"`
	PackagePrice    *int64  `json:"package_price" validate:"omitempty,gte=0"`
	DefaultHours    int     `json:"default_hours" validate:"omitempty,gte=1,lte=1000"`
	AutoRenew       bool    `json:"auto_renew"`
	RequiresPayment *bool   `json:"requires_payment"`
}

type CreateClassResponse struct {
	ClassID uuid.UUID `json:"class_id"`
	Slug    string    `json:"slug"`
	Code    string    `json:"code"`
}

// POST /classes/join
type JoinClassRequest struct {
	Code string `json:"code" validate:"required,len=6,alphanum"`
}

// POST /classes/leave
type LeaveClassRequest struct {
	ClassID uuid.UUID `json:"class_id" validate:"required"`
}

type ChannelItem struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type ClassItem struct {
	ID              uuid.UUID     `json:"id"`
	Name            string        `json:"name"`
	Slug            string        `json:"slug"`
	Code            string        `json:"code,omitempty"`
	Description     *string       `json:"description,omitempty"`
	Subject         *string       `json:"subject,omitempty"`
	Level           *string       `json:"level,omitempty"`
	ImageURL        *string       `json:"image_url,omitempty"`
	PricePerHour    int64         `json:"price_per_hour"`
	PackagePrice    *int64        `json:"package_price,omitempty"`
	DefaultHours    int           `json:"default_hours"`
	Currency        string        `json:"currency"`
	RequiresPayment bool          `json:"requires_payment"`
	CreatedAt       time.Time     `json:"created_at"`
	Channels        []ChannelItem `json:"channels,omitempty"`
}

// FromModel; includeCode hanya untuk pemilik/anggota.
func FromModel(m model.ClassModel, includeCode bool) ClassItem {
	out := ClassItem{
		ID:              m.ClassID,
		Name:            m.ClassName,
		Slug:            m.ClassSlug,
		Description:     m.ClassDescription,
		Subject:         m.ClassSubject,
		Level:           m.ClassLevel,
		ImageURL:        m.ClassImageURL,
		PricePerHour:    m.ClassPricePerHour,
		PackagePrice:    m.ClassPackagePrice,
		DefaultHours:    m.ClassDefaultHours,
		Currency:        m.ClassCurrency,
		RequiresPayment: m.ClassRequiresPayment,
		CreatedAt:       m.ClassCreatedAt,
	}
	if includeCode {
		out.Code = m.ClassCode
	}
	for _, ch := range m.Channels {
		out.Channels = append(out.Channels, ChannelItem{ID: ch.ChannelID, Name: ch.ChannelName})
	}
	return out
}

// GET /classes/preview/:code
type ClassPreview struct {
	ClassItem
	TutorName   *string `json:"tutor_name"`
	MemberCount int64   `json:"member_count"`
}

type MemberItem struct {
	UserID   uuid.UUID             `json:"user_id"`
	Name     *string               `json:"name"`
	Image    *string               `json:"image"`
	Role     model.ClassMemberRole `json:"role"`
	JoinedAt time.Time             `json:"joined_at"`
}
