package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClassMemberRole string

const (
	ClassMemberOwner   ClassMemberRole = "OWNER"
	ClassMemberCoOwner ClassMemberRole = "CO_OWNER"
	ClassMemberMember  ClassMemberRole = "MEMBER"
)

// Nama channel default yang dibuat bersama kelas.
const DefaultChannelName = "General"

type ClassModel struct {
	ClassID      uuid.UUID `gorm:"column:class_id;type:uuid;primaryKey" json:"class_id"`
	ClassName    string    `gorm:"column:class_name;size:160;not null" json:"class_name"`
	ClassSlug    string    `gorm:"column:class_slug;size:200;not null;uniqueIndex:uq_classes_slug" json:"class_slug"`
	ClassCode    string    `gorm:"column:class_code;size:16;not null;uniqueIndex:uq_classes_code" json:"class_code"`
	ClassTutorID uuid.UUID `gorm:"column:class_tutor_id;type:uuid;not null;index:idx_classes_tutor" json:"class_tutor_id"`

	ClassDescription *string `gorm:"column:class_description" json:"class_description,omitempty"`
	ClassSubject     *string `gorm:"column:class_subject;size:80" json:"class_subject,omitempty"`
	ClassLevel       *string `gorm:"column:class_level;size:40" json:"class_level,omitempty"`
	ClassImageURL    *string `gorm:"column:class_image_url" json:"class_image_url,omitempty"`

	// Harga dalam satuan mayor (tanpa sen)
	ClassPricePerHour    int64  `gorm:"column:class_price_per_hour;not null;default:0" json:"class_price_per_hour"`
	ClassPackagePrice    *int64 `gorm:"column:class_package_price" json:"class_package_price,omitempty"`
	ClassDefaultHours    int    `gorm:"column:class_default_hours;not null;default:1" json:"class_default_hours"`
	ClassCurrency        string `gorm:"column:class_currency;size:3;not null" json:"class_currency"`
	ClassAutoRenew       bool   `gorm:"column:class_auto_renew;not null;default:false" json:"class_auto_renew"`
	ClassRequiresPayment bool   `gorm:"column:class_requires_payment;not null;default:false" json:"class_requires_payment"`

	ClassCreatedAt time.Time `gorm:"column:class_created_at;autoCreateTime" json:"class_created_at"`
	ClassUpdatedAt time.Time `gorm:"column:class_updated_at;autoUpdateTime" json:"class_updated_at"`

	Channels []ChannelModel `gorm:"foreignKey:ChannelClassID;references:ClassID" json:"channels,omitempty"`
}

func (ClassModel) TableName() string { return "classes" }

func (m *ClassModel) BeforeCreate(tx *gorm.DB) error {
	if m.ClassID == uuid.Nil {
		m.ClassID = uuid.New()
	}
	return nil
}

type ChannelModel struct {
	ChannelID      uuid.UUID `gorm:"column:channel_id;type:uuid;primaryKey" json:"channel_id"`
	ChannelClassID uuid.UUID `gorm:"column:channel_class_id;type:uuid;not null;index:idx_channels_class" json:"channel_class_id"`
	ChannelName    string    `gorm:"column:channel_name;size:80;not null" json:"channel_name"`

	ChannelCreatedAt time.Time `gorm:"column:channel_created_at;autoCreateTime" json:"channel_created_at"`
}

func (ChannelModel) TableName() string { return "channels" }

func (m *ChannelModel) BeforeCreate(tx *gorm.DB) error {
	if m.ChannelID == uuid.Nil {
		m.ChannelID = uuid.New()
	}
	return nil
}

// ClassMemberModel: PK komposit (user, class) jadi join ulang tidak dobel.
type ClassMemberModel struct {
	ClassMemberUserID  uuid.UUID       `gorm:"column:class_member_user_id;type:uuid;primaryKey" json:"class_member_user_id"`
	ClassMemberClassID uuid.UUID       `gorm:"column:class_member_class_id;type:uuid;primaryKey;index:idx_class_members_class" json:"class_member_class_id"`
	ClassMemberRole    ClassMemberRole `gorm:"column:class_member_role;type:varchar(16);not null;default:'MEMBER'" json:"class_member_role"`

	ClassMemberJoinedAt time.Time `gorm:"column:class_member_joined_at;autoCreateTime" json:"class_member_joined_at"`
}

func (ClassMemberModel) TableName() string { return "class_members" }
