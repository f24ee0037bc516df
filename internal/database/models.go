package database

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Username     string     `json:"username" gorm:"size:150;uniqueIndex;not null"`
	Email        string     `json:"email" gorm:"size:254;uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"not null"`
	IsVerified   bool       `json:"is_verified" gorm:"not null"`
	IsSuperuser  bool       `json:"-" gorm:"not null"`
	IsActive     bool       `json:"-" gorm:"not null"`
	LastLogin    *time.Time `json:"last_login"`
	LoginCount   int        `json:"-" gorm:"not null"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (u *User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Device is the server-side state of one logged-in client. A user has at
// most one row per device id.
type Device struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	UserID       uuid.UUID `json:"-" gorm:"type:uuid;not null;uniqueIndex:idx_devices_user_device"`
	DeviceID     string    `json:"device_id" gorm:"size:255;not null;uniqueIndex:idx_devices_user_device"`
	RefreshToken string    `json:"-" gorm:"not null"`
	RememberMe   bool      `json:"remember_me" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (d *Device) TableName() string {
	return "devices"
}

// Expired reports whether the session ended before now. A session is still
// usable at the exact instant of expires_at.
func (d *Device) Expired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}

type Group struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:100;uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (g *Group) TableName() string {
	return "todo_groups"
}

type GroupMember struct {
	GroupID   uint      `gorm:"primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

func (m *GroupMember) TableName() string {
	return "group_members"
}

type GroupAdmin struct {
	GroupID   uint      `gorm:"primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

func (a *GroupAdmin) TableName() string {
	return "group_admins"
}

// GroupRoster is a group together with its member and admin ids. It is the
// resource permission checks are evaluated against.
type GroupRoster struct {
	Group
	Members []uuid.UUID `json:"members"`
	Admins  []uuid.UUID `json:"admins"`
}

func (r *GroupRoster) IsMember(userID uuid.UUID) bool {
	return slices.Contains(r.Members, userID)
}

func (r *GroupRoster) IsAdmin(userID uuid.UUID) bool {
	return slices.Contains(r.Admins, userID)
}

type Invitation struct {
	ID             uint      `json:"-" gorm:"primaryKey"`
	Token          string    `json:"token" gorm:"size:6;uniqueIndex;not null"`
	GroupID        uint      `json:"group_id" gorm:"not null;index"`
	InviterID      uuid.UUID `json:"inviter_id" gorm:"type:uuid;not null"`
	Email          *string   `json:"email,omitempty" gorm:"size:254"`
	ExpirationDate time.Time `json:"expiration_date" gorm:"not null"`
	MaxUses        int       `json:"max_uses" gorm:"not null"`
	Uses           int       `json:"uses" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`
}

func (i *Invitation) TableName() string {
	return "invitations"
}

func (i *Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpirationDate)
}

func (i *Invitation) UsedUp() bool {
	return i.Uses >= i.MaxUses
}

func (i *Invitation) IsValid(now time.Time) bool {
	return !i.UsedUp() && !i.Expired(now)
}

const (
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

type ToDo struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	UserID      *uuid.UUID `json:"user" gorm:"type:uuid;index"`
	GroupID     *uint      `json:"group" gorm:"index"`
	Title       string     `json:"title" gorm:"size:255;not null"`
	Description string     `json:"description"`
	Priority    int        `json:"priority" gorm:"not null"`
	Category    string     `json:"category" gorm:"size:100"`
	DueDate     *time.Time `json:"due_date"`
	IsCompleted bool       `json:"is_completed" gorm:"not null"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (t *ToDo) TableName() string {
	return "todos"
}
