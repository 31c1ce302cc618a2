package domain

import "time"

// Kind tells whether a code may create an account or only top one up.
type Kind string

const (
	// KindLicense credits points and may create the device account.
	KindLicense Kind = "license"
	// KindRecharge credits points to an existing account only.
	KindRecharge Kind = "recharge"
)

func (k Kind) Valid() bool {
	return k == KindLicense || k == KindRecharge
}

// Status is the lifecycle of a code. Transitions are one-way:
// unused -> active on the first redemption, active -> exhausted when
// usage_count reaches usage_cap.
type Status string

const (
	StatusUnused    Status = "unused"
	StatusActive    Status = "active"
	StatusExhausted Status = "exhausted"
)

// CanTransition rejects transitions outside the lifecycle table.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusUnused:
		return to == StatusActive || to == StatusExhausted
	case StatusActive:
		return to == StatusActive || to == StatusExhausted
	default:
		return false
	}
}

// Code is a redeemable voucher with a shared usage cap.
type Code struct {
	Code       string `gorm:"primaryKey;type:text"`
	Kind       Kind   `gorm:"type:text;not null"`
	PointValue int64  `gorm:"not null"`
	UsageCap   int    `gorm:"not null;default:3"`
	UsageCount int    `gorm:"not null;default:0"`
	Status     Status `gorm:"type:text;not null;default:unused"`
	BatchID    string `gorm:"type:text;index"`
	CreatedAt  time.Time
}

// TableName sets the database table name.
func (Code) TableName() string { return "codes" }

// Exhausted reports whether the code has no redemption slots left.
func (c *Code) Exhausted() bool {
	return c.Status == StatusExhausted || c.UsageCount >= c.UsageCap
}

// NextStatus computes the status after one more successful redemption.
func (c *Code) NextStatus() Status {
	if c.UsageCount+1 >= c.UsageCap {
		return StatusExhausted
	}
	return StatusActive
}

// Batch groups codes minted together.
type Batch struct {
	BatchID string
	Codes   []Code
}
