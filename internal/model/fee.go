package model

import (
	"fmt"
	"time"
)

// FeeType is the reason a fee was charged
type FeeType string

const (
	FeeTypeLate   FeeType = "late_fee"
	FeeTypeDamage FeeType = "damage_fee"
	FeeTypeLost   FeeType = "lost_fee"
	FeeTypeBorrow FeeType = "borrow_fee"
	FeeTypeOther  FeeType = "other"
)

// ParseFeeType converts a string into a FeeType
func ParseFeeType(s string) (FeeType, error) {
	switch ft := FeeType(s); ft {
	case FeeTypeLate, FeeTypeDamage, FeeTypeLost, FeeTypeBorrow, FeeTypeOther:
		return ft, nil
	}
	return "", fmt.Errorf("invalid fee type %q", s)
}

// FeeStatus is the payment state of a fee
type FeeStatus string

const (
	FeeStatusUnpaid FeeStatus = "unpaid"
	FeeStatusPaid   FeeStatus = "paid"
)

// ParseFeeStatus converts a string into a FeeStatus
func ParseFeeStatus(s string) (FeeStatus, error) {
	switch fs := FeeStatus(s); fs {
	case FeeStatusUnpaid, FeeStatusPaid:
		return fs, nil
	}
	return "", fmt.Errorf("invalid fee status %q", s)
}

// Fee is a monetary charge against a borrow. Amount is in whole currency units.
type Fee struct {
	BaseModel
	BorrowID      int        `gorm:"not null;index" json:"borrowId"`
	UserID        int        `gorm:"not null;index" json:"userId"`
	Type          FeeType    `gorm:"type:varchar(16);not null;index" json:"type"`
	Amount        int64      `gorm:"not null" json:"amount"`
	Status        FeeStatus  `gorm:"type:varchar(16);not null;index" json:"status"`
	PaymentMethod *string    `gorm:"type:varchar(64)" json:"paymentMethod"`
	Notes         string     `gorm:"type:varchar(1024)" json:"notes"`
	PaidAt        *time.Time `json:"paidAt"`
}

// TableName specifies the table name for Fee model
func (Fee) TableName() string {
	return "fees"
}
