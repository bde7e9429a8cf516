package models

import (
	"time"

	"gorm.io/gorm"
)

// FinanceAccount shares its id with the owner reference.
type FinanceAccount struct {
	ID             string   `gorm:"primaryKey;size:100" json:"id,omitempty"`
	Title          string   `gorm:"size:255;not null" json:"title" binding:"required"`
	CurrentBalance *float64 `gorm:"not null" json:"currentBalance" binding:"required"`
	OwnerID        string   `gorm:"size:100;not null;index" json:"ownerId" binding:"required"`
}

func (FinanceAccount) TableName() string  { return "finance_accounts" }
func (FinanceAccount) EntityName() string { return "finance-account" }
func (a *FinanceAccount) GetID() string   { return a.ID }

func (*FinanceAccount) Dependents() []Dependent {
	return []Dependent{
		{Table: "finance_transactions", Column: "destination_account_id"},
		{Table: "finance_transactions", Column: "reference_account_id"},
	}
}

func (a *FinanceAccount) BeforeCreate(tx *gorm.DB) error {
	a.ID = a.OwnerID
	return nil
}

// FinanceTransactions moves an amount into a destination account and
// shares its id with that account.
type FinanceTransactions struct {
	ID                              string    `gorm:"primaryKey;size:100" json:"id,omitempty"`
	ExecutionTimestamp              time.Time `gorm:"not null" json:"executionTimestamp" binding:"required"`
	AmountAddedToDestinationAccount *float64  `gorm:"not null" json:"amountAddedToDestinationAccount" binding:"required"`
	Comment                         *string   `gorm:"size:1000" json:"comment"`
	DestinationAccountID            string    `gorm:"size:100;not null;index" json:"destinationAccountId" binding:"required"`
	ReferenceAccountID              *string   `gorm:"size:100;index" json:"referenceAccountId"`
}

func (FinanceTransactions) TableName() string  { return "finance_transactions" }
func (FinanceTransactions) EntityName() string { return "finance-transactions" }
func (t *FinanceTransactions) GetID() string   { return t.ID }

func (t *FinanceTransactions) BeforeCreate(tx *gorm.DB) error {
	t.ID = t.DestinationAccountID
	return nil
}

func (t *FinanceTransactions) References() []Reference {
	return []Reference{
		{Field: "destinationAccountId", Table: "finance_accounts", ID: t.DestinationAccountID},
		{Field: "referenceAccountId", Table: "finance_accounts", ID: ptrRef(t.ReferenceAccountID)},
	}
}
