package banking

import (
	"fmt"
	"time"
)

// Account types accepted for bank accounts.
const (
	AccountSavings  = "savings"
	AccountChecking = "checking"
	AccountBusiness = "business"
	AccountOther    = "other"
)

// Bank is a financial institution users can hold accounts with.
type Bank struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// BankAccount is a payout destination owned by a user.
type BankAccount struct {
	ID                string
	UserID            string
	AccountHolderName string
	AccountNumber     string
	AccountIBAN       string
	AccountType       string
	AccountCurrency   string
	SwiftCode         string
	RoutingNumber     string
	BankID            string
	BankName          string
	CountryID         *int64
	BankCity          string
	BankAddress       string
	BankPostalCode    string
	IsActive          bool
	CreatedAt         time.Time
}

// String renders the account as "<holder> - <bank> (<number>)".
func (a BankAccount) String() string {
	return fmt.Sprintf("%s - %s (%s)", a.AccountHolderName, a.BankName, a.AccountNumber)
}
