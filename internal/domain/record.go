package domain

import "time"

// Canonical field names used by rule definitions and ingestion column mapping.
const (
	FieldLastName       = "last_name"
	FieldFirstName      = "first_name"
	FieldMemberNumber   = "member_number"
	FieldJoinDate       = "join_date"
	FieldExpirationDate = "expiration_date"
	FieldMemberType     = "member_type"
	FieldPayType        = "pay_type"
	FieldDuesAmount     = "dues_amount"
	FieldCycle          = "cycle"
	FieldBalance        = "balance"
	FieldEndDraft       = "end_draft"
	FieldSalesRep       = "sales_rep"
)

// DateField is a calendar date parsed at ingestion time. Valid is false when
// the source cell was empty or unparseable; Raw always keeps the source text.
type DateField struct {
	Time  time.Time `json:"time"`
	Valid bool      `json:"valid"`
	Raw   string    `json:"raw"`
}

// MoneyField is a decimal currency amount parsed at ingestion time.
type MoneyField struct {
	Amount float64 `json:"amount"`
	Valid  bool    `json:"valid"`
	Raw    string  `json:"raw"`
}

// IntField is an integer value parsed at ingestion time.
type IntField struct {
	Value int    `json:"value"`
	Valid bool   `json:"valid"`
	Raw   string `json:"raw"`
}

// MembershipRecord is one validated input row. All field parsing happens once
// at ingestion; parse failures are carried as Valid=false fields so the rule
// evaluator can surface them as violations instead of crashing.
type MembershipRecord struct {
	MemberID  string `json:"member_id"`
	LastName  string `json:"last_name"`
	FirstName string `json:"first_name"`

	JoinDate       DateField  `json:"join_date"`
	ExpirationDate DateField  `json:"expiration_date"`
	DuesAmount     MoneyField `json:"dues_amount"`
	Balance        MoneyField `json:"balance"`
	Cycle          IntField   `json:"cycle"`
	EndDraft       DateField  `json:"end_draft"`

	PayType  string `json:"pay_type"`
	Category string `json:"category"` // membership type, selects the rule set
	SalesRep string `json:"sales_rep"`

	// Raw is the original row, padded to the table header width, kept for
	// byte-faithful report reproduction.
	Raw []string `json:"-"`

	// Malformed marks a row that could not be interpreted as a record at all.
	Malformed bool `json:"malformed,omitempty"`
}

// Name returns "First Last" for display, tolerating empty name fields.
func (r *MembershipRecord) Name() string {
	switch {
	case r.FirstName == "" && r.LastName == "":
		return ""
	case r.FirstName == "":
		return r.LastName
	case r.LastName == "":
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}

// Date returns the named date field. ok is false when the record has no date
// field with that canonical name.
func (r *MembershipRecord) Date(field string) (DateField, bool) {
	switch field {
	case FieldJoinDate:
		return r.JoinDate, true
	case FieldExpirationDate:
		return r.ExpirationDate, true
	case FieldEndDraft:
		return r.EndDraft, true
	}
	return DateField{}, false
}

// Money returns the named currency field.
func (r *MembershipRecord) Money(field string) (MoneyField, bool) {
	switch field {
	case FieldDuesAmount:
		return r.DuesAmount, true
	case FieldBalance:
		return r.Balance, true
	}
	return MoneyField{}, false
}

// Int returns the named integer field.
func (r *MembershipRecord) Int(field string) (IntField, bool) {
	switch field {
	case FieldCycle:
		return r.Cycle, true
	}
	return IntField{}, false
}

// Text returns the named free-text field.
func (r *MembershipRecord) Text(field string) (string, bool) {
	switch field {
	case FieldPayType:
		return r.PayType, true
	case FieldMemberType:
		return r.Category, true
	case FieldSalesRep:
		return r.SalesRep, true
	case FieldLastName:
		return r.LastName, true
	case FieldFirstName:
		return r.FirstName, true
	case FieldMemberNumber:
		return r.MemberID, true
	}
	return "", false
}
