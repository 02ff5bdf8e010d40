// internal/models/scope.go
package models

// FieldType is the closed set of input kinds a scope field can take.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldEmail    FieldType = "email"
	FieldPhone    FieldType = "phone"
	FieldDate     FieldType = "date"
	FieldRadio    FieldType = "radio"
	FieldCheckbox FieldType = "checkbox"
	FieldSelect   FieldType = "select"
	FieldFile     FieldType = "file"

	// FieldUnknown is assigned to any type string outside the set above.
	FieldUnknown FieldType = "unknown"
)

// ParseFieldType maps a raw type string onto the closed enum.
func ParseFieldType(raw string) FieldType {
	switch t := FieldType(raw); t {
	case FieldText, FieldTextarea, FieldNumber, FieldEmail, FieldPhone,
		FieldDate, FieldRadio, FieldCheckbox, FieldSelect, FieldFile:
		return t
	default:
		return FieldUnknown
	}
}

// HasOptions reports whether the type carries a selectable option list.
func (t FieldType) HasOptions() bool {
	return t == FieldRadio || t == FieldSelect || t == FieldCheckbox
}

// Option is one selectable choice of a radio, select or checkbox field.
type Option struct {
	Text        string `json:"text"`
	Price       int64  `json:"price"`
	Description string `json:"description,omitempty"`
}

// Field is a single input inside a phase.
type Field struct {
	ID              string    `json:"id"`
	Type            FieldType `json:"type"`
	Label           string    `json:"label"`
	HelpText        string    `json:"helpText,omitempty"`
	Required        bool      `json:"required"`
	HasPriceImpact  bool      `json:"hasPriceImpact"`
	Options         []Option  `json:"options,omitempty"`
	FlatPriceImpact int64     `json:"flatPriceImpact,omitempty"`
}

// Phase groups fields; phase order drives wizard step order.
type Phase struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields"`
}

// Schema describes one purchasable package level.
type Schema struct {
	PackageID string  `json:"packageId"`
	LevelKey  string  `json:"levelKey"`
	Phases    []Phase `json:"phases"`

	// EmbeddedDraft is draft metadata delivered alongside the schema, if any.
	EmbeddedDraft *Draft `json:"draft,omitempty"`
}

// FileRef identifies an already uploaded file; storage lives elsewhere.
type FileRef struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// Responses holds current field values keyed by field ID.
type Responses map[string]interface{}

// DraftStatus is the persistence state of a saved configuration.
type DraftStatus string

const (
	DraftStatusDraft     DraftStatus = "draft"
	DraftStatusSubmitted DraftStatus = "submitted"
)

// Draft is a server-persisted, resumable configuration snapshot.
type Draft struct {
	DraftID    string      `json:"draftId"`
	LevelKey   string      `json:"levelKey"`
	Responses  Responses   `json:"responses"`
	TotalPrice int64       `json:"totalPrice"`
	Status     DraftStatus `json:"status,omitempty"`
}

// EligibilityReason explains an eligibility verdict.
type EligibilityReason string

const (
	ReasonNone                      EligibilityReason = "none"
	ReasonAlreadyPurchasedSameLevel EligibilityReason = "already_purchased_same_level"
	ReasonActivePurchaseConflict    EligibilityReason = "active_purchase_conflict"
)

// EligibilityResult is the verdict for buying one package level.
type EligibilityResult struct {
	Eligible            bool              `json:"eligible"`
	Reason              EligibilityReason `json:"reason,omitempty"`
	ExistingResponseRef string            `json:"existingResponseRef,omitempty"`
}

// WalletBalance is a point-in-time read of the buyer's wallet.
type WalletBalance struct {
	Balance     int64 `json:"balance"`
	HoldBalance int64 `json:"holdBalance"`
}

// Available returns the spendable amount.
func (w WalletBalance) Available() int64 {
	return w.Balance - w.HoldBalance
}

// SubmitRequest is the body of a configuration submission.
type SubmitRequest struct {
	LevelKey      string      `json:"levelKey"`
	Responses     Responses   `json:"responses"`
	TotalPrice    int64       `json:"totalPrice"`
	Status        DraftStatus `json:"status"`
	DraftID       string      `json:"draftId,omitempty"`
	WalletPayment bool        `json:"wallet_payment,omitempty"`
}

// SubmitResponse is the backend's answer to a submission.
type SubmitResponse struct {
	Success    bool   `json:"success"`
	ResponseID string `json:"responseId,omitempty"`
	Blocked    bool   `json:"blocked,omitempty"`
	Error      string `json:"error,omitempty"`
}
