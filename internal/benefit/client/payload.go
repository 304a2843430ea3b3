package client

import (
	"bytes"
	"encoding/json"
	"strings"

	"saldo/internal/benefit/models"
)

// lookupRequest is the body of the balance lookup call.
type lookupRequest struct {
	Identity      string `json:"identity"`
	BenefitNumber string `json:"benefitNumber"`
	LastDays      int    `json:"lastDays"`
	// Attempts is spelled the way the upstream API expects it.
	Attempts int `json:"attemps"`
}

// upstreamAttempts is how many times the upstream polls its own sources
// before answering.
const upstreamAttempts = 120

// text decodes a JSON string, number, boolean or null into a string, since
// the upstream is inconsistent about scalar types.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(s)
	default:
		*t = text(b)
	}
	return nil
}

type bankAccount struct {
	Bank   text `json:"bank"`
	Branch text `json:"branch"`
	Number text `json:"number"`
	Digit  text `json:"digit"`
}

// lookupResponse mirrors the fields consumed from the upstream payload.
type lookupResponse struct {
	Name                                text         `json:"name"`
	State                               text         `json:"state"`
	Alimony                             text         `json:"alimony"`
	BirthDate                           text         `json:"birthDate"`
	BlockType                           text         `json:"blockType"`
	GrantDate                           text         `json:"grantDate"`
	CreditType                          text         `json:"creditType"`
	BenefitCardLimit                    text         `json:"benefitCardLimit"`
	BenefitCardBalance                  text         `json:"benefitCardBalance"`
	ConsignedCardLimit                  text         `json:"consignedCardLimit"`
	ConsignedCardBalance                text         `json:"consignedCardBalance"`
	BenefitStatus                       text         `json:"benefitStatus"`
	BenefitEndDate                      text         `json:"benefitEndDate"`
	ConsignedCreditBalance              text         `json:"consignedCreditBalance"`
	MaxTotalBalance                     text         `json:"maxTotalBalance"`
	UsedTotalBalance                    text         `json:"usedTotalBalance"`
	QueryDate                           text         `json:"queryDate"`
	QueryReturnDate                     text         `json:"queryReturnDate"`
	QueryReturnTime                     text         `json:"queryReturnTime"`
	LegalRepresentativeName             text         `json:"legalRepresentativeName"`
	DisbursementBankAccount             *bankAccount `json:"disbursementBankAccount"`
	NumberOfActiveSuspendedReservations text         `json:"numberOfActiveSuspendedReservations"`
}

// toPayload converts the upstream body into the stored payload. Dates in
// DDMMYYYY become YYYY-MM-DD and the available total mirrors the benefit
// card balance.
func (r lookupResponse) toPayload() models.Payload {
	p := models.Payload{
		Name:                        strings.TrimSpace(string(r.Name)),
		State:                       string(r.State),
		Alimony:                     string(r.Alimony),
		BirthDate:                   convertDate(string(r.BirthDate)),
		BlockType:                   string(r.BlockType),
		GrantDate:                   convertDate(string(r.GrantDate)),
		CreditType:                  string(r.CreditType),
		BenefitCardLimit:            string(r.BenefitCardLimit),
		BenefitCardBalance:          string(r.BenefitCardBalance),
		ConsignedCardLimit:          string(r.ConsignedCardLimit),
		ConsignedCardBalance:        string(r.ConsignedCardBalance),
		BenefitStatus:               string(r.BenefitStatus),
		BenefitEndDate:              convertDate(string(r.BenefitEndDate)),
		ConsignedCreditBalance:      string(r.ConsignedCreditBalance),
		MaxTotalBalance:             string(r.MaxTotalBalance),
		UsedTotalBalance:            string(r.UsedTotalBalance),
		AvailableTotalBalance:       string(r.BenefitCardBalance),
		QueryDate:                   convertDate(string(r.QueryDate)),
		QueryReturnDate:             convertDate(string(r.QueryReturnDate)),
		QueryReturnTime:             string(r.QueryReturnTime),
		LegalRepresentativeName:     string(r.LegalRepresentativeName),
		ActiveSuspendedReservations: string(r.NumberOfActiveSuspendedReservations),
	}
	if acc := r.DisbursementBankAccount; acc != nil {
		p.DisbursementBank = string(acc.Bank)
		p.DisbursementBranch = string(acc.Branch)
		p.DisbursementAccount = string(acc.Number)
		p.DisbursementDigit = string(acc.Digit)
	}
	return p
}

// convertDate rewrites an eight digit DDMMYYYY date as YYYY-MM-DD. Blank
// input becomes empty; anything else is kept verbatim.
func convertDate(s string) string {
	clean := strings.TrimSpace(s)
	if clean == "" {
		return ""
	}
	if len(clean) == 8 && models.Digits(clean) == clean {
		return clean[4:8] + "-" + clean[2:4] + "-" + clean[0:2]
	}
	return s
}
