package submit

import (
	"fmt"

	"github.com/five82/cardbridge/internal/capture"
)

const (
	// SessionID identifies this bridge to the property-management endpoint.
	SessionID = "69CDA559-B593-4B4C-8F65-40DF7906B9D3"
	// InterfaceCode selects the check-in interface on the endpoint.
	InterfaceCode = "ctc_interface"
	// ActionUpsert asks the endpoint to create or update the customer.
	ActionUpsert = "u"

	// StatusOK is the msg value of a successful application response.
	StatusOK = "ok"
)

// Envelope is the request body posted for one capture.
type Envelope struct {
	SID    string `json:"sid"`
	Code   string `json:"code"`
	Action string `json:"axn"`
	Data   Data   `json:"data"`
}

// Data is the customer payload inside an Envelope.
type Data struct {
	Name     string `json:"name"`
	DOB      string `json:"dob"`
	IDNumber string `json:"id_no"`
	Gender   string `json:"gender"`
	Race     string `json:"race"`
	Address1 string `json:"addr1"`
	Address2 string `json:"addr2"`
	Postcode string `json:"postcode"`
	City     string `json:"city"`
	State    string `json:"state"`
}

// NewEnvelope wraps rec in a fresh envelope.
func NewEnvelope(rec capture.Record) Envelope {
	return Envelope{
		SID:    SessionID,
		Code:   InterfaceCode,
		Action: ActionUpsert,
		Data: Data{
			Name:     rec.Name,
			DOB:      rec.DOB,
			IDNumber: rec.IDNumber,
			Gender:   rec.Gender,
			Race:     rec.Race,
			Address1: rec.Address1,
			Address2: rec.Address2,
			Postcode: rec.Postcode,
			City:     rec.City,
			State:    rec.State,
		},
	}
}

// Response is the endpoint's reply.
type Response struct {
	Msg  string `json:"msg"`
	Data struct {
		Code any `json:"code"`
	} `json:"data"`
}

// CustomerCode returns the server-assigned code as text.
func (r Response) CustomerCode() string {
	if r.Data.Code == nil {
		return ""
	}
	return fmt.Sprint(r.Data.Code)
}

// Receipt is the result of an accepted submission.
type Receipt struct {
	Code      string
	RequestID string
}
