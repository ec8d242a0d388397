package capture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Record is the identity data extracted from one capture.
type Record struct {
	Name     string
	DOB      string
	IDNumber string
	Gender   string
	Race     string
	Address1 string // add1 and add2 joined by one space
	Address2 string // add3 unchanged
	Postcode string
	City     string
	State    string
}

// resultFile mirrors the JSON object the capture executable writes.
type resultFile struct {
	Name     text `json:"name"`
	DOB      text `json:"dob"`
	IC       text `json:"IC"`
	Gender   text `json:"gender"`
	Race     text `json:"race"`
	Add1     text `json:"add1"`
	Add2     text `json:"add2"`
	Add3     text `json:"add3"`
	Postcode text `json:"postcode"`
	City     text `json:"city"`
	State    text `json:"state"`
}

// text accepts a JSON string, number or null. Some reader firmware writes
// postcodes as bare numbers.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	default:
		if _, err := strconv.ParseFloat(string(data), 64); err != nil {
			return fmt.Errorf("want string or number, got %s", data)
		}
		*t = text(data)
		return nil
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseResult decodes the contents of a result file.
func ParseResult(data []byte) (Record, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var raw resultFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrResultParse, err)
	}
	if strings.TrimSpace(string(raw.Name)) == "" {
		return Record{}, fmt.Errorf("%w: name is empty", ErrResultParse)
	}
	if strings.TrimSpace(string(raw.IC)) == "" {
		return Record{}, fmt.Errorf("%w: IC is empty", ErrResultParse)
	}

	return Record{
		Name:     string(raw.Name),
		DOB:      string(raw.DOB),
		IDNumber: string(raw.IC),
		Gender:   string(raw.Gender),
		Race:     string(raw.Race),
		Address1: string(raw.Add1) + " " + string(raw.Add2),
		Address2: string(raw.Add3),
		Postcode: string(raw.Postcode),
		City:     string(raw.City),
		State:    string(raw.State),
	}, nil
}

// ReadResult reads and parses the result file at path.
func ReadResult(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrResultParse, err)
	}
	return ParseResult(data)
}
