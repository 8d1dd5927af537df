package db

import (
	"bytes"
	"fmt"
	"strconv"
)

type Pessoa struct {
	Id        string   `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Cpf       string   `json:"cpf"`
	Address   string   `json:"address"`
	Age       Quantity `json:"age"`
	Weight    Quantity `json:"weight"`
	Photo     string   `json:"photo"`
}

// PessoaInput carries the form fields of a new record. Photo is an already
// encoded data URI or empty.
type PessoaInput struct {
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Cpf       string   `json:"cpf"`
	Address   string   `json:"address"`
	Age       Quantity `json:"age"`
	Weight    Quantity `json:"weight"`
	Photo     string   `json:"photo"`
}

// PessoaPatch holds the fields to merge over an existing record; nil means
// the field was not provided.
type PessoaPatch struct {
	FirstName *string   `json:"firstName"`
	LastName  *string   `json:"lastName"`
	Cpf       *string   `json:"cpf"`
	Address   *string   `json:"address"`
	Age       *Quantity `json:"age"`
	Weight    *Quantity `json:"weight"`
	Photo     *string   `json:"photo"`
}

// Quantity is a numeric-ish value kept exactly as entered. It always encodes
// as a JSON string but also decodes JSON numbers, which older exports use.
type Quantity string

func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(q))
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case len(data) == 0:
		return fmt.Errorf("empty quantity")
	case bytes.Equal(data, []byte("null")):
		*q = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid quantity %s: %w", data, err)
		}
		*q = Quantity(s)
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		if _, err := strconv.ParseFloat(string(data), 64); err != nil {
			return fmt.Errorf("invalid quantity %s: %w", data, err)
		}
		*q = Quantity(data)
	default:
		return fmt.Errorf("invalid quantity %s", data)
	}

	return nil
}
