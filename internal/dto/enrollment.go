package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProductIDList tolerates the mixed payloads stores actually send: product
// ids arrive as strings or as numbers, sometimes within one array.
type ProductIDList []string

func (l *ProductIDList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		switch id := v.(type) {
		case string:
			ids = append(ids, id)
		case json.Number:
			ids = append(ids, id.String())
		default:
			return fmt.Errorf("product_ids entries must be strings or numbers, got %T", v)
		}
	}
	*l = ids
	return nil
}

type EnrollmentRequest struct {
	Store      string        `json:"store" validate:"required"`
	Name       string        `json:"name" validate:"required"`
	Email      string        `json:"email" validate:"required,email"`
	CPF        string        `json:"cpf,omitempty"`
	Whatsapp   string        `json:"whatsapp,omitempty"`
	ProductIDs ProductIDList `json:"product_ids" validate:"required,min=1"`
}

type EnrollmentKind string

const (
	EnrollmentPremium    EnrollmentKind = "premium"
	EnrollmentIndividual EnrollmentKind = "individual"
)

type ResourceRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// EnrollmentResult is the discriminated outcome of one enrollment event.
// TempPassword is set only when this call created the user; a retry for an
// existing email never re-exposes the credential.
type EnrollmentResult struct {
	Kind         EnrollmentKind `json:"kind"`
	UserID       string         `json:"user_id"`
	Email        string         `json:"email"`
	TempPassword string         `json:"temp_password,omitempty"`
	IsNewUser    bool           `json:"is_new_user"`

	// premium only
	PlanName string `json:"plan_name,omitempty"`

	// individual only
	HasPremium bool          `json:"has_premium,omitempty"`
	Resources  []ResourceRef `json:"resources,omitempty"`
	NotFound   []string      `json:"not_found,omitempty"`
}
