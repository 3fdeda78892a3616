package item

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"auctionhouse/internal/decode"
)

type PetState struct {
	Type           string  `json:"type"`
	Active         *bool   `json:"active,omitempty"`
	HeldItem       *string `json:"heldItem,omitempty"`
	Exp            float64 `json:"exp"`
	CandyUsed      *uint8  `json:"candyUsed,omitempty"`
	Tier           *string `json:"tier,omitempty"`
	Skin           *string `json:"skin,omitempty"`
	UUID           *string `json:"uuid,omitempty"`
	UniqueID       *string `json:"uniqueId,omitempty"`
	HideRightClick *bool   `json:"hideRightClick,omitempty"`
	NoMove         *bool   `json:"noMove,omitempty"`
	HideInfo       *bool   `json:"hideInfo,omitempty"`
}

type petDocument struct {
	Type           *string  `json:"type"`
	Active         *bool    `json:"active"`
	HeldItem       *string  `json:"heldItem"`
	Exp            *float64 `json:"exp"`
	CandyUsed      *float64 `json:"candyUsed"`
	Tier           *string  `json:"tier"`
	Skin           *string  `json:"skin"`
	UUID           *string  `json:"uuid"`
	UniqueID       *string  `json:"uniqueId"`
	HideRightClick *bool    `json:"hideRightClick"`
	NoMove         *bool    `json:"noMove"`
	HideInfo       *bool    `json:"hideInfo"`
}

const petField = "tag.ExtraAttributes.petInfo"

// DecodePet parses the embedded pet document. A nil input is not an error
// and yields a nil state.
func DecodePet(raw *string) (*PetState, error) {
	if raw == nil {
		return nil, nil
	}
	if strings.TrimSpace(*raw) == "" {
		return nil, decode.Errorf(decode.KindEmbeddedDocument, petField, "empty document")
	}

	var doc petDocument
	if err := json.Unmarshal([]byte(*raw), &doc); err != nil {
		return nil, decode.New(decode.KindEmbeddedDocument, petField, err)
	}
	if doc.Type == nil {
		return nil, decode.Errorf(decode.KindEmbeddedDocument, petField+".type", "required key missing")
	}
	if doc.Exp == nil {
		return nil, decode.Errorf(decode.KindEmbeddedDocument, petField+".exp", "required key missing")
	}

	pet := &PetState{
		Type:           *doc.Type,
		Active:         doc.Active,
		HeldItem:       doc.HeldItem,
		Exp:            *doc.Exp,
		Tier:           doc.Tier,
		Skin:           doc.Skin,
		UUID:           doc.UUID,
		UniqueID:       doc.UniqueID,
		HideRightClick: doc.HideRightClick,
		NoMove:         doc.NoMove,
		HideInfo:       doc.HideInfo,
	}
	if doc.CandyUsed != nil {
		c := *doc.CandyUsed
		if c != math.Trunc(c) {
			return nil, decode.Errorf(decode.KindEmbeddedDocument, petField+".candyUsed", "%v is not an integer", c)
		}
		if c < 0 || c > math.MaxUint8 {
			return nil, decode.New(decode.KindOutOfRange, petField+".candyUsed",
				fmt.Errorf("%v outside [0, %d]", c, math.MaxUint8))
		}
		v := uint8(c)
		pet.CandyUsed = &v
	}
	return pet, nil
}
