package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type Preset struct {
	Key     string      `json:"key"`
	Label   string      `json:"label"`
	Icon    string      `json:"icon"`
	Escrow  EscrowTerms `json:"escrow"`
	Quorum  string      `json:"quorum"`
	Notes   string      `json:"notes"`
	Default bool        `json:"default,omitempty"`
}

// Quorum is an m-of-n arbitrator requirement.
type Quorum struct {
	Required int `json:"required"`
	Total    int `json:"total"`
}

func (q Quorum) String() string {
	return fmt.Sprintf("%d/%d", q.Required, q.Total)
}

// ParseQuorum reads "2 of 3" style strings. Trailing remarks such as "(sole arb)" are ignored.
func ParseQuorum(value string) (Quorum, error) {
	fields := strings.Fields(value)
	if len(fields) < 3 || !strings.EqualFold(fields[1], "of") {
		return Quorum{}, fmt.Errorf("%w: quorum %q", ErrInvalidArgument, value)
	}
	required, err := strconv.Atoi(fields[0])
	if err != nil {
		return Quorum{}, fmt.Errorf("%w: quorum %q", ErrInvalidArgument, value)
	}
	total, err := strconv.Atoi(fields[2])
	if err != nil {
		return Quorum{}, fmt.Errorf("%w: quorum %q", ErrInvalidArgument, value)
	}
	if required <= 0 || total <= 0 || required > total {
		return Quorum{}, fmt.Errorf("%w: quorum %q", ErrInvalidArgument, value)
	}
	return Quorum{Required: required, Total: total}, nil
}

type PresetCatalog interface {
	Get(key string) (Preset, bool)
	Default() Preset
	List() []Preset
}
