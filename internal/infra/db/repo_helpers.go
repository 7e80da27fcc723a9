package db

import (
	"errors"

	"arbiter/internal/domain"
)

var errDBUnavailable = errors.New("db unavailable")

func digestPtrString(d *domain.Digest) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
