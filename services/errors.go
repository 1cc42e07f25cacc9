package services

import "errors"

var (
	// ErrInsufficientCredits is returned when a debit would push a
	// user's balance below zero.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrCodeExists is returned when affiliate code generation is
	// requested for a user who already holds one. Published referral
	// links must keep working, so codes are never rotated.
	ErrCodeExists = errors.New("affiliate code already assigned")

	// ErrUnknownPackage is returned for a checkout against a package id
	// not present in the catalog.
	ErrUnknownPackage = errors.New("unknown credit package")
)
