package model

import "errors"

// Trade and registration errors. Each precondition maps to exactly one.
var (
	ErrInvalidAmount               = errors.New("invalid amount")
	ErrInsufficientShares          = errors.New("insufficient shares")
	ErrInsufficientFunds           = errors.New("insufficient funds")
	ErrInsufficientContractBalance = errors.New("insufficient contract balance")
	ErrUnauthorizedCreator         = errors.New("unauthorized creator")
	ErrNameTooLong                 = errors.New("name is too long")
	ErrBioTooLong                  = errors.New("bio is too long")
	ErrTitleTooLong                = errors.New("title is too long")
	ErrInvalidDate                 = errors.New("invalid date")
	ErrInvalidRequiredShares       = errors.New("invalid required shares")
	ErrInvalidTrader               = errors.New("trader is not a signing account")
)

// Storage errors.
var (
	ErrCreatorNotFound     = errors.New("creator not found")
	ErrEventNotFound       = errors.New("event not found")
	ErrCreatorExists       = errors.New("creator already exists")
	ErrAlreadyExists       = errors.New("record address already in use")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflow")
)
