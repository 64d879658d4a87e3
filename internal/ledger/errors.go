package ledger

import "errors"

// Domain outcomes of ledger operations. Callers match them with errors.Is;
// anything else returned by the ledger is an infrastructure failure.
var (
	ErrCongregationNotFound = errors.New("ledger: congregation not found")
	ErrTerritoryNotFound    = errors.New("ledger: territory not found")
	ErrTerritoryTaken       = errors.New("ledger: territory already taken")
	ErrTerritoryWorking     = errors.New("ledger: territory is being worked")
	ErrManagerNotFound      = errors.New("ledger: manager not found")
	ErrManagerBusy          = errors.New("ledger: manager already has an active assignment")
	ErrAssignmentNotFound   = errors.New("ledger: assignment not found")
	ErrAssignmentNotActive  = errors.New("ledger: assignment is not active")
)
