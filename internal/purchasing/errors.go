package purchasing

import "errors"

// Domain errors. Handlers map them to HTTP statuses.
var (
	ErrNotFound        = errors.New("PO request not found")
	ErrNotApproved     = errors.New("PO request must be approved first")
	ErrHasInvoice      = errors.New("cannot undo approval: PO has invoice attached, delete invoice first")
	ErrInvalidJob      = errors.New("this job does not exist, is deactivated, or is spelled incorrectly")
	ErrInvalidPONumber = errors.New("invalid PO number format")
	ErrDuplicatePO     = errors.New("PO number already exists")
	ErrInvalidAction   = errors.New("invalid action")
	ErrNoSelection     = errors.New("no POs selected")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidCost     = errors.New("invalid invoice cost")
	ErrInvalidFileType = errors.New("invalid file type, allowed: PDF, JPG, PNG")
	ErrNoInvoiceFile   = errors.New("no file attached, this was a manual entry")
	ErrFileNotFound    = errors.New("invoice file not found")

	ErrJobNotFound = errors.New("job not found")
	ErrJobExists   = errors.New("job name already exists")
	ErrJobInUse    = errors.New("job is in use")
)
