package core

import (
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	ExperimentID ID
	ReportID     ID
)

func (id ExperimentID) String() string { return ID(id).String() }
func (id ReportID) String() string     { return ID(id).String() }

// NewExperimentID allocates a time-ordered experiment identifier
func NewExperimentID() ExperimentID { return ExperimentID(NewID()) }

// NewReportID allocates a time-ordered metric report identifier
func NewReportID() ReportID { return ReportID(NewID()) }

// ParseExperimentID validates a caller-supplied experiment identifier.
// Anything that is not a UUID is rejected so repository lookups never see free text.
func ParseExperimentID(s string) (ExperimentID, error) {
	id, err := parseUUID("experiment_id", s)
	return ExperimentID(id), err
}

// ParseReportID validates a caller-supplied metric report identifier
func ParseReportID(s string) (ReportID, error) {
	id, err := parseUUID("report_id", s)
	return ReportID(id), err
}

func parseUUID(field, s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", NewInvalidInputError(field, "cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", NewInvalidInputError(field, "%q is not a UUID", s)
	}
	return ID(s), nil
}
