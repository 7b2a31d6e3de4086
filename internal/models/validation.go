package models

// ValidationLevel selects validator strictness
type ValidationLevel string

const (
	ValidationBasic    ValidationLevel = "basic"
	ValidationStandard ValidationLevel = "standard"
	ValidationStrict   ValidationLevel = "strict"
)

// ValidationReport is the structured result of one validation pass
type ValidationReport struct {
	Pass     string   `json:"pass"`
	Level    ValidationLevel `json:"level"`
	Passed   bool     `json:"passed"`
	Checked  int      `json:"checked"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// AddError records a failing condition
func (r *ValidationReport) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Passed = false
}

// AddWarning records a non-failing condition
func (r *ValidationReport) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
