package dexerrors

import (
	"errors"
	"strings"
)

// Peephole (P) Errors
var (
	ErrMetadataLookup = errors.New("P1|MetadataLookupFailure: A bound field reference has no entry in the field metadata table.")
	ErrMalformedPair  = errors.New("P2|MalformedPair: An opcode with an implicit result is not followed by its move-result-pseudo.")
	ErrUnbound        = errors.New("P3|UnboundPlaceholder: A replacement referenced a placeholder the pattern never bound.")
	ErrUnknownRule    = errors.New("P4|UnknownRule: No rule with this name exists in the rule set.")
)

// IR (I) Errors
var (
	ErrBadOperand  = errors.New("I1|BadOperand: Instruction operands do not fit the opcode.")
	ErrSpliceRange = errors.New("I2|SpliceRange: Splice span lies outside the instruction list.")
	ErrBadAssembly = errors.New("I3|BadAssembly: Assembly text could not be read.")
)

// Configuration (C) Errors
var (
	ErrBadConfig = errors.New("C1|BadConfig: Configuration value is out of range.")
)

// GetErrorName extracts the error name from the error message.
func GetErrorName(err error) string {
	if err == nil {
		return "No Error"
	}
	errStr := rootMessage(err)
	if !strings.Contains(errStr, "|") || !strings.Contains(errStr, ":") {
		return errStr
	}
	parts := strings.SplitN(errStr, "|", 2)
	nameParts := strings.SplitN(parts[1], ":", 2)
	return strings.TrimSpace(nameParts[0])
}

// GetErrorCode extracts the error code from the error message.
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	errStr := rootMessage(err)
	if !strings.Contains(errStr, "|") {
		return ""
	}
	parts := strings.SplitN(errStr, "|", 2)
	return strings.TrimSpace(parts[0])
}

// GetErrorCodeWithName returns the error code and name in the format "Code_ErrorName".
func GetErrorCodeWithName(err error) string {
	code := GetErrorCode(err)
	name := GetErrorName(err)
	if code == "" || name == "" {
		return ""
	}
	return code + "_" + name
}

// GetErrorDesc extracts the error description from the error message.
func GetErrorDesc(err error) string {
	if err == nil {
		return ""
	}
	parts := strings.SplitN(rootMessage(err), ":", 2)
	if len(parts) < 2 {
		return "DESC NOT SET"
	}
	return strings.TrimSpace(parts[1])
}

// rootMessage returns the message of the innermost coded error in err's chain, so that
// wrapped errors ("iput v0: P1|...") still yield their code.
func rootMessage(err error) string {
	for _, known := range all {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}

var all = []error{
	ErrMetadataLookup, ErrMalformedPair, ErrUnbound, ErrUnknownRule,
	ErrBadOperand, ErrSpliceRange, ErrBadAssembly,
	ErrBadConfig,
}
