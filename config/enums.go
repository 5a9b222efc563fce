package config

import (
	"fmt"
	"strings"
)

// ErrorPolicy defines what driver does when one of the documents fails to
// convert.
type ErrorPolicy int

const (
	// ErrorPolicyStop cancels remaining work on the first failure.
	ErrorPolicyStop ErrorPolicy = iota
	// ErrorPolicyContinue converts everything and reports all failures.
	ErrorPolicyContinue
)

var errorPolicyNames = []string{"stop", "continue"}

// ErrorPolicyNames returns list of possible string values of ErrorPolicy.
func ErrorPolicyNames() []string {
	return append([]string(nil), errorPolicyNames...)
}

func (p ErrorPolicy) String() string {
	if p >= 0 && int(p) < len(errorPolicyNames) {
		return errorPolicyNames[p]
	}
	return fmt.Sprintf("ErrorPolicy(%d)", int(p))
}

// IsValid checks if value is one of the defined policies.
func (p ErrorPolicy) IsValid() bool {
	return p >= 0 && int(p) < len(errorPolicyNames)
}

// ParseErrorPolicy converts name (case insensitive) to ErrorPolicy.
func ParseErrorPolicy(name string) (ErrorPolicy, error) {
	for i, n := range errorPolicyNames {
		if strings.EqualFold(n, name) {
			return ErrorPolicy(i), nil
		}
	}
	return ErrorPolicy(0), fmt.Errorf("%s is not a valid ErrorPolicy, try [%s]", name, strings.Join(errorPolicyNames, ", "))
}

// MarshalText implements the text marshaller method.
func (p ErrorPolicy) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("%d is not a valid ErrorPolicy", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements the text unmarshaller method.
func (p *ErrorPolicy) UnmarshalText(text []byte) error {
	v, err := ParseErrorPolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
