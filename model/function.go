package model

import (
	"fmt"
	"regexp"
	"strings"
)

// LatestQualifier points at the most recently registered function version.
const LatestQualifier = "$LATEST"

var (
	functionNameExpr = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	qualifierExpr    = regexp.MustCompile(`^[A-Za-z0-9_$-]{1,128}$`)
)

// FunctionIdentifier identifies a deployed workflow function, optionally
// pinned to a version or alias.
type FunctionIdentifier struct {
	Name      string `json:"name" yaml:"name"`
	Qualifier string `json:"qualifier,omitempty" yaml:"qualifier,omitempty"`
}

// String renders name[:qualifier].
func (f FunctionIdentifier) String() string {
	if f.Qualifier == "" {
		return f.Name
	}
	return f.Name + ":" + f.Qualifier
}

// Validate checks name and qualifier grammar.
func (f FunctionIdentifier) Validate() error {
	if !functionNameExpr.MatchString(f.Name) {
		return NewError(ErrInvalidInput, "function", fmt.Sprintf("invalid function name %q", f.Name))
	}
	if f.Qualifier != "" && !qualifierExpr.MatchString(f.Qualifier) {
		return NewError(ErrInvalidInput, "function", fmt.Sprintf("invalid qualifier %q", f.Qualifier))
	}
	return nil
}

// ParseFunctionIdentifier parses "name", "name:qualifier" or an ARN of the
// form arn:<partition>:lambda:<region>:<account>:function:<name>[:<qualifier>].
func ParseFunctionIdentifier(text string) (FunctionIdentifier, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return FunctionIdentifier{}, NewError(ErrInvalidInput, "function", "function identifier is required")
	}
	var ret FunctionIdentifier
	if strings.HasPrefix(text, "arn:") {
		parts := strings.Split(text, ":")
		if len(parts) < 7 || len(parts) > 8 || parts[5] != "function" {
			return FunctionIdentifier{}, NewError(ErrInvalidInput, "function", fmt.Sprintf("invalid function arn %q", text))
		}
		ret.Name = parts[6]
		if len(parts) == 8 {
			ret.Qualifier = parts[7]
		}
	} else {
		name, qualifier, found := strings.Cut(text, ":")
		if found && qualifier == "" {
			return FunctionIdentifier{}, NewError(ErrInvalidInput, "function", fmt.Sprintf("empty qualifier in %q", text))
		}
		ret.Name, ret.Qualifier = name, qualifier
	}
	if err := ret.Validate(); err != nil {
		return FunctionIdentifier{}, err
	}
	return ret, nil
}
