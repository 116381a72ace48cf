package dao

// Parameter is a named List criterion.
type Parameter struct {
	Name  string
	Value interface{}
}

// StateParameter is the criterion name matched by criteria.FilterByState.
const StateParameter = "State"

// NewParameter creates a parameter holding a single value or a value list.
func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}
