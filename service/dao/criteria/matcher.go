package criteria

import (
	"github.com/viant/durable/service/dao"
)

// FilterByState reports whether state satisfies the State parameter, if any.
func FilterByState(state string, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil || parameter.Name != dao.StateParameter {
			continue
		}
		switch actual := parameter.Value.(type) {
		case string:
			return actual == "" || state == actual
		case []string:
			if len(actual) == 0 {
				return true
			}
			for _, s := range actual {
				if state == s {
					return true
				}
			}
			return false
		}
	}
	return true
}
