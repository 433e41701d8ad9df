package reactive

import "reflect"

// defaultEquals is the comparison used when no predicate is supplied: try the
// fast path for the handful of kinds the == operator supports generically
// through a type switch on `any`, compare pointers by identity, then fall
// back to reflect.DeepEqual for everything else (slices, maps, structs
// holding either).
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int64:
		return av == any(b).(int64)
	case float64:
		return av == any(b).(float64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	}
	if va := reflect.ValueOf(any(a)); va.Kind() == reflect.Pointer {
		vb := reflect.ValueOf(any(b))
		return vb.Kind() == reflect.Pointer && va.Type() == vb.Type() && va.Pointer() == vb.Pointer()
	}
	return reflect.DeepEqual(a, b)
}
