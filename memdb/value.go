package memdb

import (
	"reflect"

	"github.com/duplexdb/duplex"
)

// subArgs extracts a nested argument bag, tolerating both duplex.Args and
// plain maps (msgpack round-trips produce the latter).
func subArgs(args duplex.Args, key string) duplex.Args {
	switch nested := argValue(args, key).(type) {
	case duplex.Args:
		return nested
	case map[string]interface{}:
		return duplex.Args(nested)
	}
	return nil
}

// listArgs extracts a list of argument bags, e.g. createMany data.
func listArgs(args duplex.Args, key string) []duplex.Args {
	switch list := argValue(args, key).(type) {
	case []duplex.Args:
		return list
	case []map[string]interface{}:
		out := make([]duplex.Args, 0, len(list))
		for _, item := range list {
			out = append(out, duplex.Args(item))
		}
		return out
	case []interface{}:
		out := make([]duplex.Args, 0, len(list))
		for _, item := range list {
			switch row := item.(type) {
			case duplex.Args:
				out = append(out, row)
			case map[string]interface{}:
				out = append(out, duplex.Args(row))
			}
		}
		return out
	}
	return nil
}

func argValue(args duplex.Args, key string) interface{} {
	if args == nil {
		return nil
	}
	return args[key]
}

// looseEqual compares values across the integer and float widths msgpack
// decoding produces, falling back to deep equality.
func looseEqual(a, b interface{}) bool {
	if an, aok := toInt64(a); aok {
		if bn, bok := toInt64(b); bok {
			return an == bn
		}
	}
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

func lessValue(a, b interface{}) bool {
	if an, aok := toInt64(a); aok {
		if bn, bok := toInt64(b); bok {
			return an < bn
		}
	}
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			return af < bf
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	return aok && bok && as < bs
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	}
	return 0, false
}

func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	if n, ok := toInt64(value); ok {
		return float64(n), true
	}
	return 0, false
}
