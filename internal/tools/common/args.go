package common

// GetCalendarFromArgs extracts the calendar name from request arguments.
// Returns the empty string when no calendar argument was provided.
func GetCalendarFromArgs(args map[string]interface{}) string {
	if calVal, ok := args["calendar"].(string); ok {
		return calVal
	}
	return ""
}

// GetBoolArg extracts a boolean argument, returning the fallback when the
// argument is absent or not a boolean.
func GetBoolArg(args map[string]interface{}, key string, fallback bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return fallback
}

// GetIntArg extracts an integer argument. JSON numbers arrive as float64,
// so whole-number floats are accepted.
func GetIntArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	case int:
		return v
	}
	return fallback
}
