// pkg/registry/schema.go
package registry

type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity describes one evaluator. ID is the evaluator name reported in tools_used.
type Activity struct {
	ID          string                 `json:"id"`
	DisplayName string                 `json:"displayName"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Version     string                 `json:"version"`
	TaskType    string                 `json:"taskType"`
	Topic       string                 `json:"topic"`
	InputSchema map[string]interface{} `json:"inputSchema"`
	ErrorCodes  []string               `json:"errorCodes"`
	Timeout     string                 `json:"timeout"`
	// Deterministic evaluators return the same result for the same input and rules, so their
	// results may be cached.
	Deterministic bool     `json:"deterministic"`
	Tags          []string `json:"tags"`
}

func object(properties map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
}

func typed(t, description string) map[string]interface{} {
	return map[string]interface{}{"type": t, "description": description}
}

func minimum(schema map[string]interface{}, bound float64) map[string]interface{} {
	schema["minimum"] = bound
	return schema
}
