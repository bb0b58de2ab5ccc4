package runner

// maskedValue replaces secret option values wherever configuration is echoed
// back to a caller.
const maskedValue = "--------"

// Property describes a single configuration field.
type Property struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Default any    `json:"default,omitempty"`
}

// Schema is a JSON Schema-like descriptor of a runner's configuration:
// which fields exist, which are secret, their presentation order, and which
// are mandatory.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Secret     []string            `json:"secret"`
	Order      []string            `json:"order"`
	Required   []string            `json:"required"`
}

// IsSecret reports whether the named field is declared secret.
func (s Schema) IsSecret(field string) bool {
	for _, f := range s.Secret {
		if f == field {
			return true
		}
	}
	return false
}

// MaskOptions returns a copy of options with every secret field's value
// replaced. Secret values must never be echoed back to a caller or logged.
func (s Schema) MaskOptions(options map[string]any) map[string]any {
	masked := make(map[string]any, len(options))
	for k, v := range options {
		if s.IsSecret(k) {
			masked[k] = maskedValue
		} else {
			masked[k] = v
		}
	}
	return masked
}

// MissingRequired returns the required fields absent from options, in schema
// order.
func (s Schema) MissingRequired(options map[string]any) []string {
	var missing []string
	for _, f := range s.Required {
		if _, ok := options[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}
