package types

const redactedPlaceholder = "***REDACTED***"

// SecretString keeps credentials out of logs and JSON dumps. fmt and
// encoding/json see a placeholder; Unmask returns the real value.
type SecretString string

func (s SecretString) String() string {
	return redactedPlaceholder
}

func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redactedPlaceholder + `"`), nil
}

// Unmask returns the plaintext. Only call it where the raw value is handed
// to a driver or an Authorization header.
func (s SecretString) Unmask() string {
	return string(s)
}

// IsSet reports whether a non-empty secret was configured.
func (s SecretString) IsSet() bool {
	return s != ""
}
