package llm

import "fmt"

// ConfigurationError indicates the provider cannot be used because
// credentials or model settings are absent.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("llm not configured: %s", e.Reason)
}

// GenerationError indicates a transport or API failure during generation.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("llm generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// InvalidResponseError indicates the model replied but the reply could not
// be decoded as the requested structure.
type InvalidResponseError struct {
	Raw string
	Err error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("llm response is not valid JSON: %v", e.Err)
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }
