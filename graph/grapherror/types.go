// Package grapherror provides structured errors for the graph view pipeline.
//
// Errors carry a category, an optional subcategory, a user-facing message
// for the error card, and a context map for debugging. ToMeta feeds the
// render layer; ToLogFields feeds zap.
package grapherror

import (
	"fmt"
	"time"
)

// GraphError represents an error in the graph pipeline with structured context
type GraphError struct {
	Err         error                  // Underlying error
	Category    Category               // Main category
	Subcategory string                 // Optional subcategory
	UserMessage string                 // User-friendly message for display
	Context     map[string]interface{} // Additional context for debugging
	Timestamp   time.Time              // When the error occurred
}

// Error implements the error interface
func (e *GraphError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.UserMessage
}

// Unwrap returns the underlying error for errors.Is/As compatibility
func (e *GraphError) Unwrap() error {
	return e.Err
}

// New creates a new GraphError with the specified category and messages
func New(category Category, err error, userMsg string) *GraphError {
	return &GraphError{
		Err:         err,
		Category:    category,
		UserMessage: userMsg,
		Context:     make(map[string]interface{}),
		Timestamp:   time.Now(),
	}
}

// WithSubcategory adds a subcategory to the error
func (e *GraphError) WithSubcategory(sub string) *GraphError {
	e.Subcategory = sub
	return e
}

// WithContext adds a context key-value pair for debugging
func (e *GraphError) WithContext(key string, value interface{}) *GraphError {
	e.Context[key] = value
	return e
}

// ToMeta converts the error to string metadata for the error card shown in
// place of the graph.
func (e *GraphError) ToMeta() map[string]string {
	meta := map[string]string{
		"error":          e.Error(),
		"error_category": e.Category.String(),
		"error_message":  e.UserMessage,
		"error_time":     e.Timestamp.Format(time.RFC3339),
	}
	if e.Subcategory != "" {
		meta["error_subcategory"] = e.Subcategory
	}
	return meta
}

// ToLogFields converts the error to zap structured log fields
func (e *GraphError) ToLogFields() []interface{} {
	fields := []interface{}{
		"error", e.Error(),
		"category", e.Category.String(),
		"user_message", e.UserMessage,
	}
	if e.Subcategory != "" {
		fields = append(fields, "subcategory", e.Subcategory)
	}
	for k, v := range e.Context {
		fields = append(fields, "ctx_"+k, fmt.Sprintf("%v", v))
	}
	return fields
}
