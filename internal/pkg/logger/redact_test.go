package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "gr***@example.com", RedactEmail("grace.hopper@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
}

func TestRedactPIIValue(t *testing.T) {
	assert.Equal(t, "ad***@example.com", redactPIIValue("email", "ada@example.com"))
	assert.Equal(t, "ad***@example.com", redactPIIValue("recipient", "ada@example.com"))

	// IDs under customer keys are left alone.
	assert.Equal(t, "cust-1234", redactPIIValue("customer_id", "cust-1234"))

	// Emails embedded in generic fields still get masked.
	assert.Equal(t, "send to ad***@example.com failed", redactPIIValue("error", "send to ada@example.com failed"))
}
