package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "jane.doe@example.com", Normalize("  Jane.Doe@Example.COM \n"))
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "jane.doe+fit@mail.example.com", "x@y.z"}
	for _, v := range valid {
		assert.True(t, IsValidEmail(v), v)
	}

	invalid := []string{"", "plain", "no-at.example.com", "a@b", "a@@b.com", "a b@c.com", "@b.com", "a@.com."}
	for _, v := range invalid {
		assert.False(t, IsValidEmail(v), v)
	}
}
