package privacy

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultRules(t *testing.T) {
	registry, err := LoadDefaultRules()
	require.NoError(t, err)

	assert.Equal(t, []string{
		CategoryEmail,
		CategoryCreditCard,
		CategorySSN,
		CategoryIPAddress,
		CategoryPhone,
		CategoryDate,
		CategoryStreetAddress,
		CategoryPostalCode,
	}, registry.Names())

	card, ok := registry.Rule(CategoryCreditCard)
	require.True(t, ok)
	assert.Equal(t, StylePreserve, card.Style)
	assert.NotNil(t, card.Validate)
}

func TestAddRule(t *testing.T) {
	t.Run("duplicate name", func(t *testing.T) {
		registry := NewRegistry()
		rule := PatternRule{Name: "TICKET", Pattern: regexp.MustCompile(`TCK-\d+`)}
		require.NoError(t, registry.AddRule(rule))

		err := registry.AddRule(rule)
		var dup *DuplicateNameError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "TICKET", dup.Name)
		assert.Equal(t, 1, registry.Len())
	})

	t.Run("empty name", func(t *testing.T) {
		err := NewRegistry().AddRule(PatternRule{Pattern: regexp.MustCompile(`x`)})
		var cfgErr *ConfigError
		assert.True(t, errors.As(err, &cfgErr))
	})

	t.Run("nil pattern", func(t *testing.T) {
		err := NewRegistry().AddRule(PatternRule{Name: "NOTHING"})
		var cfgErr *ConfigError
		assert.True(t, errors.As(err, &cfgErr))
	})

	t.Run("placeholder matched by own pattern", func(t *testing.T) {
		err := NewRegistry().AddRule(PatternRule{
			Name:    "SHOUTING",
			Pattern: regexp.MustCompile(`[A-Z]{4,}`),
		})
		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "SHOUTING", cfgErr.Rule)
	})

	t.Run("zero value registry", func(t *testing.T) {
		var registry Registry
		require.NoError(t, registry.AddRule(PatternRule{Name: "TICKET", Pattern: regexp.MustCompile(`TCK-\d+`)}))
		assert.Equal(t, []string{"TICKET"}, registry.Names())
	})

	t.Run("preserve rule placeholder matched by own pattern", func(t *testing.T) {
		err := NewRegistry().AddRule(PatternRule{
			Name:    "BRACKETED",
			Pattern: regexp.MustCompile(`\[\w+\]`),
			Style:   StylePreserve,
		})
		var cfgErr *ConfigError
		assert.True(t, errors.As(err, &cfgErr))
	})

	t.Run("style defaults to tag", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.AddRule(PatternRule{Name: "TICKET", Pattern: regexp.MustCompile(`TCK-\d+`)}))
		rule, ok := registry.Rule("TICKET")
		require.True(t, ok)
		assert.Equal(t, StyleTag, rule.Style)
	})
}

func TestCompileRule(t *testing.T) {
	tests := []struct {
		name    string
		def     RuleDef
		wantErr bool
	}{
		{name: "valid tag", def: RuleDef{Name: "EMPLOYEE_ID", Pattern: `\bE\d{6}\b`}},
		{name: "valid preserve", def: RuleDef{Name: "IBAN", Pattern: `\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`, Style: "preserve"}},
		{name: "style is case insensitive", def: RuleDef{Name: "X", Pattern: `x\d`, Style: "TAG"}},
		{name: "malformed pattern", def: RuleDef{Name: "BROKEN", Pattern: `(unclosed`}, wantErr: true},
		{name: "empty pattern", def: RuleDef{Name: "EMPTY"}, wantErr: true},
		{name: "missing name", def: RuleDef{Pattern: `x`}, wantErr: true},
		{name: "unknown style", def: RuleDef{Name: "X", Pattern: `x`, Style: "hash"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := CompileRule(tt.def)
			if tt.wantErr {
				var cfgErr *ConfigError
				assert.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.def.Name, rule.Name)
			assert.NotNil(t, rule.Pattern)
		})
	}
}

func TestSelect(t *testing.T) {
	registry, err := LoadDefaultRules()
	require.NoError(t, err)

	t.Run("all", func(t *testing.T) {
		selected, err := registry.Select([]string{"all"})
		require.NoError(t, err)
		assert.Equal(t, registry.Names(), selected.Names())
	})

	t.Run("keeps registry order", func(t *testing.T) {
		selected, err := registry.Select([]string{CategoryPhone, CategoryEmail})
		require.NoError(t, err)
		assert.Equal(t, []string{CategoryEmail, CategoryPhone}, selected.Names())
	})

	t.Run("unknown detector", func(t *testing.T) {
		_, err := registry.Select([]string{"PASSPORT"})
		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "PASSPORT", cfgErr.Rule)
	})

	t.Run("none", func(t *testing.T) {
		selected, err := registry.Select(nil)
		require.NoError(t, err)
		assert.Equal(t, 0, selected.Len())
	})
}

func TestLuhnValid(t *testing.T) {
	assert.True(t, luhnValid("4111 1111 1111 1111"))
	assert.True(t, luhnValid("5500-0000-0000-0004"))
	assert.True(t, luhnValid("378282246310005"))
	assert.False(t, luhnValid("1234 5678 9012 3456"))
	assert.False(t, luhnValid("4111"))
}
