package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhoneNumber(t *testing.T) {
	t.Run("prepends default prefix when no country code", func(t *testing.T) {
		assert.Equal(t, "+50688881234", NormalizePhoneNumber("8888-1234", "+506"))
	})

	t.Run("preserves explicit country code", func(t *testing.T) {
		assert.Equal(t, "+14155551234", NormalizePhoneNumber("+1 (415) 555-1234", "+506"))
	})

	t.Run("strips formatting characters", func(t *testing.T) {
		assert.Equal(t, "+50622334455", NormalizePhoneNumber("2233.44.55", "+506"))
	})

	t.Run("is idempotent", func(t *testing.T) {
		once := NormalizePhoneNumber("88881234", "+506")
		assert.Equal(t, once, NormalizePhoneNumber(once, "+506"))
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		assert.Empty(t, NormalizePhoneNumber("", "+506"))
		assert.Empty(t, NormalizePhoneNumber("   ", "+506"))
	})

	t.Run("works without a default prefix", func(t *testing.T) {
		assert.Equal(t, "+88881234", NormalizePhoneNumber("88881234", ""))
	})
}

func TestNormalizeEmailAddress(t *testing.T) {
	assert.Equal(t, "ana@x.com", NormalizeEmailAddress("  ANA@x.com  "))
	assert.Equal(t, "ana@x.com", NormalizeEmailAddress(NormalizeEmailAddress("ANA@X.COM")))
	assert.Empty(t, NormalizeEmailAddress("   "))
}

func TestNormalizeCurrencyAmount(t *testing.T) {
	t.Run("parses plain amounts", func(t *testing.T) {
		assert.InDelta(t, 120.5, NormalizeCurrencyAmount("120.50"), 0.001)
	})

	t.Run("strips currency symbols", func(t *testing.T) {
		assert.InDelta(t, 1200.0, NormalizeCurrencyAmount("$1200"), 0.001)
		assert.InDelta(t, 99.9, NormalizeCurrencyAmount("₡ 99.90"), 0.001)
	})

	t.Run("normalizes comma decimal separator", func(t *testing.T) {
		assert.InDelta(t, 1234.56, NormalizeCurrencyAmount("1.234,56"), 0.001)
		assert.InDelta(t, 1234.56, NormalizeCurrencyAmount("1,234.56"), 0.001)
	})

	t.Run("empty input yields zero", func(t *testing.T) {
		assert.Zero(t, NormalizeCurrencyAmount(""))
		assert.Zero(t, NormalizeCurrencyAmount("N/A"))
	})
}

func TestRuleApply(t *testing.T) {
	t.Run("uppercase", func(t *testing.T) {
		got, err := Rule{Kind: RuleUppercase}.Apply("abc")
		require.NoError(t, err)
		assert.Equal(t, "ABC", got)
	})

	t.Run("capitalize words", func(t *testing.T) {
		got, err := Rule{Kind: RuleCapitalize}.Apply("ana maría rojas")
		require.NoError(t, err)
		assert.Equal(t, "Ana María Rojas", got)
	})

	t.Run("prefix and suffix", func(t *testing.T) {
		got, err := Rule{Kind: RulePrefix, Arg: "SKU-"}.Apply("100")
		require.NoError(t, err)
		assert.Equal(t, "SKU-100", got)

		got, err = Rule{Kind: RuleSuffix, Arg: "-CR"}.Apply("100")
		require.NoError(t, err)
		assert.Equal(t, "100-CR", got)
	})

	t.Run("regex replace", func(t *testing.T) {
		got, err := Rule{Kind: RuleRegexReplace, Arg: `\s+`, Replace: " "}.Apply("a   b")
		require.NoError(t, err)
		assert.Equal(t, "a b", got)
	})

	t.Run("invalid regex reports error", func(t *testing.T) {
		_, err := Rule{Kind: RuleRegexReplace, Arg: `[`}.Apply("x")
		require.Error(t, err)
	})

	t.Run("custom function", func(t *testing.T) {
		rule := Rule{Kind: RuleCustom, Func: func(s string) string { return s + "!" }}
		got, err := rule.Apply("hey")
		require.NoError(t, err)
		assert.Equal(t, "hey!", got)
	})

	t.Run("custom without function reports error", func(t *testing.T) {
		_, err := Rule{Kind: RuleCustom}.Apply("x")
		require.Error(t, err)
	})
}
