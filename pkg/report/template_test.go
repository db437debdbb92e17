package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplacePlaceholdersBasicTypes(t *testing.T) {
	ctx := map[string]any{
		"name":    "Jane",
		"passed":  true,
		"failed":  false,
		"missing": nil,
	}
	out := replacePlaceholders("<name> passed=<passed> failed=<failed> x=<missing> y=<absent>", ctx, "Unknown")
	assert.Equal(t, "Jane passed=Yes failed=No x=Unknown y=Unknown", out)
}

func TestReplacePlaceholdersNeverMatchesConditionalTags(t *testing.T) {
	ctx := map[string]any{"field": "value"}
	out := replacePlaceholders("<if:field>keep <field></if:field>", ctx, "Unknown")
	assert.Equal(t, "<if:field>keep value</if:field>", out)
}

func TestProcessConditionalsIncludesTruthyBlock(t *testing.T) {
	ctx := map[string]any{"passed": true}
	out := processConditionals("before<if:passed>PASSED</if:passed>after", ctx, "Unknown")
	assert.Equal(t, "beforePASSEDafter", out)
}

func TestProcessConditionalsDropsFalsyBlock(t *testing.T) {
	ctx := map[string]any{"passed": false}
	out := processConditionals("before<if:passed>PASSED</if:passed>after", ctx, "Unknown")
	assert.Equal(t, "beforeafter", out)
}

func TestProcessConditionalsTreatsUnknownPlaceholderAsFalsy(t *testing.T) {
	ctx := map[string]any{"driver": "Unknown"}
	out := processConditionals("<if:driver>Driver: <driver></if:driver>", ctx, "Unknown")
	assert.Equal(t, "", out)
}

func TestProcessConditionalsResolvesDifferentlyNamedNesting(t *testing.T) {
	ctx := map[string]any{"outer": true, "inner": true}
	out := processConditionals("<if:outer>O<if:inner>I</if:inner>O</if:outer>", ctx, "Unknown")
	assert.Equal(t, "OIO", out)
}

func TestProcessConditionalsDropsOuterHidesInner(t *testing.T) {
	ctx := map[string]any{"outer": false, "inner": true}
	out := processConditionals("<if:outer>O<if:inner>I</if:inner>O</if:outer>", ctx, "Unknown")
	assert.Equal(t, "", out)
}

func TestRenderCollapsesBlankLineRuns(t *testing.T) {
	out := render("a\n\n\n\n\nb", map[string]any{}, "Unknown")
	assert.Equal(t, "a\n\nb", out)
}
