package modelrouter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCondition(t *testing.T) {
	t.Run("Greater", func(t *testing.T) {
		cond, err := ParseCondition("thread_length > 8000")
		require.NoError(t, err)
		assert.Equal(t, FieldThreadLength, cond.Field)
		assert.Equal(t, CmpGreater, cond.Cmp)
		assert.Equal(t, 8000, cond.Number)
	})

	t.Run("Contains", func(t *testing.T) {
		cond, err := ParseCondition(`styles contains ["shakespearean", "joycean"]`)
		require.NoError(t, err)
		assert.Equal(t, FieldStyles, cond.Field)
		assert.Equal(t, CmpContains, cond.Cmp)
		assert.Equal(t, []string{"shakespearean", "joycean"}, cond.Values)
	})

	t.Run("Equal", func(t *testing.T) {
		cond, err := ParseCondition("high_stakes_post == true")
		require.NoError(t, err)
		assert.Equal(t, CmpEqual, cond.Cmp)
		assert.Equal(t, "true", cond.Value)
	})

	t.Run("Truthy", func(t *testing.T) {
		cond, err := ParseCondition("multi_layered_ethical_debate")
		require.NoError(t, err)
		assert.Equal(t, CmpTruthy, cond.Cmp)
	})

	t.Run("UnknownFieldFails", func(t *testing.T) {
		_, err := ParseCondition("unknown_field > 10")
		assert.Error(t, err)
	})

	t.Run("BadNumberFails", func(t *testing.T) {
		_, err := ParseCondition("thread_length > lots")
		assert.Error(t, err)
	})

	t.Run("EmptyFails", func(t *testing.T) {
		_, err := ParseCondition("  ")
		assert.Error(t, err)
	})
}

func TestConditionEval(t *testing.T) {
	t.Run("GreaterOnContextLength", func(t *testing.T) {
		cond, err := ParseCondition("context_length > 100")
		require.NoError(t, err)
		assert.True(t, cond.Eval(EvalContext{ContextLength: 101}))
		assert.False(t, cond.Eval(EvalContext{ContextLength: 100}))
	})

	t.Run("GreaterOnProblemDescription", func(t *testing.T) {
		cond, err := ParseCondition("problem_description_length > 3")
		require.NoError(t, err)
		assert.True(t, cond.Eval(EvalContext{ProblemDescription: "long enough"}))
		assert.False(t, cond.Eval(EvalContext{ProblemDescription: "no"}))
	})

	t.Run("ContainsOnList", func(t *testing.T) {
		cond, err := ParseCondition(`styles contains ["joycean"]`)
		require.NoError(t, err)
		assert.True(t, cond.Eval(EvalContext{Styles: []string{"plain", "joycean"}}))
		assert.False(t, cond.Eval(EvalContext{Styles: []string{"plain"}}))
	})

	t.Run("ContainsOnScalar", func(t *testing.T) {
		cond, err := ParseCondition(`persona contains ["socratic", "stoic"]`)
		require.NoError(t, err)
		assert.True(t, cond.Eval(EvalContext{Persona: "stoic"}))
		assert.False(t, cond.Eval(EvalContext{Persona: "daoist"}))
	})

	t.Run("EqualBool", func(t *testing.T) {
		cond, err := ParseCondition("high_stakes_post == true")
		require.NoError(t, err)
		assert.True(t, cond.Eval(EvalContext{HighStakes: true}))
		assert.False(t, cond.Eval(EvalContext{HighStakes: false}))

		negated, err := ParseCondition("high_stakes_post == false")
		require.NoError(t, err)
		assert.True(t, negated.Eval(EvalContext{HighStakes: false}))
	})

	t.Run("EqualString", func(t *testing.T) {
		cond, err := ParseCondition("position_complexity == high")
		require.NoError(t, err)
		assert.True(t, cond.Eval(EvalContext{Complexity: "high"}))
		assert.False(t, cond.Eval(EvalContext{Complexity: "low"}))
	})

	t.Run("TruthyEthicalDebate", func(t *testing.T) {
		cond, err := ParseCondition("multi_layered_ethical_debate")
		require.NoError(t, err)
		assert.True(t, cond.Eval(EvalContext{FocusTraditions: []string{"a", "b", "c"}}))
		assert.False(t, cond.Eval(EvalContext{FocusTraditions: []string{"a", "b"}}))
	})
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 1000, EstimateTokens(string(make([]byte, 4000))))
}
