package backtest

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fastSpec = SMA{Period: 2, Source: SourceClose}
	slowSpec = SMA{Period: 4, Source: SourceClose}
)

func seriesOf(values ...float64) Series {
	out := make(Series, len(values))
	for i, v := range values {
		if v < 0 {
			out[i] = optional.None[float64]()
			continue
		}
		out[i] = optional.Some(v)
	}
	return out
}

// fixture series: negative entries are undefined.
func ruleFixture() *Indicators {
	return &Indicators{
		series: map[IndicatorSpec]Series{
			fastSpec: seriesOf(-1, 1, 3, 5, 4, 2),
			slowSpec: seriesOf(-1, -1, 4, 4, 4, 4),
		},
		order: []IndicatorSpec{fastSpec, slowSpec},
	}
}

func mustCondition(t *testing.T, left IndicatorSpec, op Operator, right Operand) Condition {
	t.Helper()
	c, err := NewCondition(left, op, right)
	require.NoError(t, err)
	return c
}

func TestCondition_Evaluate(t *testing.T) {
	ind := ruleFixture()

	tests := []struct {
		name  string
		op    Operator
		right Operand
		index int
		want  bool
	}{
		{name: "cross up on the crossing bar", op: OpCrossUp, right: IndicatorRef{Spec: slowSpec}, index: 3, want: true},
		{name: "cross up not repeated", op: OpCrossUp, right: IndicatorRef{Spec: slowSpec}, index: 4, want: false},
		{name: "cross up with undefined previous right", op: OpCrossUp, right: IndicatorRef{Spec: slowSpec}, index: 2, want: false},
		{name: "cross down on the crossing bar", op: OpCrossDown, right: IndicatorRef{Spec: slowSpec}, index: 5, want: true},
		{name: "cross down touching from above", op: OpCrossDown, right: IndicatorRef{Spec: slowSpec}, index: 4, want: false},
		{name: "cross at index 0", op: OpCrossUp, right: IndicatorRef{Spec: slowSpec}, index: 0, want: false},
		{name: "greater than indicator", op: OpGreater, right: IndicatorRef{Spec: slowSpec}, index: 3, want: true},
		{name: "greater than undefined indicator", op: OpGreater, right: IndicatorRef{Spec: slowSpec}, index: 1, want: false},
		{name: "less than value", op: OpLess, right: FixedValue(2), index: 1, want: true},
		{name: "less than value strict", op: OpLess, right: FixedValue(2), index: 5, want: false},
		{name: "less equal value", op: OpLessEqual, right: FixedValue(2), index: 5, want: true},
		{name: "greater equal value", op: OpGreaterEqual, right: FixedValue(4), index: 4, want: true},
		{name: "undefined left", op: OpGreater, right: FixedValue(-100), index: 0, want: false},
		{name: "out of range index", op: OpGreater, right: FixedValue(0), index: 99, want: false},
		{name: "missing series", op: OpGreater, right: IndicatorRef{Spec: RSI{Period: 14}}, index: 3, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustCondition(t, fastSpec, tt.op, tt.right)
			assert.Equal(t, tt.want, c.Evaluate(ind, tt.index))
		})
	}
}

func TestCondition_CrossAgainstValueIsFalse(t *testing.T) {
	// bypasses NewCondition on purpose
	c := Condition{Left: fastSpec, Op: OpCrossUp, Right: FixedValue(2)}
	assert.False(t, c.Evaluate(ruleFixture(), 2))

	c = Condition{Left: fastSpec, Op: OpGreater}
	assert.False(t, c.Evaluate(ruleFixture(), 3))
}

func TestNewCondition(t *testing.T) {
	_, err := NewCondition(fastSpec, OpCrossUp, FixedValue(10))
	assert.ErrorIs(t, err, ErrInvalidCondition)

	_, err = NewCondition(fastSpec, OpCrossDown, IndicatorRef{})
	assert.ErrorIs(t, err, ErrInvalidCondition)

	_, err = NewCondition(fastSpec, OpGreater, nil)
	assert.ErrorIs(t, err, ErrInvalidCondition)

	_, err = NewCondition(nil, OpGreater, FixedValue(1))
	assert.ErrorIs(t, err, ErrInvalidCondition)

	_, err = NewCondition(fastSpec, "cross_above", IndicatorRef{Spec: slowSpec})
	assert.ErrorIs(t, err, ErrInvalidOperator)

	c, err := NewCondition(fastSpec, OpLessEqual, FixedValue(30))
	require.NoError(t, err)
	assert.Equal(t, Condition{Left: fastSpec, Op: OpLessEqual, Right: FixedValue(30)}, c)
}

func TestParseOperator(t *testing.T) {
	for _, s := range []string{">", "<", ">=", "<=", "cross_up", "cross_down"} {
		op, err := ParseOperator(s)
		require.NoError(t, err)
		assert.Equal(t, Operator(s), op)
	}

	_, err := ParseOperator("==")
	assert.ErrorIs(t, err, ErrInvalidOperator)
}

func TestRuleSet_Evaluate(t *testing.T) {
	ind := ruleFixture()
	aboveSlow := mustCondition(t, fastSpec, OpGreater, IndicatorRef{Spec: slowSpec})
	belowTwo := mustCondition(t, fastSpec, OpLess, FixedValue(2))
	never := mustCondition(t, fastSpec, OpGreater, FixedValue(1000))

	t.Run("empty rule set is true at every index", func(t *testing.T) {
		for i := -1; i <= 6; i++ {
			assert.True(t, RuleSet{}.Evaluate(ind, i), "index %d", i)
			assert.True(t, RuleSet{All: []Condition{}, Any: []Condition{}}.Evaluate(ind, i), "index %d", i)
		}
	})

	t.Run("all only reduces to its conjunction", func(t *testing.T) {
		rs := RuleSet{All: []Condition{aboveSlow}}
		for i := 0; i < 6; i++ {
			assert.Equal(t, aboveSlow.Evaluate(ind, i), rs.Evaluate(ind, i), "index %d", i)
		}
	})

	t.Run("any only reduces to its disjunction", func(t *testing.T) {
		rs := RuleSet{Any: []Condition{aboveSlow, belowTwo}}
		for i := 0; i < 6; i++ {
			want := aboveSlow.Evaluate(ind, i) || belowTwo.Evaluate(ind, i)
			assert.Equal(t, want, rs.Evaluate(ind, i), "index %d", i)
		}
	})

	t.Run("missing any list is vacuously true", func(t *testing.T) {
		// an empty disjunction would normally be false; here it passes
		assert.True(t, RuleSet{All: []Condition{belowTwo}}.Evaluate(ind, 1))
	})

	t.Run("all and any are combined with AND", func(t *testing.T) {
		assert.True(t, RuleSet{All: []Condition{aboveSlow}, Any: []Condition{never, aboveSlow}}.Evaluate(ind, 3))
		assert.False(t, RuleSet{All: []Condition{aboveSlow}, Any: []Condition{never}}.Evaluate(ind, 3))
		assert.False(t, RuleSet{All: []Condition{aboveSlow, never}}.Evaluate(ind, 3))
	})
}

func TestStrategy_IndicatorSpecs(t *testing.T) {
	rsi := RSI{Period: 14}
	s := Strategy{
		Entry: &RuleSet{
			All: []Condition{{Left: fastSpec, Op: OpCrossUp, Right: IndicatorRef{Spec: slowSpec}}},
			Any: []Condition{{Left: rsi, Op: OpLess, Right: FixedValue(30)}},
		},
		Exit: &RuleSet{
			Any: []Condition{{Left: slowSpec, Op: OpCrossDown, Right: IndicatorRef{Spec: fastSpec}}},
		},
	}

	assert.Equal(t, []IndicatorSpec{fastSpec, slowSpec, rsi}, s.IndicatorSpecs())
	assert.Empty(t, Strategy{}.IndicatorSpecs())
}
