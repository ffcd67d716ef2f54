package parser

// #region strategy-definitions

// StrategyID names a disambiguation strategy.
type StrategyID string

const (
	StrategyStrict       StrategyID = "strict"
	StrategyPermissive   StrategyID = "permissive"
	StrategyBacktracking StrategyID = "backtracking"
)

// Strategy fixes the readings of constructs whose grouping is not
// determined by the grammar alone. Every strategy accepts the same language.
type Strategy struct {
	ID StrategyID
	// FlatConnectives gives ∧ and ∨ one precedence level, grouped left to right.
	FlatConnectives bool
	// LeftAssocImplication groups A⇒B⇒C as (A⇒B)⇒C.
	LeftAssocImplication bool
}

// Strategies holds the built-in strategies.
var Strategies = map[StrategyID]Strategy{
	StrategyStrict: {
		ID: StrategyStrict,
	},
	StrategyPermissive: {
		ID:              StrategyPermissive,
		FlatConnectives: true,
	},
	StrategyBacktracking: {
		ID:                   StrategyBacktracking,
		LeftAssocImplication: true,
	},
}

// #endregion

// #region order

// StrategyOrder is the order interpretations are produced in. The first
// entry is the canonical reading.
var StrategyOrder = []StrategyID{StrategyStrict, StrategyPermissive, StrategyBacktracking}

// AllStrategies returns the built-in strategies in StrategyOrder.
func AllStrategies() []Strategy {
	out := make([]Strategy, len(StrategyOrder))
	for i, id := range StrategyOrder {
		out[i] = Strategies[id]
	}
	return out
}

// #endregion
