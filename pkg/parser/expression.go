package parser

import "sync"

// Productions of the expression grammar that appear in the parse tree.
const (
	ProdExpression ProductionID = iota + 1
	ProdXor
	ProdOr
	ProdAnd
	ProdNot
	ProdIn
	ProdInList
	ProdInCollection
	ProdShift
	ProdCompare
	ProdAdditive
	ProdMult
	ProdPower
	ProdNegate
	ProdMember
	ProdParen
	ProdIf
	ProdCast
	ProdCastType
	ProdMemberFunction
	ProdCallArguments
	ProdArgumentList
	ProdMemberAccess
	ProdIndexAccess

	// synthetic productions, spliced into their parents
	prodXorTail
	prodOrTail
	prodAndTail
	prodInTail
	prodInTarget
	prodShiftTail
	prodShiftOp
	prodCompareTail
	prodCompareOp
	prodAdditiveTail
	prodAdditiveOp
	prodMultTail
	prodMultOp
	prodPowerTail
	prodMemberTail
	prodBasic
	prodLiteral
	prodArgumentTail
	prodCastTypeTail
	prodArrayRank
)

var expressionGrammar = sync.OnceValues(func() (*Grammar, error) {
	g := NewGrammar(ProdExpression)
	one := func(id ProductionID) *Element { return Ref(id, 1, 1) }
	opt := func(id ProductionID) *Element { return Ref(id, 0, 1) }
	many := func(id ProductionID) *Element { return Ref(id, 0, Unbounded) }
	tok := func(tt TokenType) *Element { return Tok(tt, 1, 1) }

	g.Add(NewProduction(ProdExpression, "Expression").Alt(one(ProdXor)))

	// Logical operators, loosest first.
	g.Add(NewProduction(ProdXor, "XorExpression").Alt(one(ProdOr), many(prodXorTail)))
	g.Add(NewProduction(prodXorTail, "XorTail").Hidden().Alt(tok(TokenXor), one(ProdOr)))
	g.Add(NewProduction(ProdOr, "OrExpression").Alt(one(ProdAnd), many(prodOrTail)))
	g.Add(NewProduction(prodOrTail, "OrTail").Hidden().Alt(tok(TokenOr), one(ProdAnd)))
	g.Add(NewProduction(ProdAnd, "AndExpression").Alt(one(ProdNot), many(prodAndTail)))
	g.Add(NewProduction(prodAndTail, "AndTail").Hidden().Alt(tok(TokenAnd), one(ProdNot)))
	g.Add(NewProduction(ProdNot, "NotExpression").Alt(Tok(TokenNot, 0, 1), one(ProdIn)))

	// Membership test.
	g.Add(NewProduction(ProdIn, "InExpression").Alt(one(ProdShift), opt(prodInTail)))
	g.Add(NewProduction(prodInTail, "InTail").Hidden().Alt(tok(TokenIn), one(prodInTarget)))
	g.Add(NewProduction(prodInTarget, "InTarget").Hidden().
		Alt(one(ProdInList)).
		Alt(one(ProdInCollection)))
	g.Add(NewProduction(ProdInList, "InListTarget").
		Alt(tok(TokenParenOpen), one(ProdArgumentList), tok(TokenParenClose)))
	g.Add(NewProduction(ProdInCollection, "InCollectionTarget").
		Alt(one(ProdMemberFunction), many(prodMemberTail)))

	// Shift binds looser than comparison.
	g.Add(NewProduction(ProdShift, "ShiftExpression").Alt(one(ProdCompare), many(prodShiftTail)))
	g.Add(NewProduction(prodShiftTail, "ShiftTail").Hidden().Alt(one(prodShiftOp), one(ProdCompare)))
	g.Add(NewProduction(prodShiftOp, "ShiftOperator").Hidden().
		Alt(tok(TokenShiftLeft)).
		Alt(tok(TokenShiftRight)))

	g.Add(NewProduction(ProdCompare, "CompareExpression").Alt(one(ProdAdditive), many(prodCompareTail)))
	g.Add(NewProduction(prodCompareTail, "CompareTail").Hidden().Alt(one(prodCompareOp), one(ProdAdditive)))
	g.Add(NewProduction(prodCompareOp, "CompareOperator").Hidden().
		Alt(tok(TokenEqual)).
		Alt(tok(TokenNotEqual)).
		Alt(tok(TokenLess)).
		Alt(tok(TokenLessEqual)).
		Alt(tok(TokenGreater)).
		Alt(tok(TokenGreaterEqual)))

	// Arithmetic.
	g.Add(NewProduction(ProdAdditive, "AdditiveExpression").Alt(one(ProdMult), many(prodAdditiveTail)))
	g.Add(NewProduction(prodAdditiveTail, "AdditiveTail").Hidden().Alt(one(prodAdditiveOp), one(ProdMult)))
	g.Add(NewProduction(prodAdditiveOp, "AdditiveOperator").Hidden().
		Alt(tok(TokenPlus)).
		Alt(tok(TokenMinus)))
	g.Add(NewProduction(ProdMult, "MultiplicativeExpression").Alt(one(ProdPower), many(prodMultTail)))
	g.Add(NewProduction(prodMultTail, "MultiplicativeTail").Hidden().Alt(one(prodMultOp), one(ProdPower)))
	g.Add(NewProduction(prodMultOp, "MultiplicativeOperator").Hidden().
		Alt(tok(TokenMult)).
		Alt(tok(TokenDiv)).
		Alt(tok(TokenMod)))
	g.Add(NewProduction(ProdPower, "PowerExpression").Alt(one(ProdNegate), many(prodPowerTail)))
	g.Add(NewProduction(prodPowerTail, "PowerTail").Hidden().Alt(tok(TokenPower), one(ProdNegate)))
	g.Add(NewProduction(ProdNegate, "NegateExpression").Alt(Tok(TokenMinus, 0, 1), one(ProdMember)))

	// Member chains and primary expressions.
	g.Add(NewProduction(ProdMember, "MemberExpression").Alt(one(prodBasic), many(prodMemberTail)))
	g.Add(NewProduction(prodMemberTail, "MemberTail").Hidden().
		Alt(one(ProdMemberAccess)).
		Alt(one(ProdIndexAccess)))
	g.Add(NewProduction(ProdMemberAccess, "MemberAccessExpression").
		Alt(tok(TokenDot), one(ProdMemberFunction)))
	g.Add(NewProduction(ProdIndexAccess, "IndexExpression").
		Alt(tok(TokenBracketOpen), one(ProdArgumentList), tok(TokenBracketClose)))
	g.Add(NewProduction(prodBasic, "BasicExpression").Hidden().
		Alt(one(prodLiteral)).
		Alt(one(ProdParen)).
		Alt(one(ProdIf)).
		Alt(one(ProdCast)).
		Alt(one(ProdMemberFunction)))
	g.Add(NewProduction(prodLiteral, "Literal").Hidden().
		Alt(tok(TokenInteger)).
		Alt(tok(TokenReal)).
		Alt(tok(TokenHex)).
		Alt(tok(TokenString)).
		Alt(tok(TokenChar)).
		Alt(tok(TokenDateTime)).
		Alt(tok(TokenTimeSpan)).
		Alt(tok(TokenTrue)).
		Alt(tok(TokenFalse)).
		Alt(tok(TokenNull)))
	g.Add(NewProduction(ProdParen, "ParenthesizedExpression").
		Alt(tok(TokenParenOpen), one(ProdExpression), tok(TokenParenClose)))
	g.Add(NewProduction(ProdMemberFunction, "MemberFunctionExpression").
		Alt(tok(TokenIdentifier), opt(ProdCallArguments)))
	g.Add(NewProduction(ProdCallArguments, "CallArguments").
		Alt(tok(TokenParenOpen), opt(ProdArgumentList), tok(TokenParenClose)))
	g.Add(NewProduction(ProdArgumentList, "ArgumentList").
		Alt(one(ProdExpression), many(prodArgumentTail)))
	g.Add(NewProduction(prodArgumentTail, "ArgumentTail").Hidden().
		Alt(tok(TokenArgSeparator), one(ProdExpression)))

	// Special functions.
	g.Add(NewProduction(ProdIf, "IfExpression").
		Alt(tok(TokenIf), tok(TokenParenOpen),
			one(ProdExpression), tok(TokenArgSeparator),
			one(ProdExpression), tok(TokenArgSeparator),
			one(ProdExpression), tok(TokenParenClose)))
	g.Add(NewProduction(ProdCast, "CastExpression").
		Alt(tok(TokenCast), tok(TokenParenOpen),
			one(ProdExpression), tok(TokenArgSeparator),
			one(ProdCastType), tok(TokenParenClose)))
	g.Add(NewProduction(ProdCastType, "CastTypeExpression").
		Alt(tok(TokenIdentifier), many(prodCastTypeTail), opt(prodArrayRank)))
	g.Add(NewProduction(prodCastTypeTail, "CastTypeTail").Hidden().
		Alt(tok(TokenDot), tok(TokenIdentifier)))
	g.Add(NewProduction(prodArrayRank, "ArrayRank").Hidden().
		Alt(tok(TokenBracketOpen), tok(TokenBracketClose)))

	if err := g.Prepare(); err != nil {
		return nil, err
	}
	return g, nil
})
