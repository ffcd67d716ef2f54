package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
	"github.com/danielpatrickdp/aisp-verify/internal/lexer"
	"github.com/danielpatrickdp/aisp-verify/internal/symbols"
)

// #region helpers
const header = "𝔸5.1.TestDoc@2026-01-25\n"

const minimalBody = `⟦Ω:Meta⟧{ domain≜test }
⟦Σ:Types⟧{ Unit≜{unit} }
⟦Γ:Rules⟧{ ∀x:Unit→Valid(x) }
⟦Λ:Funcs⟧{ id≜λx.x }
⟦Ε⟧⟨δ≜0.7;τ≜◊⟩
`

func parseString(t *testing.T, src string) (*ast.Document, error) {
	t.Helper()
	toks, err := lexer.Tokenize([]byte(src))
	require.NoError(t, err, "lex")
	return Parse(toks)
}

func mustParse(t *testing.T, src string) *ast.Document {
	t.Helper()
	doc, err := parseString(t, src)
	require.NoError(t, err)
	return doc
}

// withRules builds a complete document around the given Rules body.
func withRules(rules string) string {
	return header + `⟦Ω:Meta⟧{ domain≜test }
⟦Σ:Types⟧{ T≜ℕ }
⟦Γ:Rules⟧{ ` + rules + ` }
⟦Λ:Funcs⟧{ f≜λx.x }
⟦Ε⟧⟨δ≜0.7⟩
`
}

func firstRule(t *testing.T, doc *ast.Document) ast.Statement {
	t.Helper()
	rules := doc.Statements(ast.Rules)
	require.NotEmpty(t, rules)
	return rules[0]
}

// #endregion helpers

// #region document-tests
func TestParseMinimalDocument(t *testing.T) {
	doc := mustParse(t, header+minimalBody)

	assert.Equal(t, "5.1", doc.Header.Version)
	assert.Equal(t, "TestDoc", doc.Header.Name)
	assert.Equal(t, "2026-01-25", doc.Header.Date)

	var tags []ast.BlockTag
	for _, b := range doc.Blocks {
		tags = append(tags, b.Tag)
	}
	assert.Equal(t, []ast.BlockTag{ast.Meta, ast.Types, ast.Rules, ast.Functions, ast.Evidence}, tags)

	def, ok := doc.Statements(ast.Types)[0].(*ast.Definition)
	require.True(t, ok)
	assert.Equal(t, "Unit", def.Name)
	assert.IsType(t, &ast.SetLit{}, def.Value)

	q, ok := firstRule(t, doc).(*ast.Quantified)
	require.True(t, ok)
	assert.Equal(t, symbols.KindForall, q.Quant.Kind)
	assert.Equal(t, "x", q.Quant.Var)
	assert.Equal(t, "Unit", q.Quant.Domain.String())
	assert.Equal(t, "(Valid x)", q.Quant.Body.String())

	ev, ok := doc.Statements(ast.Evidence)[0].(*ast.EvidenceTuple)
	require.True(t, ok)
	assert.Equal(t, "0.7", ev.Field("δ").String())
	tier, ok := ev.Field("τ").(*ast.Tier)
	require.True(t, ok)
	assert.Equal(t, 2, tier.Level)
}

func TestParseHeaderDeclarations(t *testing.T) {
	doc := mustParse(t, header+"γ≔example\nρ≔⟨proof,density⟩\n"+minimalBody)
	assert.Equal(t, "example", doc.Domain)
	assert.Equal(t, []string{"proof", "density"}, doc.Tags)
}

func TestParseSkipsProseBetweenBlocks(t *testing.T) {
	src := "# Title\n\nSome notes here.\n" + header + "More notes.\n" + minimalBody + "\nTrailing words."
	doc := mustParse(t, src)
	assert.Len(t, doc.Blocks, 5)
}

func TestParseMissingEvidenceBlock(t *testing.T) {
	src := header + `⟦Ω:Meta⟧{ domain≜test }
⟦Σ:Types⟧{ Unit≜{unit} }
⟦Γ:Rules⟧{ ∀x:Unit→Valid(x) }
⟦Λ:Funcs⟧{ id≜λx.x }
`
	_, err := parseString(t, src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingRequiredBlock))
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ast.Evidence, perr.Block)
	assert.Contains(t, perr.Msg, "Evidence")
}

func TestParseEmptyRequiredBlock(t *testing.T) {
	src := strings.Replace(header+minimalBody, "{ domain≜test }", "{ }", 1)
	_, err := parseString(t, src)
	assert.ErrorIs(t, err, ErrEmptyRequiredBlock)
}

func TestParseMissingHeader(t *testing.T) {
	_, err := parseString(t, minimalBody)
	assert.ErrorIs(t, err, ErrMissingHeader)
}

func TestParseDuplicateBlock(t *testing.T) {
	_, err := parseString(t, header+minimalBody+"⟦Ω:Meta⟧{ again≜1 }\n")
	assert.ErrorIs(t, err, ErrDuplicateBlock)
}

func TestParseExtensionBlocks(t *testing.T) {
	doc := mustParse(t, header+minimalBody+"⟦Ψ:Notes⟧{ seen≜1 }\n")
	require.NotNil(t, doc.Block("Notes"))

	_, err := parseString(t, header+minimalBody+"⟦Ψ⟧{ seen≜1 }\n")
	assert.ErrorIs(t, err, ErrUnsupportedBlock)
}

func TestParseUnbalancedDelimiters(t *testing.T) {
	cases := map[string]string{
		"unclosed body":   strings.Replace(header+minimalBody, "{ id≜λx.x }", "{ id≜λx.x ", 1),
		"mismatched body": strings.Replace(header+minimalBody, "{ id≜λx.x }", "{ id≜λx.x ⟩", 1),
		"unclosed paren":  withRules("∀x:T:(x≥0"),
		"unclosed tag":    header + "⟦Ω:Meta{ a≜1 }",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseString(t, src)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnbalancedDelimiter)
		})
	}
}

func TestParseCyclicDefinition(t *testing.T) {
	src := strings.Replace(header+minimalBody, "{ id≜λx.x }", "{ a≜b+1; b≜a }", 1)
	_, err := parseString(t, src)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCyclicDefinition)
	assert.Contains(t, err.Error(), "a → b → a")
}

func TestParseLambdaParamsAreNotCycles(t *testing.T) {
	src := strings.Replace(header+minimalBody, "{ id≜λx.x }", "{ x≜1; id≜λx.x }", 1)
	_, err := parseString(t, src)
	require.NoError(t, err)
}

// #endregion document-tests

// #region expression-tests
func TestParseQuantifierForms(t *testing.T) {
	cases := []struct {
		src    string
		domain string
		body   string
	}{
		{"∀x:T:x≥0", "T", "(≥ x 0)"},
		{"∀x:T→P(x)", "T", "(P x)"},
		{"∀x:ℕ.x≥0", "ℕ", "(≥ x 0)"},
		{"∀x∈S:P(x)", "S", "(P x)"},
		{"∀D:Ambig(D)<0.02", "_", "(< (Ambig D) 0.02)"},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			doc := mustParse(t, withRules(tc.src))
			q, ok := firstRule(t, doc).(*ast.Quantified)
			require.True(t, ok, "got %T", firstRule(t, doc))
			dom := "_"
			if q.Quant.Domain != nil {
				dom = q.Quant.Domain.String()
			}
			assert.Equal(t, tc.domain, dom)
			assert.Equal(t, tc.body, q.Quant.Body.String())
		})
	}
}

func TestParseMultipleBoundVariables(t *testing.T) {
	doc := mustParse(t, withRules("∀a,b:T:a+b≥a"))
	assert.Equal(t, "(∀ a:T (∀ b:T (≥ (+ a b) a)))", firstRule(t, doc).String())
}

func TestParseImplicationStatement(t *testing.T) {
	doc := mustParse(t, withRules("P(a)⇒Q(a)"))
	impl, ok := firstRule(t, doc).(*ast.Implication)
	require.True(t, ok)
	assert.Equal(t, symbols.KindImplies, impl.Op)
}

func TestParseAssertionStatement(t *testing.T) {
	doc := mustParse(t, withRules("P(a)∧Q(a)"))
	assert.IsType(t, &ast.Assertion{}, firstRule(t, doc))
}

func TestParseRelationChainIsConjunction(t *testing.T) {
	doc := mustParse(t, withRules("0≤x≤1"))
	assert.Equal(t, "(∧ (≤ 0 x) (≤ x 1))", firstRule(t, doc).String())
}

func TestParseEnumerationSeparators(t *testing.T) {
	comma := mustParse(t, withRules("c∈{Red,Green,Blue}"))
	space := mustParse(t, withRules("c∈{Red Green Blue}"))
	assert.Equal(t, comma.Fingerprint(), space.Fingerprint())
	assert.Equal(t, "(∈ c {Red,Green,Blue})", firstRule(t, space).String())
}

func TestParseFunctionDefinitionWithParams(t *testing.T) {
	src := strings.Replace(header+minimalBody, "{ id≜λx.x }", "{ add(a,b)≜a+b }", 1)
	doc := mustParse(t, src)
	def := doc.Statements(ast.Functions)[0].(*ast.Definition)
	lam, ok := def.Value.(*ast.Lambda)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, lam.Params)
}

func TestParseDomainDimension(t *testing.T) {
	src := strings.Replace(header+minimalBody, "{ Unit≜{unit} }", "{ V_H≜ℝ⁷⁶⁸ }", 1)
	doc := mustParse(t, src)
	def := doc.Statements(ast.Types)[0].(*ast.Definition)
	dom, ok := def.Value.(*ast.DomainRef)
	require.True(t, ok)
	assert.Equal(t, 768, dom.Dim)
	assert.Equal(t, "Real", dom.Sort)
}

func TestParseNewlineSeparatesStatements(t *testing.T) {
	src := strings.Replace(header+minimalBody, "{ id≜λx.x }", "{ a≜b\n(c)≜1 }", 1)
	_, err := parseString(t, src)
	// `(c)≜1` is not a valid statement, but it must not be read as a call b(c).
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedToken)
}

// #endregion expression-tests

// #region strategy-tests
func parseAll(t *testing.T, src string) map[StrategyID]string {
	t.Helper()
	toks, err := lexer.Tokenize([]byte(src))
	require.NoError(t, err)
	out := map[StrategyID]string{}
	for _, s := range AllStrategies() {
		doc, err := ParseWith(toks, s)
		require.NoError(t, err, "strategy %s", s.ID)
		out[s.ID] = doc.Fingerprint()
	}
	return out
}

func TestStrategiesAgreeOnUnambiguousInput(t *testing.T) {
	fp := parseAll(t, withRules("∀x:T:(P(x)∨Q(x))∧R(x); 0≤x≤1; A⇒(B⇒C)"))
	assert.Equal(t, fp[StrategyStrict], fp[StrategyPermissive])
	assert.Equal(t, fp[StrategyStrict], fp[StrategyBacktracking])
}

func TestStrategiesDisagreeOnMixedConnectives(t *testing.T) {
	fp := parseAll(t, withRules("P∨Q∧R"))
	assert.NotEqual(t, fp[StrategyStrict], fp[StrategyPermissive])
	assert.Equal(t, fp[StrategyStrict], fp[StrategyBacktracking])
}

func TestStrategiesDisagreeOnImplicationChains(t *testing.T) {
	fp := parseAll(t, withRules("A⇒B⇒C"))
	assert.Equal(t, fp[StrategyStrict], fp[StrategyPermissive])
	assert.NotEqual(t, fp[StrategyStrict], fp[StrategyBacktracking])
}

// #endregion strategy-tests

// #region typecheck-tests
func issueKinds(issues []TypeIssue) []TypeIssueKind {
	out := make([]TypeIssueKind, len(issues))
	for i, is := range issues {
		out[i] = is.Kind
	}
	return out
}

func TestCheckTypesCleanDocument(t *testing.T) {
	doc := mustParse(t, header+minimalBody)
	assert.Empty(t, CheckTypes(doc))

	doc = mustParse(t, withRules("∀x:T:∀y:x:P(y); ∀r∈Rules:Sound(r); ∀v:RealVector:Q(v)"))
	assert.Empty(t, CheckTypes(doc))
}

func TestCheckTypesUndefinedDomain(t *testing.T) {
	src := withRules("∀x:Undeclared:P(x)")
	doc := mustParse(t, src)
	issues := CheckTypes(doc)
	require.Len(t, issues, 1)
	is := issues[0]
	assert.Equal(t, IssueUndefinedType, is.Kind)
	assert.Equal(t, "Undeclared", is.Name)
	assert.Equal(t, ast.Rules, is.Block)
	assert.Equal(t, strings.Index(src, "Undeclared"), is.Offset)
}

func TestCheckTypesDuplicateDefinitions(t *testing.T) {
	src := header + `⟦Ω:Meta⟧{ domain≜test }
⟦Σ:Types⟧{ T≜ℕ; T≜{a,b} }
⟦Γ:Rules⟧{ ∀x:T:x≥0 }
⟦Λ:Funcs⟧{ f≜λx.x; f≜λy.y }
⟦Ε⟧⟨δ≜0.7⟩
`
	doc := mustParse(t, src)
	issues := CheckTypes(doc)
	assert.Equal(t, []TypeIssueKind{IssueDuplicateDefinition, IssueDuplicateDefinition}, issueKinds(issues))
	assert.Equal(t, ast.Types, issues[0].Block)
	assert.Equal(t, ast.Functions, issues[1].Block)
	assert.Contains(t, issues[0].Msg, "first defined in Types")
}

func TestCheckTypesTypeExpressions(t *testing.T) {
	src := header + `⟦Ω:Meta⟧{ domain≜test }
⟦Σ:Types⟧{ A≜{x,y,x}; B≜A∪Missing; C≜A×A }
⟦Γ:Rules⟧{ ∀v:A:P(v) }
⟦Λ:Funcs⟧{ f≜λx.x }
⟦Ε⟧⟨δ≜0.7⟩
`
	doc := mustParse(t, src)
	issues := CheckTypes(doc)
	assert.Equal(t, []TypeIssueKind{IssueDuplicateMember, IssueUndefinedType}, issueKinds(issues))
	assert.Equal(t, "Missing", issues[1].Name)
}

// #endregion typecheck-tests
