package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSingleEval(t *testing.T) {
	engine := Default()

	report := engine.Validate("eval('x')")

	assert.False(t, report.Valid)
	require.Len(t, report.Violations, 1)
	assert.Empty(t, report.Warnings)

	v := report.Violations[0]
	assert.Equal(t, "eval-call", v.RuleID)
	assert.Equal(t, CategoryCodeInjection, v.Category)
	assert.Equal(t, SeverityCritical, v.Severity)
	assert.Equal(t, 1, v.Line)
	assert.Equal(t, 1, v.Column)
	assert.Equal(t, "eval('x')", v.Context)
	assert.Less(t, report.Entropy, 4.5)
	assert.Equal(t, 9, report.CodeSize)
}

func TestValidateBlocksByCategory(t *testing.T) {
	engine := Default()

	tests := []struct {
		name     string
		code     string
		category Category
	}{
		{"bracket eval", `window['eval']('1')`, CategoryCodeInjection},
		{"aliased eval", "var x = eval; x('1');", CategoryCodeInjection},
		{"aliased Function", "var F = Function; F('1')();", CategoryCodeInjection},
		{"Function constructor", `new Function("return 1")();`, CategoryCodeInjection},
		{"constructor chain", "[].constructor.constructor('return 1')();", CategoryCodeInjection},
		{"string timeout", `setTimeout("tick()", 10);`, CategoryTimerInjection},
		{"string interval", "setInterval('tick()', 10);", CategoryTimerInjection},
		{"document write", "document.write('<b>x</b>');", CategoryDOMWrite},
		{"inner html", "el.innerHTML = '<b>x</b>';", CategoryDOMWrite},
		{"outer html append", "el.outerHTML += '<b>x</b>';", CategoryDOMWrite},
		{"proto", "a.__proto__.b = 1;", CategoryPrototypePollution},
		{"object prototype", "Object.prototype.z = 1;", CategoryPrototypePollution},
		{"set prototype", "Object.setPrototypeOf(a, b);", CategoryPrototypePollution},
		{"location", "window.location = 'http://x';", CategoryGlobalAccess},
		{"location href", "document.location.href = 'http://x';", CategoryGlobalAccess},
		{"global this", "globalThis.alert(1);", CategoryGlobalAccess},
		{"this capture", "(function() { return this; })();", CategoryGlobalAccess},
		{"computed call", "window[name]();", CategoryGlobalAccess},
		{"fetch", "fetch('/x');", CategoryNetworkAccess},
		{"xhr", "new XMLHttpRequest();", CategoryNetworkAccess},
		{"import", "import('/x.js');", CategoryNetworkAccess},
		{"websocket", "new WebSocket('wss://x');", CategoryNetworkAccess},
		{"beacon", "navigator.sendBeacon('/x', 1);", CategoryNetworkAccess},
		{"unicode chain", `\u0065\u0076\u0061\u006c('1');`, CategoryObfuscation},
		{"hex chain", `\x65\x76\x61\x6c('1');`, CategoryObfuscation},
		{"split eval", "var k = 'ev' + 'al';", CategoryObfuscation},
		{"split function", "var k = 'Func' + 'tion';", CategoryObfuscation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := engine.Validate(tt.code)
			require.False(t, report.Valid, "expected %q to be blocked", tt.code)
			assert.Contains(t, report.ByCategory(), tt.category)
		})
	}
}

func TestValidateAdmitsOrdinaryCode(t *testing.T) {
	engine := Default()

	tests := []struct {
		name string
		code string
	}{
		{"function declaration", "function createPlayer() { return { x: 0, y: 0 }; }"},
		{"arrow", "const move = (p, dx) => { p.x += dx; };"},
		{"timer with callback", "setTimeout(function() { tick(); }, 100);"},
		{"interval with arrow", "setInterval(() => { step(); }, 16);"},
		{"equality with eval-like name", "if (mode === evaluate) { run(); }"},
		{"retrieval word", "var medieval = 1;"},
		{"own fetch method", "loader.fetchAll();"},
		{"comment mention", "// eval('x') is not allowed\nvar a = 1;"},
		{"block comment mention", "/* fetch('x') */\nvar a = 1;"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := engine.Validate(tt.code)
			assert.True(t, report.Valid, "unexpected violations: %+v", report.Violations)
			assert.Empty(t, report.Violations)
		})
	}
}

func TestValidateStorageIsWarningOnly(t *testing.T) {
	engine := Default()

	report := engine.Validate("localStorage.setItem('k', 'v');")

	assert.True(t, report.Valid)
	assert.Empty(t, report.Violations)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, CategoryStorageAccess, report.Warnings[0].Category)
	assert.Equal(t, SeverityMedium, report.Warnings[0].Severity)
	assert.NoError(t, report.Err())
}

func TestValidateFunctionDisambiguation(t *testing.T) {
	engine := Default()

	// A declaration on the same line suppresses the constructor finding.
	report := engine.Validate("var f = function() {}; var g = Function('return 2');")
	assert.True(t, report.Valid)

	// The constructor call alone must not count as a declaration.
	report = engine.Validate("var g = Function('return 2');")
	assert.False(t, report.Valid)

	// eval is never disambiguated.
	report = engine.Validate("function run() { eval('1'); }")
	assert.False(t, report.Valid)
}

func TestValidatePositions(t *testing.T) {
	engine := Default()

	code := "var a = 1;\n\n  var b = fetch('/x');\r\nfetch('/y');"
	report := engine.Validate(code)

	require.Len(t, report.Violations, 2)
	assert.Equal(t, 3, report.Violations[0].Line)
	assert.Equal(t, 11, report.Violations[0].Column)
	assert.Equal(t, "var b = fetch('/x');", report.Violations[0].Context)
	assert.Equal(t, 4, report.Violations[1].Line)
	assert.Equal(t, 1, report.Violations[1].Column)
}

func TestValidateMultipleMatchesOnOneLine(t *testing.T) {
	engine := Default()

	report := engine.Validate("eval('a'); eval('b');")

	require.Len(t, report.Violations, 2)
	assert.Equal(t, 1, report.Violations[0].Column)
	assert.Equal(t, 12, report.Violations[1].Column)
}

func TestValidateSizeBoundary(t *testing.T) {
	engine, err := New(Config{MaxCodeSize: 100})
	require.NoError(t, err)

	// Low-entropy filler keeps the other heuristics quiet.
	atLimit := strings.Repeat("a", 100)
	report := engine.Validate(atLimit)
	assert.True(t, report.Valid)
	assert.Equal(t, 100, report.CodeSize)

	report = engine.Validate(atLimit + "a")
	require.False(t, report.Valid)
	require.Len(t, report.Violations, 1)
	v := report.Violations[0]
	assert.Equal(t, RuleCodeSize, v.RuleID)
	assert.Equal(t, CategoryObfuscation, v.Category)
	assert.Zero(t, v.Line)
	assert.Zero(t, v.Column)
}

func TestValidateSizeCountsRunes(t *testing.T) {
	engine, err := New(Config{MaxCodeSize: 4})
	require.NoError(t, err)

	report := engine.Validate("éééé")
	assert.True(t, report.Valid)
	assert.Equal(t, 4, report.CodeSize)
}

func TestValidateConcatenationCeiling(t *testing.T) {
	engine := Default()

	within := strings.Repeat("'a' + ", 15) + "'a'"
	report := engine.Validate(within)
	assert.Equal(t, 15, report.ConcatenationCount)
	assert.True(t, report.Valid)

	over := strings.Repeat("'a' + ", 16) + "'a'"
	report = engine.Validate(over)
	assert.Equal(t, 16, report.ConcatenationCount)
	require.False(t, report.Valid)
	assert.Equal(t, RuleConcatenations, report.Violations[len(report.Violations)-1].RuleID)
}

func TestValidateEntropyCeiling(t *testing.T) {
	engine := Default()

	noise := "q8#Zk!2@Lm^7&Xp*Rv(4)Tb_9+Nc=Wd{1}Ye[3]Uf|6;Hg:5<Ji>0?Ko,8.Ps/Qa~Ot`Mr"
	report := engine.Validate("var s = '" + noise + "';")

	assert.Greater(t, report.Entropy, 4.5)
	assert.False(t, report.Valid)
	assert.Equal(t, RuleEntropy, report.Violations[len(report.Violations)-1].RuleID)
}

func TestValidateIsIdempotent(t *testing.T) {
	engine := Default()
	code := "var x = eval;\nlocalStorage.a = 1;\nfetch('/x');"

	first := engine.Validate(code)
	second := engine.Validate(code)

	assert.Equal(t, first, second)
}

func TestReportErr(t *testing.T) {
	engine := Default()

	err := engine.Validate("fetch('/a'); eval('b');").Err()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Violations, 2)
	assert.Equal(t, []Category{CategoryCodeInjection, CategoryNetworkAccess}, verr.Categories())
	assert.Contains(t, err.Error(), "2 violations")
}

func TestNewAppliesDefaults(t *testing.T) {
	engine, err := New(Config{})
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), engine.Config())
	assert.NotEmpty(t, engine.Rules())
}

func TestCatalogCoversEveryCategory(t *testing.T) {
	seen := make(map[Category]bool)
	for _, rule := range Default().Rules() {
		seen[rule.Category] = true
	}
	for _, c := range Categories() {
		assert.True(t, seen[c], "no rule for %s", c)
	}
}
