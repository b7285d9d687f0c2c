package validator

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

// quote matches any JavaScript string delimiter.
const quote = "['\"`]"

// matchTimeout bounds a single pattern evaluation. regexp2 backtracks.
const matchTimeout = 250 * time.Millisecond

type ruleSpec struct {
	id           string
	category     Category
	severity     Severity
	pattern      string
	message      string
	disambiguate bool
}

// catalog is evaluated in order; reports list findings in this order per line.
var catalog = []ruleSpec{
	// Dynamic code evaluation
	{"eval-call", CategoryCodeInjection, SeverityCritical,
		`(?<![\w$])eval\s*\(`,
		"eval() call detected", false},
	{"eval-bracket", CategoryCodeInjection, SeverityCritical,
		`\[\s*` + quote + `eval` + quote + `\s*\]`,
		"eval reached through bracket access", false},
	{"eval-alias", CategoryCodeInjection, SeverityCritical,
		`(?<![=!<>])=\s*(?:eval|Function)\s*(?:[;,)]|$)`,
		"eval or Function constructor aliased to a variable", false},
	{"function-constructor", CategoryCodeInjection, SeverityCritical,
		`(?:\bnew\s+)?(?<![\w$])Function\s*\(\s*` + quote,
		"Function constructor called with a string body", true},
	{"constructor-chain", CategoryCodeInjection, SeverityCritical,
		`\bconstructor\s*(?:\.\s*constructor\b|\(\s*` + quote + `)`,
		"constructor chain reaches the Function constructor", false},

	// String-bodied timers
	{"string-timer", CategoryTimerInjection, SeverityHigh,
		`(?<![\w$])set(?:Timeout|Interval)\s*\(\s*` + quote,
		"timer scheduled with a string body", false},

	// Raw markup writes
	{"document-write", CategoryDOMWrite, SeverityHigh,
		`\bdocument\s*\.\s*write(?:ln)?\s*\(`,
		"document.write() call detected", false},
	{"html-assignment", CategoryDOMWrite, SeverityHigh,
		`\.\s*(?:inner|outer)HTML\s*\+?=(?!=)`,
		"raw HTML assignment detected", false},
	{"insert-adjacent-html", CategoryDOMWrite, SeverityHigh,
		`\.\s*insertAdjacentHTML\s*\(`,
		"insertAdjacentHTML() call detected", false},

	// Prototype tampering
	{"proto-access", CategoryPrototypePollution, SeverityHigh,
		`__proto__\s*(?:[.\[]|=(?!=))`,
		"__proto__ access detected", false},
	{"object-prototype", CategoryPrototypePollution, SeverityHigh,
		`\bObject\s*\.\s*prototype\b`,
		"Object.prototype access detected", false},
	{"constructor-prototype", CategoryPrototypePollution, SeverityHigh,
		`\bconstructor\s*\.\s*prototype\b`,
		"constructor.prototype access detected", false},
	{"set-prototype-of", CategoryPrototypePollution, SeverityHigh,
		`\b(?:Object|Reflect)\s*\.\s*setPrototypeOf\s*\(`,
		"setPrototypeOf() call detected", false},

	// Host globals
	{"location-hijack", CategoryGlobalAccess, SeverityHigh,
		`\b(?:window|self|top|parent|document)\s*\.\s*location\s*(?:(?:\.\s*href\s*)?=(?!=)|\.\s*(?:assign|replace)\s*\()`,
		"navigation of the host page detected", false},
	{"global-this", CategoryGlobalAccess, SeverityHigh,
		`\bglobalThis\s*[.\[]`,
		"globalThis access detected", false},
	{"frame-assignment", CategoryGlobalAccess, SeverityHigh,
		`(?<![\w$.])(?:self|top|parent)\s*\.\s*[\w$]+\s*=(?!=)`,
		"assignment to a host frame property", false},
	{"global-capture", CategoryGlobalAccess, SeverityHigh,
		`function\s*\(\s*\)\s*\{\s*return\s+this\s*;?\s*\}`,
		"function returning this exposes the global object", false},
	{"computed-global-call", CategoryGlobalAccess, SeverityHigh,
		`(?<![\w$.])(?:window|self|top|parent|globalThis|frames)\s*\[[^\]]+\]\s*\(`,
		"computed call on a global object", false},

	// Persistent storage
	{"web-storage", CategoryStorageAccess, SeverityMedium,
		`\b(?:localStorage|sessionStorage|indexedDB)\s*[.\[]`,
		"web storage access detected", false},
	{"cookie-access", CategoryStorageAccess, SeverityMedium,
		`\bdocument\s*\.\s*cookie\b`,
		"document.cookie access detected", false},

	// Network
	{"fetch-call", CategoryNetworkAccess, SeverityHigh,
		`(?<![\w$])fetch\s*\(`,
		"fetch() call detected", false},
	{"xhr", CategoryNetworkAccess, SeverityHigh,
		`\bXMLHttpRequest\b`,
		"XMLHttpRequest usage detected", false},
	{"dynamic-import", CategoryNetworkAccess, SeverityHigh,
		`(?<![\w$.])import\s*\(`,
		"dynamic import() detected", false},
	{"websocket", CategoryNetworkAccess, SeverityHigh,
		`\bnew\s+(?:WebSocket|EventSource)\s*\(`,
		"socket connection detected", false},
	{"beacon", CategoryNetworkAccess, SeverityHigh,
		`\bnavigator\s*\.\s*sendBeacon\s*\(`,
		"navigator.sendBeacon() call detected", false},
	{"import-scripts", CategoryNetworkAccess, SeverityHigh,
		`(?<![\w$])importScripts\s*\(`,
		"importScripts() call detected", false},

	// Encoded payloads
	{"unicode-escape-chain", CategoryObfuscation, SeverityHigh,
		`(?:\\u(?:[0-9a-f]{4}|\{[0-9a-f]+\})){4,}`,
		"chain of unicode escapes detected", false},
	{"hex-escape-chain", CategoryObfuscation, SeverityHigh,
		`(?:\\x[0-9a-f]{2}){4,}`,
		"chain of hex escapes detected", false},
	{"split-eval", CategoryObfuscation, SeverityHigh,
		quote + `(?:e|ev|eva)` + quote + `\s*\+\s*` + quote + `(?:v|va|val|a|al|l)` + quote,
		"eval keyword assembled from fragments", false},
	{"split-function", CategoryObfuscation, SeverityHigh,
		quote + `(?:f|fu|fun|func|funct|functi|functio)` + quote + `\s*\+\s*` + quote + `(?:unction|nction|ction|tion|ion|on|n)` + quote,
		"Function keyword assembled from fragments", false},
}

// concatPattern is the naive string-concatenation counter.
var concatPattern = regexp2.MustCompile(quote+`[^'"`+"`"+`\n]*`+quote+`\s*\+`, regexp2.None)

// Structural rule identifiers
const (
	RuleCodeSize       = "code-size"
	RuleConcatenations = "string-concatenation"
	RuleEntropy        = "entropy"
)

func compileCatalog() ([]Rule, error) {
	rules := make([]Rule, 0, len(catalog))
	for _, def := range catalog {
		re, err := regexp2.Compile(def.pattern, regexp2.IgnoreCase)
		if err != nil {
			return nil, fmt.Errorf("compile rule %s: %w", def.id, err)
		}
		re.MatchTimeout = matchTimeout

		rules = append(rules, Rule{
			ID:           def.id,
			Category:     def.category,
			Severity:     def.severity,
			Pattern:      re,
			Message:      def.message,
			Disambiguate: def.disambiguate,
		})
	}
	return rules, nil
}
