package filter

import (
	"fmt"
	"regexp"

	"github.com/rzbill/flow/internal/config"
)

// Chain combines a named regex rule with an optional CEL expression. A line
// must pass both to be kept. The zero-value-like chain from New("", "", cfg)
// passes everything.
type Chain struct {
	rule     *regexp.Regexp
	ruleName string
	expr     celFilter
}

// New compiles a filter chain. matchName selects a named filter from cfg
// (empty means none); expr is a CEL expression (empty means none).
func New(matchName, expr string, cfg config.Config) (*Chain, error) {
	c := &Chain{}
	if matchName != "" {
		rule, ok := cfg.FilterRule(matchName)
		if !ok {
			return nil, fmt.Errorf("filter: no filter named %q in config", matchName)
		}
		re, err := regexp.Compile(rule)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", matchName, err)
		}
		c.rule = re
		c.ruleName = matchName
	}
	cf, err := newCELFilter(expr)
	if err != nil {
		return nil, fmt.Errorf("filter expression: %w", err)
	}
	c.expr = cf
	return c, nil
}

// Match reports whether the line passes the chain.
func (c *Chain) Match(text string, seq uint64, tsMs int64) bool {
	if c.rule != nil && !c.rule.MatchString(text) {
		return false
	}
	return c.expr.Eval(text, seq, tsMs)
}

// Rule returns the compiled named rule, or nil. Callers use it to highlight
// the matched spans.
func (c *Chain) Rule() *regexp.Regexp { return c.rule }

// Name returns the selected filter name, or empty.
func (c *Chain) Name() string { return c.ruleName }

// Active reports whether any filtering is in effect.
func (c *Chain) Active() bool { return c.rule != nil || c.expr.enabled }
