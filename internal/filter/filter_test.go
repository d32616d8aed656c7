package filter

import (
	"testing"

	"github.com/rzbill/flow/internal/config"
)

func cfgWith(filters ...config.Filter) config.Config {
	cfg := config.Default()
	cfg.Filters = filters
	return cfg
}

func TestEmptyChainPassesAll(t *testing.T) {
	c, err := New("", "", config.Default())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.Active() {
		t.Fatalf("empty chain should be inactive")
	}
	if !c.Match("anything at all", 1, 0) {
		t.Fatalf("empty chain must pass")
	}
}

func TestNamedRule(t *testing.T) {
	cfg := cfgWith(config.Filter{Name: "errors", Rule: "ERROR|FATAL"})
	c, err := New("errors", "", cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !c.Match("an ERROR happened", 1, 0) {
		t.Fatalf("should match ERROR")
	}
	if c.Match("all fine", 2, 0) {
		t.Fatalf("should not match")
	}
	if c.Rule() == nil || c.Name() != "errors" {
		t.Fatalf("rule accessors")
	}
}

func TestUnknownNameRejected(t *testing.T) {
	if _, err := New("nope", "", config.Default()); err == nil {
		t.Fatalf("expected error for unknown filter name")
	}
}

func TestBadRegexRejected(t *testing.T) {
	cfg := cfgWith(config.Filter{Name: "bad", Rule: "("})
	if _, err := New("bad", "", cfg); err != nil {
		return
	}
	t.Fatalf("expected error for invalid regex")
}

func TestCELExpression(t *testing.T) {
	c, err := New("", `text.contains("needle") && size > 10`, config.Default())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !c.Match("big needle here", 1, 0) {
		t.Fatalf("should pass expression")
	}
	if c.Match("needle", 2, 0) {
		t.Fatalf("size guard should fail")
	}
	if c.Match("hay only", 3, 0) {
		t.Fatalf("contains guard should fail")
	}
}

func TestCELCompileError(t *testing.T) {
	if _, err := New("", "text &&", config.Default()); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestCELSeqVariable(t *testing.T) {
	c, err := New("", "seq >= 10", config.Default())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.Match("x", 9, 0) || !c.Match("x", 10, 0) {
		t.Fatalf("seq comparison wrong")
	}
}

func TestRuleAndExpressionCompose(t *testing.T) {
	cfg := cfgWith(config.Filter{Name: "errors", Rule: "ERROR"})
	c, err := New("errors", `size < 20`, cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !c.Match("ERROR short", 1, 0) {
		t.Fatalf("both should pass")
	}
	if c.Match("ERROR but this line is much too long to pass", 2, 0) {
		t.Fatalf("expression should veto")
	}
	if c.Match("short but no match", 3, 0) {
		t.Fatalf("rule should veto")
	}
}
