package policy

import (
	"fmt"
	"strings"
)

// Approval modes.
const (
	ModeAsk  = "ask"  // wait for a human decision (default)
	ModeAuto = "auto" // approve automatically
	ModeDeny = "deny" // reject automatically
)

// Policy decides pending callbacks in local runs.
//
//   - Mode controls the high-level behaviour (ask / auto / deny).
//   - AllowList, BlockList filter callback names regardless of Mode.
//
// A nil *Policy waits for a human.
type Policy struct {
	Mode      string
	AllowList []string
	BlockList []string
}

// Config represents the declarative form of a Policy.
type Config struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty"`
}

// Validate checks the mode.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	switch strings.ToLower(c.Mode) {
	case "", ModeAsk, ModeAuto, ModeDeny:
		return nil
	}
	return fmt.Errorf("unsupported approval mode %q", c.Mode)
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		Mode:      p.Mode,
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

// FromConfig converts a Config to a Policy.
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		Mode:      strings.ToLower(c.Mode),
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
}

// IsAllowed evaluates AllowList / BlockList by case-insensitive exact
// comparison of the callback name.
func (p *Policy) IsAllowed(name string) bool {
	if p == nil {
		return true
	}
	normalized := strings.ToLower(name)
	for _, b := range p.BlockList {
		if normalized == strings.ToLower(b) {
			return false
		}
	}
	if len(p.AllowList) == 0 {
		return true
	}
	for _, a := range p.AllowList {
		if normalized == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// IsManual reports whether decisions are left to a human.
func (p *Policy) IsManual() bool {
	return p == nil || p.Mode == "" || p.Mode == ModeAsk
}

// Decide returns the automatic decision for a callback name. decided is false
// in ask mode.
func (p *Policy) Decide(name string) (approved bool, reason string, decided bool) {
	if p.IsManual() {
		return false, "", false
	}
	if p.Mode == ModeDeny {
		return false, "denied by policy", true
	}
	if !p.IsAllowed(name) {
		return false, fmt.Sprintf("%v is not allowed by policy", name), true
	}
	return true, "", true
}
