package classifier

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/fpachecos/dashboard-faturas/internal/categories"
)

// Rule binds a keyword group to a category. Categories lists the preferred
// category name first, then synonyms tried when the user lacks it.
type Rule struct {
	Group      string   `yaml:"group"`
	Categories []string `yaml:"categories"`
	Keywords   []string `yaml:"keywords"`
}

// RuleSet is the on-disk shape of the classification rules file. Rules are
// evaluated in file order.
type RuleSet struct {
	Rules         []Rule   `yaml:"rules"`
	FixedKeywords []string `yaml:"fixed_keywords"`
}

// DefaultRules returns the built-in keyword groups in priority order.
// The first group with a matching keyword wins, so reordering changes results.
func DefaultRules() []Rule {
	return []Rule{
		{
			Group:      "restaurant",
			Categories: []string{categories.Restaurant, categories.Food},
			Keywords:   []string{"rest", "food", "ifood", "99food", "cafeteria", "lanchonete", "pizz", "espeto", "paprika", "quintal"},
		},
		{
			Group:      "pharmacy",
			Categories: []string{categories.Pharmacy},
			Keywords:   []string{"drogaria", "drogasil", "farmacia"},
		},
		{
			Group:      "health",
			Categories: []string{categories.Health},
			Keywords:   []string{"saude", "medico", "hospital", "clinica", "prudent", "rd saude", "totalpass"},
		},
		{
			Group:      "transport",
			Categories: []string{categories.Transport},
			Keywords:   []string{"uber", "taxi", "valet", "park", "estacionamento"},
		},
		{
			Group:      "supermarket",
			Categories: []string{categories.Supermarket},
			Keywords:   []string{"sam", "pao de acucar", "zaffari", "supermercado", "hortifrut"},
		},
		{
			Group:      "subscriptions",
			Categories: []string{categories.Subscriptions},
			Keywords:   []string{"microsoft", "apple", "amazon prime", "cursor", "netflix", "spotify"},
		},
		{
			Group:      "fuel",
			Categories: []string{categories.Fuel},
			Keywords:   []string{"shell", "petrobras", "ipiranga", "combustivel"},
		},
		{
			Group:      "shopping",
			Categories: []string{categories.Shopping},
			Keywords:   []string{"amazon", "shopee", "mercado", "leroy", "sodimac"},
		},
		{
			Group:      "services",
			Categories: []string{categories.Services},
			Keywords:   []string{"vivo", "conta", "servico", "paygo"},
		},
		{
			Group:      "leisure",
			Categories: []string{categories.Leisure},
			Keywords:   []string{"sony", "playstation", "resort", "cabeleireiro", "hair"},
		},
	}
}

// DefaultFixedKeywords returns the establishment fragments that mark a
// recurring expense.
func DefaultFixedKeywords() []string {
	return []string{"microsoft", "apple", "cursor", "prudent", "rd saude", "conta vivo", "totalpass", "amazon prime"}
}

// DefaultRuleSet bundles the built-in rules and fixed keywords.
func DefaultRuleSet() RuleSet {
	return RuleSet{Rules: DefaultRules(), FixedKeywords: DefaultFixedKeywords()}
}

// LoadRuleSet reads a rules YAML file.
func LoadRuleSet(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("reading rules: %w", err)
	}
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("parsing rules: %w", err)
	}
	if len(rs.Rules) == 0 {
		return RuleSet{}, fmt.Errorf("rules file %s defines no rules", path)
	}
	return rs, nil
}

// SaveRuleSet writes rs as YAML, creating parent directories.
func SaveRuleSet(path string, rs RuleSet) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating rules dir: %w", err)
	}
	data, err := yaml.Marshal(rs)
	if err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}
	return nil
}
