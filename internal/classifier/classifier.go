// Package classifier assigns categories and fixed/variable types to
// transactions with an ordered keyword table.
package classifier

import (
	"strings"

	"github.com/fpachecos/dashboard-faturas/internal/categories"
	"github.com/fpachecos/dashboard-faturas/internal/model"
)

// Classifier is safe for concurrent use; it is never mutated after New.
type Classifier struct {
	rules []Rule
	fixed []string
}

// New builds a Classifier from rs. Keywords are lower-cased once here.
func New(rs RuleSet) *Classifier {
	c := &Classifier{
		rules: make([]Rule, len(rs.Rules)),
		fixed: lowerAll(rs.FixedKeywords),
	}
	for i, r := range rs.Rules {
		c.rules[i] = Rule{
			Group:      r.Group,
			Categories: append([]string(nil), r.Categories...),
			Keywords:   lowerAll(r.Keywords),
		}
	}
	return c
}

// Default returns a Classifier over the built-in rules.
func Default() *Classifier {
	return New(DefaultRuleSet())
}

// Rules returns the rules in evaluation order.
func (c *Classifier) Rules() []Rule {
	return c.rules
}

// Classify returns copies of txns with Category and Type set. Category stays
// nil only when neither the matched group's categories nor "Outros" exist in cats.
func (c *Classifier) Classify(txns []model.Transaction, cats []model.Category) []model.Transaction {
	lookup := categories.NewService(cats)
	out := make([]model.Transaction, len(txns))
	for i, txn := range txns {
		if cat, ok := c.categoryFor(txn.Establishment, lookup); ok {
			txn.Category = model.Ptr(cat.ID)
		} else {
			txn.Category = nil
		}
		txn.Type = model.Ptr(c.TypeFor(txn.Establishment))
		out[i] = txn
	}
	return out
}

// MatchGroup returns the first rule whose keywords occur in establishment.
func (c *Classifier) MatchGroup(establishment string) (Rule, bool) {
	name := strings.ToLower(establishment)
	for _, r := range c.rules {
		if containsAny(name, r.Keywords) {
			return r, true
		}
	}
	return Rule{}, false
}

// CategoryFor resolves the category for an establishment within cats.
func (c *Classifier) CategoryFor(establishment string, cats []model.Category) (model.Category, bool) {
	return c.categoryFor(establishment, categories.NewService(cats))
}

func (c *Classifier) categoryFor(establishment string, lookup *categories.Service) (model.Category, bool) {
	if r, ok := c.MatchGroup(establishment); ok {
		for _, name := range r.Categories {
			if cat, ok := lookup.ByName(name); ok {
				return cat, true
			}
		}
	}
	return lookup.ByName(categories.Other)
}

// TypeFor labels an establishment Fixo when it contains a fixed keyword.
func (c *Classifier) TypeFor(establishment string) model.TransactionType {
	if containsAny(strings.ToLower(establishment), c.fixed) {
		return model.TypeFixed
	}
	return model.TypeVariable
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
