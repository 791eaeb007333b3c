package classifier

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpachecos/dashboard-faturas/internal/categories"
	"github.com/fpachecos/dashboard-faturas/internal/model"
)

func categoryName(t *testing.T, c *Classifier, establishment string, cats []model.Category) string {
	t.Helper()
	cat, ok := c.CategoryFor(establishment, cats)
	require.True(t, ok, "no category for %q", establishment)
	return cat.Name
}

func TestCategoryFor_Groups(t *testing.T) {
	c := Default()
	cats := categories.Default()

	tests := []struct {
		establishment string
		want          string
	}{
		{"IFOOD*PEDIDO", categories.Restaurant},
		{"Pizzaria Bella", categories.Restaurant},
		{"DROGASIL 123", categories.Pharmacy},
		{"Drogaria Sao Paulo", categories.Pharmacy},
		{"HOSPITAL SANTA CRUZ", categories.Health},
		{"TOTALPASS", categories.Health},
		{"UBER *TRIP", categories.Transport},
		{"ESTACIONAMENTO CENTRO", categories.Transport},
		{"ZAFFARI BOURBON", categories.Supermarket},
		{"PAO DE ACUCAR 12", categories.Supermarket},
		{"NETFLIX.COM", categories.Subscriptions},
		{"MICROSOFT*365", categories.Subscriptions},
		{"POSTO SHELL", categories.Fuel},
		{"IPIRANGA", categories.Fuel},
		{"SHOPEE", categories.Shopping},
		{"LEROY MERLIN", categories.Shopping},
		{"PAYGO*LOJA", categories.Services},
		{"SONY PLAYSTATION", categories.Leisure},
		{"CABELEIREIRO ZE", categories.Leisure},
		{"LOJA QUALQUER", categories.Other},
		{"", categories.Other},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, categoryName(t, c, tt.establishment, cats), "establishment %q", tt.establishment)
	}
}

func TestCategoryFor_EarlierGroupWins(t *testing.T) {
	c := Default()
	cats := categories.Default()

	tests := []struct {
		establishment string
		want          string
		why           string
	}{
		{"AMAZON PRIME VIDEO", categories.Subscriptions, "subscriptions precede shopping"},
		{"SUPERMERCADO X", categories.Supermarket, "supermarket precedes shopping's mercado"},
		{"MERCADO LIVRE", categories.Shopping, "only shopping matches"},
		{"RD SAUDE", categories.Health, "health precedes services"},
		{"CONTA VIVO", categories.Services, "no earlier group matches"},
		{"SHELL RESTAURANTE", categories.Restaurant, "restaurant precedes fuel"},
		{"SAMSUNG STORE", categories.Supermarket, "'sam' is a supermarket keyword"},
		{"APPLE.COM/BILL", categories.Subscriptions, "subscriptions"},
		{"PARKING LOT", categories.Transport, "transport's park"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, categoryName(t, c, tt.establishment, cats), tt.why)
	}
}

func TestCategoryFor_SynonymFallback(t *testing.T) {
	c := Default()
	var cats []model.Category
	for _, cat := range categories.Default() {
		if cat.Name != categories.Restaurant {
			cats = append(cats, cat)
		}
	}
	assert.Equal(t, categories.Food, categoryName(t, c, "IFOOD", cats))
}

func TestCategoryFor_MissingGroupCategoryFallsBackToOther(t *testing.T) {
	c := Default()
	cats := []model.Category{{ID: "x", Name: categories.Other}}
	assert.Equal(t, categories.Other, categoryName(t, c, "UBER", cats))
}

func TestCategoryFor_NoOtherCategory(t *testing.T) {
	c := Default()
	_, ok := c.CategoryFor("LOJA", []model.Category{{ID: "1", Name: "Viagem"}})
	assert.False(t, ok)
}

func TestTypeFor(t *testing.T) {
	c := Default()
	tests := []struct {
		establishment string
		want          model.TransactionType
	}{
		{"MICROSOFT*365", model.TypeFixed},
		{"Apple.com/bill", model.TypeFixed},
		{"CURSOR AI", model.TypeFixed},
		{"PRUDENTIAL", model.TypeFixed},
		{"RD SAUDE", model.TypeFixed},
		{"CONTA VIVO", model.TypeFixed},
		{"TOTALPASS", model.TypeFixed},
		{"AMAZON PRIME", model.TypeFixed},
		{"AMAZON MARKETPLACE", model.TypeVariable},
		{"NETFLIX", model.TypeVariable},
		{"VIVO FIBRA", model.TypeVariable},
		{"IFOOD*PEDIDO", model.TypeVariable},
		{"", model.TypeVariable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.TypeFor(tt.establishment), "establishment %q", tt.establishment)
	}
}

func TestClassify_TotalAndDeterministic(t *testing.T) {
	c := Default()
	cats := categories.Default()
	txns := []model.Transaction{
		{ID: "a", Establishment: "IFOOD*PEDIDO", Value: 47.58},
		{ID: "b", Establishment: "Microsoft", Value: -10690.39},
		{ID: "c", Establishment: "LOJA DESCONHECIDA"},
	}

	first := c.Classify(txns, cats)
	second := c.Classify(txns, cats)
	require.Len(t, first, 3)
	assert.Equal(t, first, second)

	for _, txn := range first {
		require.NotNil(t, txn.Category, "category for %s", txn.Establishment)
		require.NotNil(t, txn.Type, "type for %s", txn.Establishment)
	}

	assert.Equal(t, "12", *first[0].Category)
	assert.Equal(t, model.TypeVariable, *first[0].Type)
	assert.Equal(t, "8", *first[1].Category)
	assert.Equal(t, model.TypeFixed, *first[1].Type)
	assert.Equal(t, "13", *first[2].Category)

	// Input is not mutated.
	assert.Nil(t, txns[0].Category)
	assert.Nil(t, txns[0].Type)
}

func TestRules_PriorityOrder(t *testing.T) {
	var groups []string
	for _, r := range Default().Rules() {
		groups = append(groups, r.Group)
	}
	assert.Equal(t, []string{
		"restaurant", "pharmacy", "health", "transport", "supermarket",
		"subscriptions", "fuel", "shopping", "services", "leisure",
	}, groups)
}

func TestNew_LowercasesKeywords(t *testing.T) {
	c := New(RuleSet{
		Rules:         []Rule{{Group: "pets", Categories: []string{"Pets"}, Keywords: []string{"PETZ"}}},
		FixedKeywords: []string{"SEGURO"},
	})
	cats := []model.Category{{ID: "p", Name: "Pets"}}
	cat, ok := c.CategoryFor("petz loja", cats)
	require.True(t, ok)
	assert.Equal(t, "p", cat.ID)
	assert.Equal(t, model.TypeFixed, c.TypeFor("Seguro Auto"))
}

func TestRuleSetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules", "classification-rules.yaml")
	require.NoError(t, SaveRuleSet(path, DefaultRuleSet()))

	got, err := LoadRuleSet(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultRuleSet(), got)
}

func TestLoadRuleSet_Errors(t *testing.T) {
	_, err := LoadRuleSet(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, SaveRuleSet(path, RuleSet{}))
	_, err = LoadRuleSet(path)
	assert.Error(t, err)
}
