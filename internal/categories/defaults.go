package categories

import "github.com/fpachecos/dashboard-faturas/internal/model"

// Names used by the classifier and the default set.
const (
	Food          = "Alimentação"
	Transport     = "Transporte"
	Health        = "Saúde"
	Education     = "Educação"
	Leisure       = "Lazer"
	Shopping      = "Compras"
	Services      = "Serviços"
	Subscriptions = "Assinaturas"
	Fuel          = "Combustível"
	Supermarket   = "Supermercado"
	Pharmacy      = "Farmácia"
	Restaurant    = "Restaurante"
	Other         = "Outros"
)

var defaultSet = [...]model.Category{
	{ID: "1", Name: Food, Color: "#FF6B6B"},
	{ID: "2", Name: Transport, Color: "#4ECDC4"},
	{ID: "3", Name: Health, Color: "#45B7D1"},
	{ID: "4", Name: Education, Color: "#FFA07A"},
	{ID: "5", Name: Leisure, Color: "#98D8C8"},
	{ID: "6", Name: Shopping, Color: "#F7DC6F"},
	{ID: "7", Name: Services, Color: "#BB8FCE"},
	{ID: "8", Name: Subscriptions, Color: "#85C1E2"},
	{ID: "9", Name: Fuel, Color: "#F8B739"},
	{ID: "10", Name: Supermarket, Color: "#52BE80"},
	{ID: "11", Name: Pharmacy, Color: "#EC7063"},
	{ID: "12", Name: Restaurant, Color: "#F1948A"},
	{ID: "13", Name: Other, Color: "#95A5A6"},
}

// Default returns a fresh copy of the categories every user starts with.
func Default() []model.Category {
	out := make([]model.Category, len(defaultSet))
	copy(out, defaultSet[:])
	return out
}
