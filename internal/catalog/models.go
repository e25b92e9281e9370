package catalog

import "strings"

const (
	BusCollection   = "frota"
	RouteCollection = "rotas_config"
)

type Bus struct {
	Plate   string `json:"plate"`
	TagAC   string `json:"tag_ac"`
	TagToll string `json:"tag_toll"`
	Color   string `json:"color"`
	Company string `json:"company"`
}

type Category string

const (
	CategoryAdmin       Category = "admin"
	CategoryOperational Category = "operational"
	CategoryReturn      Category = "return"
)

// Rank orders route groups: admin first, return trips last.
func (c Category) Rank() int {
	switch c {
	case CategoryAdmin:
		return 0
	case CategoryReturn:
		return 2
	default:
		return 1
	}
}

// CategoryFor derives the category from the route name.
func CategoryFor(routeName string) Category {
	name := strings.ToUpper(routeName)
	switch {
	case strings.Contains(name, "ADM"):
		return CategoryAdmin
	case strings.Contains(name, "RETORNO"):
		return CategoryReturn
	default:
		return CategoryOperational
	}
}

type Route struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	MapsURL     string   `json:"maps_url,omitempty"`
}
