package catalog

import (
	"fmt"

	"github.com/Skotchmaster/topspin/internal/models"
)

// Tables holds the fixed inputs the generator combines into products.
type Tables struct {
	Names           map[models.Category][]string
	ApparelBrands   []string
	EquipmentBrands []string
	Colors          []string
	BasePrices      map[models.Category]map[string]int
	Variations      []string
}

const (
	defaultPriceKey   = "default"
	fallbackBasePrice = 50
)

func DefaultTables() Tables {
	return Tables{
		Names: map[models.Category][]string{
			models.Rackets: {"Pro Staff", "Pure Drive", "Aero", "Blade", "Clash", "Speed", "Gravity", "Radical", "Prestige", "Extreme"},
			models.Shoes:   {"Air Zoom", "Court", "Barricade", "Defiant", "Solution", "Gel Resolution", "Court FF", "Vapor", "Zoom"},
			models.Shirts:  {"Dri-FIT", "Aeroready", "Court", "Essential", "Classic", "Performance", "Comfort", "Active", "Sport"},
			models.Shorts:  {"Court", "Dri-FIT", "Aeroready", "Essential", "Classic", "Performance", "Comfort", "Active"},
			models.Jackets: {"Windbreaker", "Fleece", "Puffer", "Softshell", "Rain", "Thermal", "Bomber", "Track"},
			models.Balls:   {"Pressurized Tennis Balls", "Practice Ball Can", "Pressureless Ball Set", "Can of 3 Balls"},
			models.Bags:    {"Racket Backpack", "Tournament Bag", "Duffel Bag", "Racket Tote"},
		},
		ApparelBrands:   []string{"Nike", "Adidas", "Lacoste", "Fila", "New Balance", "Asics", "On"},
		EquipmentBrands: []string{"Wilson", "Babolat", "Head", "Yonex"},
		Colors:          []string{"Black", "White", "Navy", "Red", "Blue", "Green", "Yellow", "Orange", "Purple", "Pink", "Gray"},
		BasePrices: map[models.Category]map[string]int{
			models.Rackets: {"Wilson": 220, "Babolat": 200, "Head": 210, "Yonex": 190, defaultPriceKey: 180},
			models.Shoes:   {"Nike": 140, "Adidas": 130, "Asics": 120, "New Balance": 110, defaultPriceKey: 100},
			models.Shirts:  {"Lacoste": 80, "Nike": 65, "Adidas": 60, defaultPriceKey: 45},
			models.Shorts:  {"Lacoste": 70, "Nike": 55, "Adidas": 50, defaultPriceKey: 35},
			models.Jackets: {"Nike": 120, "Adidas": 110, "Lacoste": 150, defaultPriceKey: 90},
			models.Balls:   {"Wilson": 15, "Babolat": 12, "Head": 12, "Yonex": 12, defaultPriceKey: 10},
			models.Bags:    {"Wilson": 100, "Babolat": 90, "Head": 95, defaultPriceKey: 75},
		},
		Variations: []string{"Pro", "Elite", "Plus", "Advanced", "Premium", "Sport"},
	}
}

func isApparel(c models.Category) bool {
	switch c {
	case models.Shirts, models.Shorts, models.Jackets, models.Shoes:
		return true
	}
	return false
}

func isEquipment(c models.Category) bool {
	switch c {
	case models.Rackets, models.Balls, models.Bags:
		return true
	}
	return false
}

func (t Tables) brandsFor(c models.Category) []string {
	switch {
	case isApparel(c):
		return t.ApparelBrands
	case isEquipment(c):
		return t.EquipmentBrands
	}
	all := make([]string, 0, len(t.ApparelBrands)+len(t.EquipmentBrands))
	all = append(all, t.ApparelBrands...)
	return append(all, t.EquipmentBrands...)
}

func (t Tables) basePrice(c models.Category, brand string) int {
	prices, ok := t.BasePrices[c]
	if !ok {
		return fallbackBasePrice
	}
	if p, ok := prices[brand]; ok {
		return p
	}
	if p, ok := prices[defaultPriceKey]; ok {
		return p
	}
	return fallbackBasePrice
}

func sizesFor(c models.Category) []string {
	switch c {
	case models.Rackets:
		return []string{"4 1/4", "4 3/8", "4 1/2", "4 5/8"}
	case models.Shoes:
		return []string{"6", "6.5", "7", "7.5", "8", "8.5", "9", "9.5", "10", "10.5", "11", "11.5", "12"}
	case models.Shirts, models.Shorts, models.Jackets:
		return []string{"XS", "S", "M", "L", "XL", "XXL"}
	case models.Balls:
		return []string{"Standard"}
	}
	return []string{"One Size"}
}

func imageFor(id int, c models.Category) string {
	switch id % 3 {
	case 0:
		return fmt.Sprintf("https://picsum.photos/400/400?random=%d", id)
	case 1:
		return fmt.Sprintf("https://source.unsplash.com/400x400/?tennis,%s&sig=%d", c, id)
	}
	return fmt.Sprintf("https://picsum.photos/seed/%s%d/400/400", c, id)
}

func descriptionFor(brand, name string, c models.Category) string {
	switch c {
	case models.Rackets:
		return fmt.Sprintf("The %s %s delivers exceptional performance for serious tennis players. Engineered with advanced technology for power, control, and precision.", brand, name)
	case models.Shoes:
		return fmt.Sprintf("Step up your game with the %s %s. Designed for court performance with superior comfort, stability, and traction.", brand, name)
	case models.Shirts:
		return fmt.Sprintf("The %s %s combines performance and style. Made with moisture-wicking technology to keep you cool and comfortable on court.", brand, name)
	case models.Shorts:
		return fmt.Sprintf("Professional-grade %s %s designed for peak performance. Features comfortable fit and advanced fabric technology.", brand, name)
	case models.Jackets:
		return fmt.Sprintf("Stay warm and stylish with the %s %s. Perfect for warming up or casual wear, combining function with fashion.", brand, name)
	case models.Balls:
		return fmt.Sprintf("High-quality %s %s for consistent play. Perfect bounce and durability for practice and competitive matches.", brand, name)
	case models.Bags:
		return fmt.Sprintf("The %s %s keeps your gear organized and protected. Durable construction with thoughtful design for tennis players.", brand, name)
	}
	return fmt.Sprintf("Premium %s %s - designed for tennis excellence.", brand, name)
}

var featureTable = map[models.Category][]string{
	models.Rackets: {"Advanced carbon fiber construction", "Precision string pattern", "Comfortable grip technology", "Professional tournament approved", "Enhanced sweet spot", "Vibration dampening system"},
	models.Shoes:   {"Breathable mesh upper", "Responsive cushioning", "Non-marking outsole", "Lightweight construction", "Enhanced court grip", "Ankle support technology"},
	models.Shirts:  {"Moisture-wicking fabric", "UV sun protection", "Quick-dry technology", "Athletic fit design", "Flatlock seams", "Anti-odor treatment"},
	models.Shorts:  {"Elastic waistband with drawstring", "Moisture-wicking properties", "Multiple pockets", "Comfortable athletic fit", "Quick-dry fabric", "Freedom of movement design"},
	models.Jackets: {"Water-resistant coating", "Breathable fabric", "Lightweight construction", "Packable design", "Full zip closure", "Athletic fit"},
	models.Balls:   {"ITF approved", "Consistent bounce", "Tournament quality felt", "Pressurized core", "All court surface", "Professional grade"},
	models.Bags:    {"Multiple compartments", "Padded racket section", "Comfortable shoulder straps", "Durable water-resistant material", "Ventilated shoe compartment", "External accessory pockets"},
}

const featureCount = 4

func featuresFor(c models.Category) []string {
	all, ok := featureTable[c]
	if !ok {
		return []string{"High-quality", "Durable", "Professional"}
	}
	out := make([]string, featureCount)
	copy(out, all[:featureCount])
	return out
}
