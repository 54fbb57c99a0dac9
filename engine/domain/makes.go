package domain

// ManufacturerAliases maps normalized vendor spellings to the canonical
// manufacturer key used by the catalogues. Plate lookup services and users
// disagree on these constantly ("VW", "MERCEDES-BENZ", "Mercedes").
var ManufacturerAliases = map[string]string{
	"vw":             "volkswagen",
	"volkswagen":     "volkswagen",
	"merc":           "mercedes-benz",
	"mercedes":       "mercedes-benz",
	"benz":           "mercedes-benz",
	"mercedes-benz":  "mercedes-benz",
	"mercedesbenz":   "mercedes-benz",
	"chevy":          "chevrolet",
	"landrover":      "land-rover",
	"range-rover":    "land-rover",
	"alfa":           "alfa-romeo",
	"alfaromeo":      "alfa-romeo",
	"mg-motor":       "mg",
	"mg-motor-uk":    "mg",
	"ds-automobiles": "ds",
	"bmw-i":          "bmw",
	"mini-bmw":       "mini",
	"skoda-auto":     "skoda",
	"seat-cupra":     "cupra",
	"citroen-ds":     "citroen",
}

// MinModelYear is the earliest year we accept.
const MinModelYear = 1980

// MaxModelYear is the latest year we accept (current + 1 for next-year models).
const MaxModelYear = 2027
