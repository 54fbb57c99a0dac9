package keys

import (
	"strings"

	"github.com/WessleyAI/wessley-remap/engine/domain"
)

var fuelByToken = map[string]domain.FuelType{
	"tdi": domain.FuelDiesel, "hdi": domain.FuelDiesel, "bluehdi": domain.FuelDiesel,
	"dci": domain.FuelDiesel, "crdi": domain.FuelDiesel, "cdi": domain.FuelDiesel,
	"tdci": domain.FuelDiesel, "jtd": domain.FuelDiesel, "jtdm": domain.FuelDiesel,
	"multijet": domain.FuelDiesel, "crd": domain.FuelDiesel, "d4d": domain.FuelDiesel,
	"sdv4": domain.FuelDiesel, "sdv6": domain.FuelDiesel, "td4": domain.FuelDiesel,
	"ecoblue": domain.FuelDiesel, "diesel": domain.FuelDiesel, "skyactiv-d": domain.FuelDiesel,

	"tsi": domain.FuelPetrol, "tfsi": domain.FuelPetrol, "fsi": domain.FuelPetrol,
	"gdi": domain.FuelPetrol, "t-gdi": domain.FuelPetrol, "puretech": domain.FuelPetrol,
	"vti": domain.FuelPetrol, "thp": domain.FuelPetrol, "ecoboost": domain.FuelPetrol,
	"tce": domain.FuelPetrol, "mpi": domain.FuelPetrol, "vtec": domain.FuelPetrol,
	"tjet": domain.FuelPetrol, "multiair": domain.FuelPetrol, "petrol": domain.FuelPetrol,
	"skyactiv-g": domain.FuelPetrol,

	"hybrid": domain.FuelHybrid, "phev": domain.FuelHybrid, "e-hybrid": domain.FuelHybrid,
	"mhev": domain.FuelHybrid, "etsi": domain.FuelHybrid,

	"ev": domain.FuelElectric, "electric": domain.FuelElectric,
}

// FuelHint guesses the fuel of an engine type token ("tdi", "puretech",
// "skyactiv-d"). It returns FuelUnknown when nothing in the type is known.
func FuelHint(engineType string) domain.FuelType {
	t := Normalize(engineType)
	if f, ok := fuelByToken[t]; ok {
		return f
	}
	for _, tok := range strings.Split(t, "-") {
		if f, ok := fuelByToken[tok]; ok {
			return f
		}
	}
	return domain.FuelUnknown
}
