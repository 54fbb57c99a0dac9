package resolve

import (
	"math"
	"strings"

	"github.com/WessleyAI/wessley-remap/engine/domain"
	"github.com/WessleyAI/wessley-remap/engine/keys"
	"github.com/WessleyAI/wessley-remap/pkg/vehiclenlp"
)

// Score weights. Lower total scores are better.
const (
	displacementWeight  = 8.0 // per litre of difference
	missingDisplacement = 5.0 // target knows its capacity, candidate does not
	powerWeight         = 0.1 // per hp of difference
	fuelMismatch        = 5.0
	labelBonus          = -1.0 // label contains the target's raw engine text
)

// Option is one entry of a selection list, e.g. an engine dropdown.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Scored is the option chosen by ScoreAndSelect.
type Scored struct {
	Option Option  `json:"option"`
	Index  int     `json:"index"`
	Score  float64 `json:"score"`
}

type engineTraits struct {
	litres float64 // 0 when unknown
	hp     float64 // 0 when unknown
	fuel   domain.FuelType
}

func optionTraits(label string) engineTraits {
	f := vehiclenlp.ExtractEngine(label)
	return engineTraits{litres: f.CapacityLitres, hp: f.PowerHP, fuel: keys.FuelHint(label)}
}

func targetTraits(d domain.PartialVehicleDescriptor) engineTraits {
	var t engineTraits
	if d.EngineCapacityCC != nil && *d.EngineCapacityCC > 0 {
		t.litres = float64(*d.EngineCapacityCC) / 1000
	}
	if d.PowerBHP != nil && *d.PowerBHP > 0 {
		t.hp = *d.PowerBHP
	}
	t.fuel = domain.ParseFuelType(d.FuelType)
	for _, raw := range d.RawEngineStrings() {
		f := vehiclenlp.ExtractEngine(raw)
		if t.litres == 0 {
			t.litres = f.CapacityLitres
		}
		if t.hp == 0 {
			t.hp = f.PowerHP
		}
		if t.fuel == domain.FuelUnknown {
			t.fuel = keys.FuelHint(raw)
		}
	}
	return t
}

// ScoreAndSelect picks the option that best fits a loosely specified
// vehicle. It returns false only for an empty list; otherwise some option is
// always chosen, ties going to the earliest.
func ScoreAndSelect(options []Option, target domain.PartialVehicleDescriptor) (Scored, bool) {
	if len(options) == 0 {
		return Scored{}, false
	}
	want := targetTraits(target)

	var raws []string
	for _, r := range target.RawEngineStrings() {
		if n := keys.Normalize(r); n != "" {
			raws = append(raws, n)
		}
	}

	best := Scored{Index: -1, Score: math.Inf(1)}
	for i, opt := range options {
		s := scoreOption(opt, want, raws)
		if s < best.Score {
			best = Scored{Option: opt, Index: i, Score: s}
		}
	}
	return best, true
}

func scoreOption(opt Option, want engineTraits, raws []string) float64 {
	have := optionTraits(opt.Label)
	score := 0.0

	if want.litres > 0 {
		if have.litres > 0 {
			score += math.Abs(have.litres-want.litres) * displacementWeight
		} else {
			score += missingDisplacement
		}
	}
	if want.hp > 0 && have.hp > 0 {
		score += math.Abs(have.hp-want.hp) * powerWeight
	}
	if want.fuel != domain.FuelUnknown && have.fuel != domain.FuelUnknown && want.fuel != have.fuel {
		score += fuelMismatch
	}

	label := keys.Normalize(opt.Label)
	for _, r := range raws {
		if strings.Contains(label, r) {
			score += labelBonus
			break
		}
	}
	return score
}
