package features

// Race is the single race selection that expands into five indicators.
type Race string

const (
	RaceAfricanAmerican Race = "AfricanAmerican"
	RaceAsian           Race = "Asian"
	RaceCaucasian       Race = "Caucasian"
	RaceHispanic        Race = "Hispanic"
	RaceOther           Race = "Other"
)

// Races lists every selectable race in indicator order.
var Races = []Race{RaceAfricanAmerican, RaceAsian, RaceCaucasian, RaceHispanic, RaceOther}

// Valid reports whether r is one of Races.
func (r Race) Valid() bool {
	for _, v := range Races {
		if v == r {
			return true
		}
	}
	return false
}

const (
	Yes = "yes"
	No  = "no"
)

// Selector vocabularies offered by the form.
var (
	Genders          = []string{"Male", "Female", "Other"}
	Locations        = []string{"Urban", "Rural"}
	SmokingHistories = []string{"never", "current", "former", "ever", "not current", "No Info"}
)

// Range describes a slider.
type Range struct {
	Name    string  `json:"name"`
	Label   string  `json:"label"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
	Step    float64 `json:"step"`
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

var (
	AgeRange     = Range{Name: ColAge, Label: "Age", Min: 18, Max: 100, Default: 40, Step: 1}
	BMIRange     = Range{Name: ColBMI, Label: "BMI (body mass index)", Min: 10, Max: 50, Default: 22, Step: 0.1}
	HbA1cRange   = Range{Name: ColHbA1cLevel, Label: "HbA1c level (glycated hemoglobin)", Min: 3, Max: 15, Default: 5.5, Step: 0.1}
	GlucoseRange = Range{Name: ColBloodGlucoseLevel, Label: "Blood glucose level", Min: 50, Max: 300, Default: 100, Step: 1}
)

// Widgets is the full description of the form controls.
type Widgets struct {
	Sliders          []Range  `json:"sliders"`
	YesNo            []string `json:"yes_no"`
	Races            []Race   `json:"races"`
	Genders          []string `json:"genders"`
	Locations        []string `json:"locations"`
	SmokingHistories []string `json:"smoking_histories"`
}

// FormWidgets returns the ranges and vocabularies the form is built from.
func FormWidgets() Widgets {
	return Widgets{
		Sliders:          []Range{AgeRange, BMIRange, HbA1cRange, GlucoseRange},
		YesNo:            []string{No, Yes},
		Races:            Races,
		Genders:          Genders,
		Locations:        Locations,
		SmokingHistories: SmokingHistories,
	}
}
