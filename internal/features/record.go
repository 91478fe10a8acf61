// Package features builds the canonical feature record consumed by the
// preprocessor from raw form values.
package features

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when form values cannot form a record.
var ErrInvalidInput = errors.New("invalid input")

// Column names of the fitted schema, in canonical order.
const (
	ColAge               = "age"
	ColBMI               = "bmi"
	ColHbA1cLevel        = "hbA1c_level"
	ColBloodGlucoseLevel = "blood_glucose_level"
	ColHypertension      = "hypertension"
	ColHeartDisease      = "heart_disease"
	ColGender            = "gender"
	ColLocation          = "location"
	ColSmokingHistory    = "smoking_history"
	ColRaceAfrican       = "race:AfricanAmerican"
	ColRaceAsian         = "race:Asian"
	ColRaceCaucasian     = "race:Caucasian"
	ColRaceHispanic      = "race:Hispanic"
	ColRaceOther         = "race:Other"
)

var columns = []string{
	ColAge,
	ColBMI,
	ColHbA1cLevel,
	ColBloodGlucoseLevel,
	ColHypertension,
	ColHeartDisease,
	ColGender,
	ColLocation,
	ColSmokingHistory,
	ColRaceAfrican,
	ColRaceAsian,
	ColRaceCaucasian,
	ColRaceHispanic,
	ColRaceOther,
}

// Columns returns the record schema in canonical order.
func Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}

// Kind tells whether a column holds a number or a raw category.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// Value is a single cell of a record.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

// Record is one patient's inputs in schema form. It is built by Assemble
// and never modified afterwards.
type Record struct {
	Age               int
	BMI               float64
	HbA1cLevel        float64
	BloodGlucoseLevel int
	Hypertension      int
	HeartDisease      int
	Gender            string
	Location          string
	SmokingHistory    string

	RaceAfricanAmerican int
	RaceAsian           int
	RaceCaucasian       int
	RaceHispanic        int
	RaceOther           int
}

// Value looks a column up by name.
func (r Record) Value(name string) (Value, bool) {
	switch name {
	case ColAge:
		return num(float64(r.Age)), true
	case ColBMI:
		return num(r.BMI), true
	case ColHbA1cLevel:
		return num(r.HbA1cLevel), true
	case ColBloodGlucoseLevel:
		return num(float64(r.BloodGlucoseLevel)), true
	case ColHypertension:
		return num(float64(r.Hypertension)), true
	case ColHeartDisease:
		return num(float64(r.HeartDisease)), true
	case ColGender:
		return str(r.Gender), true
	case ColLocation:
		return str(r.Location), true
	case ColSmokingHistory:
		return str(r.SmokingHistory), true
	case ColRaceAfrican:
		return num(float64(r.RaceAfricanAmerican)), true
	case ColRaceAsian:
		return num(float64(r.RaceAsian)), true
	case ColRaceCaucasian:
		return num(float64(r.RaceCaucasian)), true
	case ColRaceHispanic:
		return num(float64(r.RaceHispanic)), true
	case ColRaceOther:
		return num(float64(r.RaceOther)), true
	}
	return Value{}, false
}

// RaceIndicators returns the five race flags in Races order.
func (r Record) RaceIndicators() []int {
	return []int{r.RaceAfricanAmerican, r.RaceAsian, r.RaceCaucasian, r.RaceHispanic, r.RaceOther}
}

func num(f float64) Value { return Value{Kind: Numeric, Num: f} }
func str(s string) Value { return Value{Kind: Categorical, Str: s} }

// Input holds raw form values. Binding tags mirror the widget ranges so
// gin rejects anything a slider could not produce.
type Input struct {
	Age            int     `form:"age" json:"age" binding:"min=18,max=100"`
	BMI            float64 `form:"bmi" json:"bmi" binding:"min=10,max=50"`
	HbA1cLevel     float64 `form:"hbA1c_level" json:"hbA1c_level" binding:"min=3,max=15"`
	BloodGlucose   int     `form:"blood_glucose_level" json:"blood_glucose_level" binding:"min=50,max=300"`
	Hypertension   string  `form:"hypertension" json:"hypertension" binding:"required"`
	HeartDisease   string  `form:"heart_disease" json:"heart_disease" binding:"required"`
	Race           string  `form:"race" json:"race" binding:"required"`
	Gender         string  `form:"gender" json:"gender" binding:"required"`
	Location       string  `form:"location" json:"location" binding:"required"`
	SmokingHistory string  `form:"smoking_history" json:"smoking_history" binding:"required"`
}

// DefaultInput is the form state before the user touches anything.
func DefaultInput() Input {
	return Input{
		Age:            int(AgeRange.Default),
		BMI:            BMIRange.Default,
		HbA1cLevel:     HbA1cRange.Default,
		BloodGlucose:   int(GlucoseRange.Default),
		Hypertension:   No,
		HeartDisease:   No,
		Race:           string(Races[0]),
		Gender:         Genders[0],
		Location:       Locations[0],
		SmokingHistory: SmokingHistories[0],
	}
}

// Assemble builds a record from form values. Categorical strings are passed
// through untouched; their vocabulary belongs to the preprocessor.
func Assemble(in Input) (Record, error) {
	for _, c := range []struct {
		r Range
		v float64
	}{
		{AgeRange, float64(in.Age)},
		{BMIRange, in.BMI},
		{HbA1cRange, in.HbA1cLevel},
		{GlucoseRange, float64(in.BloodGlucose)},
	} {
		if !c.r.Contains(c.v) {
			return Record{}, fmt.Errorf("%w: %s=%v outside [%v, %v]", ErrInvalidInput, c.r.Name, c.v, c.r.Min, c.r.Max)
		}
	}

	hypertension, err := yesNo(ColHypertension, in.Hypertension)
	if err != nil {
		return Record{}, err
	}
	heartDisease, err := yesNo(ColHeartDisease, in.HeartDisease)
	if err != nil {
		return Record{}, err
	}

	race := Race(in.Race)
	if !race.Valid() {
		return Record{}, fmt.Errorf("%w: unknown race %q", ErrInvalidInput, in.Race)
	}

	rec := Record{
		Age:               in.Age,
		BMI:               in.BMI,
		HbA1cLevel:        in.HbA1cLevel,
		BloodGlucoseLevel: in.BloodGlucose,
		Hypertension:      hypertension,
		HeartDisease:      heartDisease,
		Gender:            in.Gender,
		Location:          in.Location,
		SmokingHistory:    in.SmokingHistory,
	}
	switch race {
	case RaceAfricanAmerican:
		rec.RaceAfricanAmerican = 1
	case RaceAsian:
		rec.RaceAsian = 1
	case RaceCaucasian:
		rec.RaceCaucasian = 1
	case RaceHispanic:
		rec.RaceHispanic = 1
	case RaceOther:
		rec.RaceOther = 1
	}
	return rec, nil
}

func yesNo(field, v string) (int, error) {
	switch v {
	case Yes:
		return 1, nil
	case No:
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %s must be %q or %q, got %q", ErrInvalidInput, field, Yes, No, v)
}
