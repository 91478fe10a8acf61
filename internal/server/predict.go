package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/GlycoRisk/internal/features"
	"github.com/Skufu/GlycoRisk/internal/pipeline"
	"github.com/Skufu/GlycoRisk/internal/risk"
)

type pageView struct {
	Note    string
	Widgets features.Widgets
	Input   features.Input
	Values  map[string]string
	Result  *pipeline.Result
	Error   string
}

func newPageView(in features.Input) pageView {
	return pageView{
		Note:    UsageNote,
		Widgets: features.FormWidgets(),
		Input:   in,
		Values: map[string]string{
			features.ColAge:               strconv.Itoa(in.Age),
			features.ColBMI:               strconv.FormatFloat(in.BMI, 'f', -1, 64),
			features.ColHbA1cLevel:        strconv.FormatFloat(in.HbA1cLevel, 'f', -1, 64),
			features.ColBloodGlucoseLevel: strconv.Itoa(in.BloodGlucose),
		},
	}
}

// PredictResponse is the JSON body of a successful prediction.
type PredictResponse struct {
	ID          string    `json:"id"`
	Probability float64   `json:"probability"`
	Percent     string    `json:"percent"`
	Tier        risk.Tier `json:"tier"`
	Level       string    `json:"level"`
	Advisory    string    `json:"advisory"`
}

func newPredictResponse(res pipeline.Result) PredictResponse {
	return PredictResponse{
		ID:          res.ID,
		Probability: res.Probability,
		Percent:     formatPercent(res.Probability),
		Tier:        res.Tier,
		Level:       res.Tier.Level(),
		Advisory:    res.Tier.Advisory(),
	}
}

func (h *handler) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", newPageView(features.DefaultInput()))
}

func (h *handler) predictForm(c *gin.Context) {
	var in features.Input
	if err := c.ShouldBind(&in); err != nil {
		view := newPageView(withDefaults(in))
		view.Error = "invalid input: " + err.Error()
		c.HTML(http.StatusBadRequest, "index.html", view)
		return
	}

	view := newPageView(in)
	res, status, err := h.predict(in)
	if err != nil {
		view.Error = err.Error()
		c.HTML(status, "index.html", view)
		return
	}
	view.Result = &res
	c.HTML(http.StatusOK, "index.html", view)
}

// withDefaults keeps whatever the form managed to bind and falls back to
// the initial form state for the rest.
func withDefaults(in features.Input) features.Input {
	def := features.DefaultInput()
	if in.Age == 0 {
		in.Age = def.Age
	}
	if in.BMI == 0 {
		in.BMI = def.BMI
	}
	if in.HbA1cLevel == 0 {
		in.HbA1cLevel = def.HbA1cLevel
	}
	if in.BloodGlucose == 0 {
		in.BloodGlucose = def.BloodGlucose
	}
	for _, f := range []struct{ v, d *string }{
		{&in.Hypertension, &def.Hypertension},
		{&in.HeartDisease, &def.HeartDisease},
		{&in.Race, &def.Race},
		{&in.Gender, &def.Gender},
		{&in.Location, &def.Location},
		{&in.SmokingHistory, &def.SmokingHistory},
	} {
		if *f.v == "" {
			*f.v = *f.d
		}
	}
	return in
}

func (h *handler) predictJSON(c *gin.Context) {
	var in features.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid payload",
			"details": err.Error(),
		})
		return
	}

	res, status, err := h.predict(in)
	if err != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newPredictResponse(res))
}

// predict assembles the record and runs the pipeline, mapping failures to
// an HTTP status.
func (h *handler) predict(in features.Input) (pipeline.Result, int, error) {
	if h.predictor == nil {
		return pipeline.Result{}, http.StatusServiceUnavailable, errors.New("model not loaded")
	}

	rec, err := features.Assemble(in)
	if err != nil {
		return pipeline.Result{}, http.StatusBadRequest, err
	}

	res, err := h.predictor.Run(rec)
	if err != nil {
		var perr *pipeline.PredictionError
		if errors.As(err, &perr) {
			return pipeline.Result{}, http.StatusUnprocessableEntity, err
		}
		return pipeline.Result{}, http.StatusInternalServerError, err
	}
	return res, http.StatusOK, nil
}
