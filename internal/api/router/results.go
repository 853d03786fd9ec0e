package router

import (
	"net/http"

	"github.com/DjordjeVuckovic/engine-bench/internal/api/results"
	"github.com/labstack/echo/v4"
)

type ResultsRouter struct {
	e       *echo.Echo
	browser *results.Browser
}

func NewResultsRouter(e *echo.Echo, browser *results.Browser) *ResultsRouter {
	return &ResultsRouter{
		e:       e,
		browser: browser,
	}
}

func (r *ResultsRouter) Bind() {
	r.e.GET("/runs", r.listRuns)
	r.e.GET("/runs/:id/trials", r.listTrials)
	r.e.GET("/runs/:id/tables/:engine", r.getTable)
	r.e.GET("/compare", r.compare)
}

// listRuns godoc
// @Summary List runs
// @Description Finished benchmark runs in the results directory, newest first
// @Tags runs
// @Produce json
// @Success 200 {array} results.RunInfo
// @Router /runs [get]
func (r *ResultsRouter) listRuns(c echo.Context) error {
	runs, err := r.browser.Runs()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, runs)
}

// listTrials godoc
// @Summary List trials of a run
// @Description One record per trial, including failed and timed out trials
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} results.TrialRecord
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /runs/{id}/trials [get]
func (r *ResultsRouter) listTrials(c echo.Context) error {
	trials, err := r.browser.Trials(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, trials)
}

// getTable godoc
// @Summary Merged table of one engine
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Param engine path string true "Engine name"
// @Success 200 {object} report.Table
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /runs/{id}/tables/{engine} [get]
func (r *ResultsRouter) getTable(c echo.Context) error {
	table, err := r.browser.Table(c.Param("id"), c.Param("engine"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, table)
}

// compare godoc
// @Summary Compare two engines
// @Description Speedup per configuration key and the geometric mean over keys OK on both sides
// @Tags compare
// @Produce json
// @Param run query string true "Run ID"
// @Param baseline query string true "Baseline engine"
// @Param candidate query string true "Candidate engine"
// @Success 200 {object} report.Comparison
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /compare [get]
func (r *ResultsRouter) compare(c echo.Context) error {
	cmp, err := r.browser.Compare(c.QueryParam("run"), c.QueryParam("baseline"), c.QueryParam("candidate"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cmp)
}
