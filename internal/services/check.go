package services

import (
	"context"
	"fmt"

	"github.com/mrlokans/scalesync/internal/apperr"
	"github.com/mrlokans/scalesync/internal/config"
	"github.com/mrlokans/scalesync/internal/scale"
)

// CheckResult is the outcome of one preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
	Hint   string `json:"hint,omitempty"`
}

// Check verifies everything a run needs without reading or writing products:
// the configuration, the scale database file, the MiAll connection and the
// category. It reports every check and whether all of them passed.
func (s *SyncService) Check(ctx context.Context, cfg *config.Config) ([]CheckResult, bool) {
	var results []CheckResult
	add := func(name string, err error, detail string) bool {
		r := CheckResult{Name: name, OK: err == nil, Detail: detail}
		if err != nil {
			r.Detail = err.Error()
			r.Hint = apperr.Hint(err)
		}
		results = append(results, r)
		return err == nil
	}

	add("configuration", cfg.Validate(), "ok")
	add("scale database", scale.CheckSource(cfg.Scale), cfg.Scale.DBPath)

	target, err := s.openTarget(ctx, cfg.MiAll)
	if add("MiAll connection", err, fmt.Sprintf("%s reachable", cfg.MiAll.Dialect)) {
		defer target.Close()
		code, err := target.ResolveCategory(ctx)
		add("category", err, fmt.Sprintf("%s -> %s", cfg.MiAll.CategoryName, code))
	}

	ok := true
	for _, r := range results {
		ok = ok && r.OK
	}
	return results, ok
}
