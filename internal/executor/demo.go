package executor

import (
	"context"
	"fmt"
	"sync"
)

// DemoWarehouse is an in-memory Warehouse used when no warehouse DSN is
// configured. It accepts any deployment and returns a canned but plausible
// analysis result, so the full pipeline can be exercised locally.
type DemoWarehouse struct {
	mu       sync.Mutex
	deployed map[string]string
}

func NewDemoWarehouse() *DemoWarehouse {
	return &DemoWarehouse{deployed: make(map[string]string)}
}

func (w *DemoWarehouse) DeployProcedure(ctx context.Context, name, source string, packages []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.deployed[name] = source
	return nil
}

func (w *DemoWarehouse) CallProcedure(ctx context.Context, name string) (map[string]interface{}, error) {
	w.mu.Lock()
	_, ok := w.deployed[name]
	w.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("procedure %s not found", name)
	}
	return map[string]interface{}{
		"status":                   "success",
		"treatment_effect":         0.045,
		"p_value":                  0.012,
		"ci_lower":                 0.02,
		"ci_upper":                 0.07,
		"treated_conversion_rate":  0.18,
		"control_conversion_rate":  0.135,
		"incremental_lift_pct":     33.3,
		"n_treated":                float64(4821),
		"n_control":                float64(4779),
		"is_significant":           float64(1),
		"diagnostics":              map[string]interface{}{"covariate_balance": "good", "common_support": "ok"},
	}, nil
}

func (w *DemoWarehouse) DropProcedure(ctx context.Context, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.deployed, name)
	return nil
}
