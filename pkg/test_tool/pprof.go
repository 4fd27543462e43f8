package testtool

import (
	"net/http"
	_ "net/http/pprof" // registers the pprof endpoints

	"campus_market_service/pkg/config"
	"campus_market_service/pkg/logger"
)

// StartPprof start the pprof server outside of production
func StartPprof() {
	if !config.IsProduction() {
		go func() {
			logger.Log.Info("pprof listening on :6060")
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				logger.Log.Errorf("pprof server stopped:", err)
			}
		}()
	}
}
