package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/grafana/pyroscope-go"

	"github.com/riskibarqy/fixture-pipeline/internal/config"
	"github.com/riskibarqy/fixture-pipeline/internal/platform/logging"
)

// pipelineProfiles are the pyroscope profiles worth paying for in a batch
// pipeline: CPU for payload decoding, heap for the stats batches and
// goroutines for the processing pool.
var pipelineProfiles = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

// StartProfiling starts the pyroscope agent and the local pprof listener when
// each is enabled. The returned func stops whatever was started.
func StartProfiling(cfg config.Config, logger *logging.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = logging.Default()
	}

	var profiler *pyroscope.Profiler
	if cfg.PyroscopeEnabled {
		var err error
		profiler, err = pyroscope.Start(pyroscope.Config{
			ApplicationName:   cfg.PyroscopeAppName,
			ServerAddress:     cfg.PyroscopeServerAddress,
			AuthToken:         cfg.PyroscopeAuthToken,
			BasicAuthUser:     cfg.PyroscopeBasicAuthUser,
			BasicAuthPassword: cfg.PyroscopeBasicAuthPassword,
			UploadRate:        cfg.PyroscopeUploadRate,
			Tags:              map[string]string{"env": cfg.AppEnv, "service": cfg.ServiceName},
			ProfileTypes:      pipelineProfiles,
		})
		if err != nil {
			return nil, fmt.Errorf("start pyroscope: %w", err)
		}
		logger.Info("pyroscope enabled", "server_address", cfg.PyroscopeServerAddress, "application", cfg.PyroscopeAppName)
	}

	var srv *http.Server
	if cfg.PprofEnabled {
		srv = &http.Server{
			Addr:              cfg.PprofAddr,
			Handler:           pprofMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("pprof server starting", "addr", cfg.PprofAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("pprof server failed", "error", err)
			}
		}()
	}

	return func(ctx context.Context) error {
		var errs []error
		if srv != nil {
			errs = append(errs, srv.Shutdown(ctx))
		}
		if profiler != nil {
			errs = append(errs, profiler.Stop())
		}
		return errors.Join(errs...)
	}, nil
}

func pprofMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}
