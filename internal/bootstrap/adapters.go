package bootstrap

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonesrussell/jobsweep/internal/adapter"
	"github.com/jonesrussell/jobsweep/internal/adapter/brightdata"
	"github.com/jonesrussell/jobsweep/internal/adapter/jobstreet"
	"github.com/jonesrussell/jobsweep/internal/adapter/kalibrr"
	"github.com/jonesrussell/jobsweep/internal/config"
	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/logger"
)

// BuildRegistry registers a factory for every enabled source. LinkedIn and
// Indeed are skipped when BrightData has no API key or dataset.
func BuildRegistry(cfg *config.Config, log logger.Logger) (*adapter.Registry, error) {
	registry := adapter.NewRegistry()
	limiter := adapter.NewHostLimiter(cfg.Scrape.RequestsPerSecond, cfg.Scrape.Burst)
	timeout := brightdata.DefaultTimeout
	if cfg.Scrape.RequestTimeout > 0 {
		timeout = cfg.Scrape.RequestTimeout
	}
	httpClient := &http.Client{Timeout: timeout}

	var bdClient *brightdata.Client
	if cfg.BrightData.APIKey != "" {
		opts := []brightdata.Option{brightdata.WithHTTPClient(httpClient)}
		if cfg.BrightData.BaseURL != "" {
			opts = append(opts, brightdata.WithBaseURL(cfg.BrightData.BaseURL))
		}
		bdClient = brightdata.NewClient(cfg.BrightData.APIKey, opts...)
	}

	for _, source := range domain.AllSources {
		ac := cfg.Adapter(source)
		if ac.Disabled {
			log.Info("Adapter disabled", logger.String("source", string(source)))
			continue
		}
		adapterLog := log.With(logger.String("source", string(source)))

		switch source {
		case domain.SourceKalibrr:
			opts, err := kalibrr.DecodeOptions(ac.Options)
			if err != nil {
				return nil, err
			}
			if opts.MaxPages == 0 {
				opts.MaxPages = cfg.Scrape.MaxPages
			}
			registry.Register(source, func() adapter.Adapter {
				return kalibrr.New(opts, httpClient, limiter, adapterLog)
			})

		case domain.SourceJobStreet:
			opts, err := jobstreet.DecodeOptions(ac.Options)
			if err != nil {
				return nil, err
			}
			if opts.MaxPages == 0 {
				opts.MaxPages = cfg.Scrape.MaxPages
			}
			if opts.RequestTimeout == 0 {
				opts.RequestTimeout = cfg.Scrape.RequestTimeout
			}
			registry.Register(source, func() adapter.Adapter {
				return jobstreet.New(opts, limiter, adapterLog)
			})

		case domain.SourceLinkedIn, domain.SourceIndeed:
			opts, err := brightdata.DecodeOptions(ac.Options)
			if err != nil {
				return nil, err
			}
			profile, ok := brightDataProfile(source, cfg.BrightData, opts)
			if bdClient == nil || !ok {
				log.Warn("Adapter not configured, skipping",
					logger.String("source", string(source)),
					logger.String("reason", "brightdata api key or dataset id missing"),
				)
				continue
			}
			registry.Register(source, func() adapter.Adapter {
				return brightdata.New(bdClient, profile, opts, adapterLog)
			})

		default:
			return nil, fmt.Errorf("no adapter implementation for source %s", source)
		}
	}

	if len(registry.Sources()) == 0 {
		return nil, errors.New("no adapters enabled")
	}
	return registry, nil
}

func brightDataProfile(source domain.Source, cfg config.BrightDataConfig, opts brightdata.Options) (brightdata.Profile, bool) {
	datasetID := opts.DatasetID
	switch source {
	case domain.SourceLinkedIn:
		if datasetID == "" {
			datasetID = cfg.LinkedInDatasetID
		}
		return brightdata.LinkedIn(datasetID), datasetID != ""
	case domain.SourceIndeed:
		if datasetID == "" {
			datasetID = cfg.IndeedDatasetID
		}
		return brightdata.Indeed(datasetID), datasetID != ""
	default:
		return brightdata.Profile{}, false
	}
}
