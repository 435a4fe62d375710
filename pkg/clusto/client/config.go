package client

import (
	"context"
	"strings"

	"github.com/diwise/clusto-client/pkg/clusto/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
)

const ClustoURLEnvironmentVariable string = "CLUSTO_URL"

type ServiceConfig struct {
	BaseURL string
}

// ResolveServiceConfig picks the base url of the clusto service. A non empty
// explicit url wins over whatever lookup returns.
func ResolveServiceConfig(explicit string, lookup func() string) (ServiceConfig, error) {
	baseURL := strings.TrimSpace(explicit)

	if baseURL == "" && lookup != nil {
		baseURL = strings.TrimSpace(lookup())
	}

	if baseURL == "" {
		return ServiceConfig{}, errors.NewConfigurationError(
			"no clusto url given and " + ClustoURLEnvironmentVariable + " is not set",
		)
	}

	return ServiceConfig{BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func environmentLookup(ctx context.Context) func() string {
	return func() string {
		return env.GetVariableOrDefault(ctx, ClustoURLEnvironmentVariable, "")
	}
}
