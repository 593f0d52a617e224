package fx

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Provider fetches the official USD to VES rate from an external API.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (float64, error)
}

// NewProviders returns the provider chain in priority order.
func NewProviders(timeout time.Duration) []Provider {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return []Provider{
		&pyDolarProvider{client: client},
		&dolarAPIProvider{client: client},
		&erAPIProvider{client: client},
	}
}

// pyDolarProvider reads the BCV quote from pydolarve.org.
type pyDolarProvider struct {
	client *resty.Client
}

func (p *pyDolarProvider) Name() string { return "pydolarve" }

func (p *pyDolarProvider) Fetch(ctx context.Context) (float64, error) {
	var body struct {
		Monitors struct {
			BCV struct {
				Price float64 `json:"price"`
			} `json:"bcv"`
		} `json:"monitors"`
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("page", "bcv").
		SetResult(&body).
		Get("https://pydolarve.org/api/v1/dollar")
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, fmt.Errorf("pydolarve: status %d", resp.StatusCode())
	}
	if body.Monitors.BCV.Price <= 0 {
		return 0, fmt.Errorf("pydolarve: empty rate")
	}
	return body.Monitors.BCV.Price, nil
}

// dolarAPIProvider reads the official quote from ve.dolarapi.com.
type dolarAPIProvider struct {
	client *resty.Client
}

func (p *dolarAPIProvider) Name() string { return "dolarapi" }

func (p *dolarAPIProvider) Fetch(ctx context.Context) (float64, error) {
	var body struct {
		Promedio float64 `json:"promedio"`
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get("https://ve.dolarapi.com/v1/dolares/oficial")
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, fmt.Errorf("dolarapi: status %d", resp.StatusCode())
	}
	if body.Promedio <= 0 {
		return 0, fmt.Errorf("dolarapi: empty rate")
	}
	return body.Promedio, nil
}

// erAPIProvider reads the VES rate from open.er-api.com.
type erAPIProvider struct {
	client *resty.Client
}

func (p *erAPIProvider) Name() string { return "er-api" }

func (p *erAPIProvider) Fetch(ctx context.Context) (float64, error) {
	var body struct {
		Rates map[string]float64 `json:"rates"`
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get("https://open.er-api.com/v6/latest/USD")
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, fmt.Errorf("er-api: status %d", resp.StatusCode())
	}
	rate, ok := body.Rates["VES"]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("er-api: VES rate missing")
	}
	return rate, nil
}
