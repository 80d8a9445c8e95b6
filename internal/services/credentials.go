package services

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/desertthunder/qcat/internal/models"
	"github.com/desertthunder/qcat/internal/shared"
)

// CredentialPool resolves an upstream user token from an optional region hint.
//
// It is immutable once built and safe for concurrent use.
type CredentialPool struct {
	regions  []models.Credential
	fallback []string
	pick     func(n int) int
}

// NewCredentialPool builds a pool from a region mapping and a fallback token list.
//
// Region codes must be unique, compared case-insensitively. Empty tokens are skipped.
func NewCredentialPool(regions []models.Credential, fallback []string) (*CredentialPool, error) {
	p := &CredentialPool{pick: rand.IntN}
	seen := make(map[string]bool, len(regions))

	for _, c := range regions {
		code := shared.NormalizeRegion(c.Region)
		if code == "" || strings.TrimSpace(c.Token) == "" {
			return nil, fmt.Errorf("%w: region credential needs both code and token", shared.ErrConfiguration)
		}
		if seen[code] {
			return nil, fmt.Errorf("%w: duplicate region %s", shared.ErrConfiguration, code)
		}
		seen[code] = true
		p.regions = append(p.regions, models.Credential{Region: code, Token: c.Token})
	}

	for _, t := range fallback {
		if t = strings.TrimSpace(t); t != "" {
			p.fallback = append(p.fallback, t)
		}
	}

	if len(p.regions) == 0 && len(p.fallback) == 0 {
		return nil, fmt.Errorf("%w: no credential tokens configured", shared.ErrConfiguration)
	}
	return p, nil
}

// NewCredentialPoolFromConfig builds a pool from the upstream section of the config.
func NewCredentialPoolFromConfig(cfg shared.UpstreamConfig) (*CredentialPool, error) {
	regions := make([]models.Credential, 0, len(cfg.Regions))
	for _, r := range cfg.Regions {
		regions = append(regions, models.Credential{Region: r.Code, Token: r.Token})
	}
	return NewCredentialPool(regions, cfg.Tokens)
}

// Resolve returns the token for regionHint.
//
// A configured region matching the hint wins. Otherwise the first configured region is used,
// and only a pool without regions draws uniformly from the fallback tokens.
func (p *CredentialPool) Resolve(regionHint string) (string, error) {
	if len(p.regions) > 0 {
		code := shared.NormalizeRegion(regionHint)
		for _, c := range p.regions {
			if c.Region == code {
				return c.Token, nil
			}
		}
		return p.regions[0].Token, nil
	}

	if len(p.fallback) == 0 {
		return "", fmt.Errorf("%w: no credential tokens configured", shared.ErrConfiguration)
	}
	return p.fallback[p.pick(len(p.fallback))], nil
}

// Regions lists the configured region codes in configuration order.
func (p *CredentialPool) Regions() []string {
	codes := make([]string, 0, len(p.regions))
	for _, c := range p.regions {
		codes = append(codes, c.Region)
	}
	return codes
}

// HasRegion reports whether code is configured.
func (p *CredentialPool) HasRegion(code string) bool {
	code = shared.NormalizeRegion(code)
	for _, c := range p.regions {
		if c.Region == code {
			return true
		}
	}
	return false
}
