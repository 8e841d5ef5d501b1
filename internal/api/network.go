package api

import (
	"context"

	"gatewatch/internal/domain"
)

// DHCPConfig fetches the DHCP server settings.
func (c *Client) DHCPConfig(ctx context.Context) (domain.DHCPConfig, error) {
	var cfg domain.DHCPConfig
	if err := c.get(ctx, "/api/dhcp/config", nil, &cfg); err != nil {
		return domain.DHCPConfig{}, err
	}

	return cfg, nil
}

// UpdateDHCPConfig replaces the DHCP server settings.
func (c *Client) UpdateDHCPConfig(ctx context.Context, cfg domain.DHCPConfig) error {
	return c.put(ctx, "/api/dhcp/config", cfg, nil)
}

// DHCPLeases lists active and static leases.
func (c *Client) DHCPLeases(ctx context.Context) ([]domain.DHCPLease, error) {
	var leases []domain.DHCPLease
	if err := c.get(ctx, "/api/dhcp/leases", nil, &leases); err != nil {
		return nil, err
	}

	return leases, nil
}

// DNSConfig fetches the DNS resolver settings.
func (c *Client) DNSConfig(ctx context.Context) (domain.DNSConfig, error) {
	var cfg domain.DNSConfig
	if err := c.get(ctx, "/api/dns/config", nil, &cfg); err != nil {
		return domain.DNSConfig{}, err
	}

	return cfg, nil
}

// UpdateDNSConfig replaces the DNS resolver settings.
func (c *Client) UpdateDNSConfig(ctx context.Context, cfg domain.DNSConfig) error {
	return c.put(ctx, "/api/dns/config", cfg, nil)
}

// CakeConfig fetches the traffic shaping settings.
func (c *Client) CakeConfig(ctx context.Context) (domain.CakeConfig, error) {
	var cfg domain.CakeConfig
	if err := c.get(ctx, "/api/cake/config", nil, &cfg); err != nil {
		return domain.CakeConfig{}, err
	}

	return cfg, nil
}

// UpdateCakeConfig replaces the traffic shaping settings.
func (c *Client) UpdateCakeConfig(ctx context.Context, cfg domain.CakeConfig) error {
	return c.put(ctx, "/api/cake/config", cfg, nil)
}
