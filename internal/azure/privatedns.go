package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/privatedns/armprivatedns"
)

// Private records serve internal names that rarely change, so they carry a
// longer TTL than the public ones.
const privateRecordTTL = 3600

// EnsurePrivateZone creates a private DNS zone if absent. resourceGroup
// overrides the client default when the zone lives elsewhere.
func (c *Client) EnsurePrivateZone(ctx context.Context, zone, resourceGroup string) error {
	client, err := c.privateZonesClient()
	if err != nil {
		return err
	}
	if resourceGroup == "" {
		resourceGroup = c.resourceGroup
	}

	op := &EnsureOperation[*armprivatedns.PrivateZone, armprivatedns.PrivateZone]{
		Name:         zone,
		ResourceType: "private DNS zone",
		Get: func(ctx context.Context) (*armprivatedns.PrivateZone, error) {
			resp, err := client.Get(ctx, resourceGroup, zone, nil)
			if err != nil {
				return nil, err
			}
			return &resp.PrivateZone, nil
		},
		BuildOpts: func() (armprivatedns.PrivateZone, error) {
			return armprivatedns.PrivateZone{Location: to.Ptr("global")}, nil
		},
		Create: func(ctx context.Context, opts armprivatedns.PrivateZone) (Operation[*armprivatedns.PrivateZone], error) {
			poller, err := client.BeginCreateOrUpdate(ctx, resourceGroup, zone, opts, nil)
			if err != nil {
				return nil, err
			}
			return newPollerOperation(poller, c.timeouts.PollInterval, func(r armprivatedns.PrivateZonesClientCreateOrUpdateResponse) *armprivatedns.PrivateZone {
				return &r.PrivateZone
			}), nil
		},
	}

	waitCtx, cancel := c.provisionCtx(ctx)
	defer cancel()

	if _, err := op.Execute(waitCtx, true); err != nil {
		return err
	}
	c.log.Info().Str("zone", zone).Msg("private DNS zone ready")
	return nil
}

// LinkPrivateZoneToVNet links a private zone to a virtual network so VMs in
// it resolve the zone's records. The link is idempotent: an existing link
// with the same name is left unchanged.
func (c *Client) LinkPrivateZoneToVNet(ctx context.Context, dnsResourceGroup, zone, vnetResourceGroup, vnetName string) error {
	client, err := c.vnetLinksClient()
	if err != nil {
		return err
	}
	if dnsResourceGroup == "" {
		dnsResourceGroup = c.resourceGroup
	}
	if vnetResourceGroup == "" {
		vnetResourceGroup = c.resourceGroup
	}

	linkName := vnetName + "-link"

	op := &EnsureOperation[*armprivatedns.VirtualNetworkLink, armprivatedns.VirtualNetworkLink]{
		Name:         linkName,
		ResourceType: "virtual network link",
		Get: func(ctx context.Context) (*armprivatedns.VirtualNetworkLink, error) {
			resp, err := client.Get(ctx, dnsResourceGroup, zone, linkName, nil)
			if err != nil {
				return nil, err
			}
			return &resp.VirtualNetworkLink, nil
		},
		BuildOpts: func() (armprivatedns.VirtualNetworkLink, error) {
			return armprivatedns.VirtualNetworkLink{
				Location: to.Ptr("global"),
				Properties: &armprivatedns.VirtualNetworkLinkProperties{
					VirtualNetwork:      &armprivatedns.SubResource{ID: to.Ptr(c.VNetID(vnetResourceGroup, vnetName))},
					RegistrationEnabled: to.Ptr(false),
				},
			}, nil
		},
		Create: func(ctx context.Context, opts armprivatedns.VirtualNetworkLink) (Operation[*armprivatedns.VirtualNetworkLink], error) {
			poller, err := client.BeginCreateOrUpdate(ctx, dnsResourceGroup, zone, linkName, opts, nil)
			if err != nil {
				return nil, err
			}
			return newPollerOperation(poller, c.timeouts.PollInterval, func(r armprivatedns.VirtualNetworkLinksClientCreateOrUpdateResponse) *armprivatedns.VirtualNetworkLink {
				return &r.VirtualNetworkLink
			}), nil
		},
	}

	waitCtx, cancel := c.provisionCtx(ctx)
	defer cancel()

	if _, err := op.Execute(waitCtx, true); err != nil {
		return err
	}
	c.log.Info().Str("zone", zone).Str("vnet", vnetName).Msg("private zone linked")
	return nil
}

// CreatePrivateARecord upserts an A record set in a private zone.
func (c *Client) CreatePrivateARecord(ctx context.Context, zone, name string, ips []string, resourceGroup string) error {
	client, err := c.privateRecordsClient()
	if err != nil {
		return err
	}
	if resourceGroup == "" {
		resourceGroup = c.resourceGroup
	}

	records := make([]*armprivatedns.ARecord, 0, len(ips))
	for _, ip := range ips {
		records = append(records, &armprivatedns.ARecord{IPv4Address: to.Ptr(ip)})
	}

	_, err = client.CreateOrUpdate(ctx, resourceGroup, zone, armprivatedns.RecordTypeA, name, armprivatedns.RecordSet{
		Properties: &armprivatedns.RecordSetProperties{
			TTL:      to.Ptr[int64](privateRecordTTL),
			ARecords: records,
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to create private A record %s.%s: %w", name, zone, err)
	}
	return nil
}

// DeletePrivateARecord removes an A record set from a private zone. A missing
// record is not an error.
func (c *Client) DeletePrivateARecord(ctx context.Context, zone, name, resourceGroup string) error {
	client, err := c.privateRecordsClient()
	if err != nil {
		return err
	}
	if resourceGroup == "" {
		resourceGroup = c.resourceGroup
	}

	if _, err := client.Delete(ctx, resourceGroup, zone, armprivatedns.RecordTypeA, name, nil); err != nil {
		if IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete private A record %s.%s: %w", name, zone, err)
	}
	return nil
}
