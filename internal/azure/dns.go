package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/dns/armdns"
)

const defaultRecordTTL = 300

// EnsureDNSZone creates a public DNS zone if absent and returns its delegated
// name servers, which the domain registrar must be pointed at.
func (c *Client) EnsureDNSZone(ctx context.Context, zone string) ([]string, error) {
	client, err := c.zonesClient()
	if err != nil {
		return nil, err
	}

	op := &EnsureOperation[*armdns.Zone, armdns.Zone]{
		Name:         zone,
		ResourceType: "DNS zone",
		Get: func(ctx context.Context) (*armdns.Zone, error) {
			resp, err := client.Get(ctx, c.resourceGroup, zone, nil)
			if err != nil {
				return nil, err
			}
			return &resp.Zone, nil
		},
		BuildOpts: func() (armdns.Zone, error) {
			// DNS zones are a global service.
			return armdns.Zone{Location: to.Ptr("global")}, nil
		},
		Create: func(ctx context.Context, opts armdns.Zone) (Operation[*armdns.Zone], error) {
			resp, err := client.CreateOrUpdate(ctx, c.resourceGroup, zone, opts, nil)
			if err != nil {
				return nil, err
			}
			return &completedOperation[*armdns.Zone]{resource: &resp.Zone}, nil
		},
	}

	waitCtx, cancel := c.provisionCtx(ctx)
	defer cancel()

	result, err := op.Execute(waitCtx, true)
	if err != nil {
		return nil, err
	}

	var nameServers []string
	if result.Properties != nil {
		for _, ns := range result.Properties.NameServers {
			if ns != nil {
				nameServers = append(nameServers, *ns)
			}
		}
	}
	c.log.Info().Str("zone", zone).Strs("name_servers", nameServers).Msg("DNS zone ready")
	return nameServers, nil
}

// CreateARecord upserts an A record set in a public zone. resourceGroup
// overrides the client default when the zone lives elsewhere.
func (c *Client) CreateARecord(ctx context.Context, zone, name string, ips []string, resourceGroup string) error {
	client, err := c.recordSetsClient()
	if err != nil {
		return err
	}
	if resourceGroup == "" {
		resourceGroup = c.resourceGroup
	}

	records := make([]*armdns.ARecord, 0, len(ips))
	for _, ip := range ips {
		records = append(records, &armdns.ARecord{IPv4Address: to.Ptr(ip)})
	}

	_, err = client.CreateOrUpdate(ctx, resourceGroup, zone, name, armdns.RecordTypeA, armdns.RecordSet{
		Properties: &armdns.RecordSetProperties{
			TTL:      to.Ptr[int64](defaultRecordTTL),
			ARecords: records,
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to create A record %s.%s: %w", name, zone, err)
	}
	c.log.Info().Str("record", name+"."+zone).Strs("ips", ips).Msg("A record set")
	return nil
}

// DeleteARecord removes an A record set from a public zone. A missing record
// is not an error.
func (c *Client) DeleteARecord(ctx context.Context, zone, name, resourceGroup string) error {
	client, err := c.recordSetsClient()
	if err != nil {
		return err
	}
	if resourceGroup == "" {
		resourceGroup = c.resourceGroup
	}

	if _, err := client.Delete(ctx, resourceGroup, zone, name, armdns.RecordTypeA, nil); err != nil {
		if IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete A record %s.%s: %w", name, zone, err)
	}
	return nil
}
