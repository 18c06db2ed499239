package handlers

import (
	"context"
	"fmt"
)

// PowerAction selects a VM power state transition.
type PowerAction string

const (
	PowerStart      PowerAction = "start"
	PowerStop       PowerAction = "stop"
	PowerRestart    PowerAction = "restart"
	PowerDeallocate PowerAction = "deallocate"
)

// Power applies a power state transition to a VM.
func Power(ctx context.Context, opts Options, name string, action PowerAction) error {
	env, err := setup(opts)
	if err != nil {
		return err
	}

	switch action {
	case PowerStart:
		err = env.client.StartVirtualMachine(ctx, name)
	case PowerStop:
		err = env.client.PowerOffVirtualMachine(ctx, name)
	case PowerRestart:
		err = env.client.RestartVirtualMachine(ctx, name)
	case PowerDeallocate:
		err = env.client.DeallocateVirtualMachine(ctx, name)
	default:
		return fmt.Errorf("unknown power action %q", action)
	}
	if err != nil {
		return err
	}

	fmt.Printf("VM %s: %s complete\n", name, action)
	return nil
}
