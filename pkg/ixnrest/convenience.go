package ixnrest

import (
	"context"
	"fmt"
)

// Add creates an object of objType under parent and returns its reference.
func (c *Client) Add(ctx context.Context, parent Ref, objType string, attributes map[string]any) (Ref, error) {
	if attributes == nil {
		attributes = map[string]any{}
	}
	resp, err := c.Post(ctx, c.session.URL(parent.Child(objType)), attributes)
	if err != nil {
		return "", err
	}
	ref, err := ExtractRef(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to add %s under %s: %w", objType, parent, err)
	}
	return ref, nil
}

// SetAttributes writes attributes of ref.
func (c *Client) SetAttributes(ctx context.Context, ref Ref, attributes map[string]any) error {
	return c.Patch(ctx, c.session.URL(ref), attributes)
}

func (c *Client) GetVersion(ctx context.Context) (string, error) {
	result, err := c.Execute(ctx, "getVersion", "")
	if err != nil {
		return "", err
	}
	return result.String(), nil
}

// NewConfig clears the appliance configuration.
func (c *Client) NewConfig(ctx context.Context) error {
	_, err := c.Execute(ctx, "newConfig", "")
	return err
}

// LoadConfig loads a configuration file stored on the appliance and waits for
// the load to finish.
func (c *Client) LoadConfig(ctx context.Context, fileName string) error {
	_, err := c.Post(ctx, c.OperationsURL("")+"loadConfig", map[string]any{"filename": fileName})
	return err
}

// SaveConfig saves the configuration to a file on the appliance.
func (c *Client) SaveConfig(ctx context.Context, fileName string) error {
	_, err := c.Post(ctx, c.OperationsURL("")+"saveConfig", map[string]any{"filename": fileName})
	return err
}

// Regenerate regenerates the traffic items of traffic when required.
func (c *Client) Regenerate(ctx context.Context, traffic Ref) error {
	_, err := c.Execute(ctx, "generateifrequired", traffic, traffic)
	return err
}

func (c *Client) StartStatelessTraffic(ctx context.Context, traffic Ref, items []Ref) error {
	_, err := c.Execute(ctx, "startstatelesstraffic", traffic, refList(items))
	return err
}

func (c *Client) StopStatelessTraffic(ctx context.Context, traffic Ref, items []Ref) error {
	_, err := c.Execute(ctx, "stopstatelesstraffic", traffic, refList(items))
	return err
}

// RemapIDs returns ref unchanged.
func (c *Client) RemapIDs(ref Ref) Ref {
	return ref
}

// Commit is a no-op; REST writes are applied as they are made.
func (c *Client) Commit(context.Context) error {
	return nil
}

func refList(refs []Ref) []Ref {
	if refs == nil {
		return []Ref{}
	}
	return refs
}
