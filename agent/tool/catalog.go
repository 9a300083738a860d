package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
)

// Device actions understood by the action service. Names are sent verbatim.
const (
	ActionShutdownDevice = "Shutdowndevice"
	ActionTurnOnDevice   = "turnondevice"
	ActionRestartDevice  = "restartdevice"
)

// Executor performs one validated device action and returns the service's message.
type Executor func(ctx context.Context, action string, deviceID string) (string, error)

// Infos describes the device actions in catalog order.
func Infos() []*schema.ToolInfo {
	deviceParam := map[string]*schema.ParameterInfo{
		"deviceID": {Type: schema.String, Desc: "Identifier of the target device", Required: true},
	}
	return []*schema.ToolInfo{
		{
			Name:        ActionShutdownDevice,
			Desc:        "Shut down a running device.",
			ParamsOneOf: schema.NewParamsOneOfByParams(deviceParam),
		},
		{
			Name:        ActionTurnOnDevice,
			Desc:        "Turn on a device that is off.",
			ParamsOneOf: schema.NewParamsOneOfByParams(deviceParam),
		},
		{
			Name:        ActionRestartDevice,
			Desc:        "Restart a device.",
			ParamsOneOf: schema.NewParamsOneOfByParams(deviceParam),
		},
	}
}

// Lookup resolves an action name case-insensitively to its catalog spelling.
func Lookup(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	for _, info := range Infos() {
		if strings.EqualFold(info.Name, trimmed) {
			return info.Name, true
		}
	}
	return "", false
}

// ActionDescriptor is the prompt-facing view of one action.
type ActionDescriptor struct {
	Name        string
	Description string
}

func Describe() []ActionDescriptor {
	infos := Infos()
	out := make([]ActionDescriptor, 0, len(infos))
	for _, info := range infos {
		out = append(out, ActionDescriptor{Name: info.Name, Description: info.Desc})
	}
	return out
}

// NewExecutor validates requests against the catalog before calling svc.
func NewExecutor(svc contractx.ActionService) Executor {
	return func(ctx context.Context, action string, deviceID string) (string, error) {
		canonical, ok := Lookup(action)
		if !ok {
			return "", fmt.Errorf("%w: action=%q is not in the catalog", contractx.ErrSchemaViolation, action)
		}
		target := strings.TrimSpace(deviceID)
		if target == "" {
			return "", fmt.Errorf("%w: action=%s requires a device id", contractx.ErrSchemaViolation, canonical)
		}
		if svc == nil {
			return "", fmt.Errorf("%w: action service is unavailable", contractx.ErrConfiguration)
		}
		return svc.Invoke(ctx, canonical, target)
	}
}
