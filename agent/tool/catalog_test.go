package tool

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
)

type fakeActionService struct {
	action string
	target string
	reply  string
	err    error
}

func (f *fakeActionService) Invoke(ctx context.Context, action string, target string) (string, error) {
	f.action, f.target = action, target
	return f.reply, f.err
}

func TestInfosCatalog(t *testing.T) {
	t.Parallel()

	infos := Infos()
	if len(infos) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(infos))
	}
	if infos[0].Name != ActionShutdownDevice {
		t.Fatalf("unexpected first action: %s", infos[0].Name)
	}
	if len(Describe()) != len(infos) {
		t.Fatalf("Describe() length mismatch")
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	got, ok := Lookup(" shutdowndevice ")
	if !ok || got != ActionShutdownDevice {
		t.Fatalf("Lookup() = %q, %v", got, ok)
	}
	if _, ok := Lookup("selfdestruct"); ok {
		t.Fatal("Lookup(selfdestruct) should fail")
	}
}

func TestExecutorInvokesCanonicalAction(t *testing.T) {
	t.Parallel()

	svc := &fakeActionService{reply: "Device:42 has been Shutdowndevice"}
	out, err := NewExecutor(svc)(context.Background(), "SHUTDOWNDEVICE", " 42 ")
	if err != nil {
		t.Fatalf("executor error = %v", err)
	}
	if svc.action != ActionShutdownDevice || svc.target != "42" {
		t.Fatalf("service called with %q %q", svc.action, svc.target)
	}
	if out != svc.reply {
		t.Fatalf("executor output = %q", out)
	}
}

func TestExecutorRejectsUnknownActionAndMissingDevice(t *testing.T) {
	t.Parallel()

	svc := &fakeActionService{}
	exec := NewExecutor(svc)

	if _, err := exec(context.Background(), "launch", "1"); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("unknown action error = %v", err)
	}
	if _, err := exec(context.Background(), ActionRestartDevice, ""); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("missing device error = %v", err)
	}
	if svc.action != "" {
		t.Fatalf("service should not be called, got %q", svc.action)
	}
}
