package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/stagegate/stagegate/pkg/artifact"
	"github.com/stagegate/stagegate/pkg/controller"
	"github.com/stagegate/stagegate/pkg/deliverable"
	"github.com/stagegate/stagegate/pkg/verify"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random port
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("nats server: %v", err)
	}

	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server not ready")
	}
	t.Cleanup(server.Shutdown)
	return server
}

func startService(t *testing.T, store *artifact.MemStore, inv controller.Invoker) *nats.Conn {
	t.Helper()
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(nc.Close)

	v := verify.New(deliverable.Default(), store)
	var ctrl *controller.Controller
	if inv != nil {
		ctrl = controller.New(v, inv)
	}
	svc := New(nc, v, ctrl, Config{
		Subject:       "stagegate.jobs",
		ResultSubject: "stagegate.results",
		Queue:         "stagegate",
	}, nil, nil)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { svc.Stop() })
	return nc
}

func requestJob(t *testing.T, nc *nats.Conn, job Job) JobResult {
	t.Helper()
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	msg, err := nc.Request("stagegate.jobs", data, 5*time.Second)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var result JobResult
	if err := json.Unmarshal(msg.Data, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	return result
}

func TestServiceVerifyJob(t *testing.T) {
	store := artifact.NewMemStore()
	store.Write("/guardrail_assessment.md", "## Overall Assessment\nStatus: ok\n## Contextual Guardrails\n")
	nc := startService(t, store, nil)

	result := requestJob(t, nc, Job{Kind: KindVerify, Producer: "Guardrail Agent"})
	if !result.OK {
		t.Fatalf("result = %+v", result)
	}
	payload := result.Payload.(map[string]any)
	if payload["passed"] != true {
		t.Errorf("passed = %v", payload["passed"])
	}
}

func TestServicePrecheckJob(t *testing.T) {
	store := artifact.NewMemStore()
	nc := startService(t, store, nil)

	result := requestJob(t, nc, Job{Kind: KindPrecheck, Producer: "Guardrail Agent"})
	if !result.OK {
		t.Fatalf("result = %+v", result)
	}
	payload := result.Payload.(map[string]any)
	if payload["passed"] != false {
		t.Errorf("passed = %v, want false without user request", payload["passed"])
	}
}

func TestServiceStageJob(t *testing.T) {
	store := artifact.NewMemStore()
	store.Write("/user_request.md", "Build a thing")
	inv := controller.InvokerFunc(func(ctx context.Context, producer, instruction string) (string, error) {
		store.Write("/guardrail_assessment.md", "## Overall Assessment\nStatus: ok\n## Contextual Guardrails\n")
		return "", nil
	})
	nc := startService(t, store, inv)

	result := requestJob(t, nc, Job{Kind: KindStage, Producer: "Guardrail Agent", Instruction: "Assess"})
	if !result.OK {
		t.Fatalf("result = %+v", result)
	}
	payload := result.Payload.(map[string]any)
	if payload["state"] != float64(int(controller.StatePassed)) {
		t.Errorf("state = %v", payload["state"])
	}
}

func TestServiceUnknownKind(t *testing.T) {
	nc := startService(t, artifact.NewMemStore(), nil)

	result := requestJob(t, nc, Job{Kind: "compile"})
	if result.OK {
		t.Fatal("expected failure for unknown kind")
	}
	if result.Error == "" {
		t.Error("expected error message")
	}
}

func TestServiceMalformedMessage(t *testing.T) {
	nc := startService(t, artifact.NewMemStore(), nil)

	msg, err := nc.Request("stagegate.jobs", []byte("{bad json"), 5*time.Second)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var result JobResult
	if err := json.Unmarshal(msg.Data, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.OK {
		t.Fatal("expected failure for malformed job")
	}
}
