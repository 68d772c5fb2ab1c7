package mqtt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/hydrothermal/core/model"
	"github.com/kilianp07/hydrothermal/core/watervalue"
	"github.com/kilianp07/hydrothermal/internal/eventbus"
)

type published struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

// mockClient implements pahoClient for tests.
type mockClient struct {
	mu          sync.Mutex
	opts        *paho.ClientOptions
	published   []published
	publishErrs []error
}

func (m *mockClient) IsConnected() bool   { return true }
func (m *mockClient) Connect() paho.Token { return &dummyToken{} }
func (m *mockClient) Disconnect(uint)     {}
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, published{topic, qos, retained, payload.([]byte)})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

func (m *mockClient) messages() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]published(nil), m.published...)
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

func withMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } })
}

func TestPublishSchedule(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883", QoS: 1, Retain: true})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	if mc.opts.ClientID == "" {
		t.Fatalf("expected generated client id")
	}
	s := Schedule{
		RunID:       "run-1",
		State:       model.StateConverged.String(),
		Iterations:  2,
		WaterValues: []float64{0, 25},
		Trajectory:  model.Trajectory{TotalCost: 10},
	}
	if err := pub.PublishSchedule(context.Background(), s); err != nil {
		t.Fatalf("publish: %v", err)
	}
	msgs := mc.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message got %d", len(msgs))
	}
	m := msgs[0]
	if m.topic != "hydrothermal/runs/run-1/schedule" || m.qos != 1 || !m.retain {
		t.Fatalf("unexpected publish %+v", m)
	}
	var got Schedule
	if err := json.Unmarshal(m.payload, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.State != "CONVERGED" || got.Iterations != 2 || got.Timestamp == 0 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestPublishRetry(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	withMock(t, mc)
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	if err := pub.PublishSchedule(context.Background(), Schedule{RunID: "r"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(mc.messages()) != 2 {
		t.Fatalf("expected retries")
	}
}

func TestPublishRetryExhausted(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("a"), fmt.Errorf("b"), fmt.Errorf("c")}}
	withMock(t, mc)
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 2, BackoffMS: 1})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	if err := pub.PublishSchedule(context.Background(), Schedule{RunID: "r"}); err == nil {
		t.Fatalf("expected error")
	}
	if len(mc.messages()) != 3 {
		t.Fatalf("expected 3 attempts got %d", len(mc.messages()))
	}
}

func TestStartProgress(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883", TopicPrefix: "plant", Retain: true})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	bus := eventbus.New[watervalue.IterationReport](4)
	done := pub.StartProgress(context.Background(), bus, "r9")
	bus.Publish(watervalue.IterationReport{Iteration: 1, Delta: 4, State: model.StateIterating})
	bus.Publish(watervalue.IterationReport{Iteration: 2, State: model.StateConverged})
	bus.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("progress forwarding did not stop")
	}
	msgs := mc.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages got %d", len(msgs))
	}
	if msgs[0].topic != "plant/runs/r9/progress" || msgs[0].retain {
		t.Fatalf("unexpected progress publish %+v", msgs[0])
	}
	var p Progress
	if err := json.Unmarshal(msgs[1].payload, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Iteration != 2 || p.State != "CONVERGED" {
		t.Fatalf("unexpected progress %+v", p)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{}).Validate(); err != nil {
		t.Fatalf("disabled config must validate: %v", err)
	}
	if err := (Config{Broker: "tcp://b", QoS: 3}).Validate(); err == nil {
		t.Fatalf("expected qos error")
	}
	if err := (Config{Broker: "tcp://b", UseTLS: true}).Validate(); err == nil {
		t.Fatalf("expected tls error")
	}
}

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	dir := t.TempDir()
	certFile, keyFile, caFile = dir+"/cert.pem", dir+"/key.pem", dir+"/ca.pem"
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})
	for path, data := range map[string][]byte{certFile: certPEM, keyFile: keyPEM, caFile: certPEM} {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{Broker: "ssl://b:8883", UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("load tls: %v", err)
	}
	if len(tlsCfg.Certificates) == 0 || tlsCfg.RootCAs == nil {
		t.Fatalf("tls material not loaded")
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.TLSConfig == nil {
		t.Fatalf("tls not applied to options")
	}
}
